package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"civitas/internal/app/bootstrap"
	"civitas/internal/app/cli"
	"civitas/internal/platform/config"

	"github.com/spf13/cobra"
)

// API process entrypoint.
// Data flow:
// 1) Load config from the environment, then apply flag overrides.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP until SIGINT/SIGTERM.
//
// @title Civitas Voting API
// @version 1.0
// @description Staged voting elections: voter registry, proposals, votes and tally.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	cmd := &cobra.Command{
		Use:           "civitas-api",
		Short:         "Serve the voting workflow HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cli.BindFlags(cmd, &cfg)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		resolved, err := flags.Resolve()
		if err != nil {
			return err
		}
		app, err := bootstrap.BuildAPI(resolved)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				log.Printf("api shutdown close failed: %v", err)
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	}

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("civitas api stopped with error: %v", err)
	}
}
