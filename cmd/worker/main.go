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

// Worker process entrypoint.
// Data flow:
// 1) Load config from the environment, then apply flag overrides.
// 2) Build app wiring.
// 3) Run the outbox relay and the event audit consumer until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	cmd := &cobra.Command{
		Use:           "civitas-worker",
		Short:         "Relay voting events from the Postgres outbox to the event bus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cli.BindFlags(cmd, &cfg)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		resolved, err := flags.Resolve()
		if err != nil {
			return err
		}
		app, err := bootstrap.BuildWorker(resolved)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				log.Printf("worker shutdown close failed: %v", err)
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	}

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("civitas worker stopped with error: %v", err)
	}
}
