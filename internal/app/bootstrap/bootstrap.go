package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	votingworkflow "civitas/contexts/governance/voting-workflow"
	postgresadapter "civitas/contexts/governance/voting-workflow/adapters/postgres"
	workerapp "civitas/contexts/governance/voting-workflow/application/workers"
	"civitas/internal/platform/accountauth"
	"civitas/internal/platform/config"
	"civitas/internal/platform/db"
	"civitas/internal/platform/httpserver"
	"civitas/internal/platform/messaging"
	"civitas/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	// workers is set when the API runs on the in-memory store, whose outbox
	// only this process can drain.
	workers *workerLoop
	logger  *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres
	workers  *workerLoop
	logger   *slog.Logger
}

type workerLoop struct {
	outboxRelay  workerapp.OutboxRelay
	audit        *workerapp.EventAuditConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewLogger(cfg config.Config, process string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	return slog.New(handler).With("service", cfg.ServiceName, "process", process)
}

func BuildAPI(cfg config.Config) (*APIApp, error) {
	logger := NewLogger(cfg, "api")

	telemetry, err := metrics.NewVoting()
	if err != nil {
		return nil, err
	}

	app := &APIApp{logger: logger}
	var module votingworkflow.Module
	var healthCheck func(context.Context) error

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		logger.Warn("POSTGRES_DSN not set, using the in-memory store",
			"event", "bootstrap_api_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		module = votingworkflow.NewInMemoryModule(nil, logger).WithTelemetry(telemetry)
		module.Handler.Workflow.IdempotencyTTL = cfg.IdempotencyTTL
		module.Handler.Ballots.IdempotencyTTL = cfg.IdempotencyTTL

		bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
		if err != nil {
			return nil, err
		}
		app.workers = newWorkerLoop(cfg, module, bus, logger)
	} else {
		pg, err := connectPostgres(cfg)
		if err != nil {
			return nil, err
		}
		app.postgres = pg
		healthCheck = pg.Ping
		module = newPostgresModule(cfg, pg, logger).WithTelemetry(telemetry)
	}

	app.server = httpserver.New(module, httpserver.Options{
		Verifier: accountauth.Verifier{
			MaxClockSkew:       cfg.AuthMaxClockSkew,
			Replays:            accountauth.NewReplayGuard(0),
			TrustAddressHeader: cfg.AuthTrustAddressHeader,
		},
		Metrics:     telemetry.Handler(),
		Observer:    telemetry,
		HealthCheck: healthCheck,
	}, logger, normalizeAddr(cfg.HTTPPort))
	return app, nil
}

func BuildWorker(cfg config.Config) (*WorkerApp, error) {
	logger := NewLogger(cfg, "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := connectPostgres(cfg)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	module := newPostgresModule(cfg, pg, logger)
	return &WorkerApp{
		postgres: pg,
		workers:  newWorkerLoop(cfg, module, bus, logger),
		logger:   logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_workers", a.workers != nil,
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.workers != nil {
		group.Go(func() error {
			return a.workers.run(ctx)
		})
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.workers.pollInterval.String(),
	)
	return w.workers.run(ctx)
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func newWorkerLoop(cfg config.Config, module votingworkflow.Module, bus *messaging.Bus, logger *slog.Logger) *workerLoop {
	loop := &workerLoop{
		outboxRelay:  module.OutboxRelay(bus, cfg.OutboxBatchSize),
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}
	if cfg.EnableEventAuditConsumer {
		audit := module.EventAuditConsumer(bus)
		loop.audit = &audit
	}
	return loop
}

// run drains the outbox every poll interval until ctx ends. A failed cycle
// is retried on the next tick; the relay has already logged it.
func (l *workerLoop) run(ctx context.Context) error {
	if l.audit != nil {
		if err := l.audit.Start(ctx); err != nil {
			return err
		}
	}

	interval := l.pollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := l.outboxRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("outbox relay cycle failed, retrying next tick",
				"event", "bootstrap_outbox_relay_retry",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func connectPostgres(cfg config.Config) (*db.Postgres, error) {
	pg, err := db.Connect(cfg.PostgresDSN, db.DefaultPoolOptions())
	if err != nil {
		return nil, err
	}
	if err := postgresadapter.Migrate(pg.DB); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}

func newPostgresModule(cfg config.Config, pg *db.Postgres, logger *slog.Logger) votingworkflow.Module {
	repo := postgresadapter.NewRepository(pg.DB, logger)
	return votingworkflow.NewModule(votingworkflow.Dependencies{
		Elections:      repo,
		Outbox:         repo,
		Clock:          postgresadapter.SystemClock{},
		IDGen:          postgresadapter.UUIDGenerator{},
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
