// Package cli holds the cobra flag set shared by the api and worker commands.
package cli

import (
	"fmt"
	"log/slog"

	"civitas/internal/platform/config"

	"github.com/spf13/cobra"
)

// Flags binds command-line overrides onto a config loaded from the
// environment. Flags left unset keep the environment value.
type Flags struct {
	cfg      *config.Config
	logLevel string
}

func BindFlags(cmd *cobra.Command, cfg *config.Config) *Flags {
	f := &Flags{cfg: cfg, logLevel: cfg.LogLevel.String()}
	flags := cmd.Flags()
	flags.StringVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "HTTP listen port (HTTP_PORT)")
	flags.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "Postgres DSN; empty selects the in-memory store (POSTGRES_DSN)")
	flags.StringSliceVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "event bus brokers (KAFKA_BROKERS)")
	flags.StringVar(&f.logLevel, "log-level", f.logLevel, "log level: debug, info, warn or error (LOG_LEVEL)")
	flags.DurationVar(&cfg.IdempotencyTTL, "idempotency-ttl", cfg.IdempotencyTTL, "idempotency record lifetime (IDEMPOTENCY_TTL)")
	flags.DurationVar(&cfg.OutboxPollInterval, "outbox-poll-interval", cfg.OutboxPollInterval, "outbox relay poll interval (OUTBOX_POLL_INTERVAL)")
	flags.IntVar(&cfg.OutboxBatchSize, "outbox-batch-size", cfg.OutboxBatchSize, "outbox rows published per cycle (OUTBOX_BATCH_SIZE)")
	flags.DurationVar(&cfg.AuthMaxClockSkew, "auth-max-clock-skew", cfg.AuthMaxClockSkew, "accepted signature age (AUTH_MAX_CLOCK_SKEW)")
	flags.BoolVar(&cfg.AuthTrustAddressHeader, "auth-trust-address-header", cfg.AuthTrustAddressHeader, "accept X-Account-Address without a signature, development only (AUTH_TRUST_ADDRESS_HEADER)")
	flags.BoolVar(&cfg.EnableEventAuditConsumer, "enable-event-audit-consumer", cfg.EnableEventAuditConsumer, "run the voting event audit consumer (ENABLE_EVENT_AUDIT_CONSUMER)")
	return f
}

// Resolve applies the flags that need parsing and returns the final config.
func (f *Flags) Resolve() (config.Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return config.Config{}, fmt.Errorf("parse --log-level: %w", err)
	}
	f.cfg.LogLevel = level
	if f.cfg.OutboxBatchSize <= 0 {
		return config.Config{}, fmt.Errorf("--outbox-batch-size must be positive, got %d", f.cfg.OutboxBatchSize)
	}
	return *f.cfg, nil
}
