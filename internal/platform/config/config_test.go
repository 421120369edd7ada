package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{
		"SERVICE_NAME", "HTTP_PORT", "POSTGRES_DSN", "KAFKA_BROKERS", "LOG_LEVEL",
		"IDEMPOTENCY_TTL", "OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE",
		"AUTH_MAX_CLOCK_SKEW", "AUTH_TRUST_ADDRESS_HEADER", "ENABLE_EVENT_AUDIT_CONSUMER",
	} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "civitas" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("expected empty dsn, got %q", cfg.PostgresDSN)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %s", cfg.LogLevel)
	}
	if cfg.IdempotencyTTL != 7*24*time.Hour || cfg.OutboxPollInterval != 2*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.OutboxBatchSize != 100 || cfg.AuthMaxClockSkew != 5*time.Minute {
		t.Fatalf("unexpected outbox/auth defaults: %+v", cfg)
	}
	if cfg.AuthTrustAddressHeader {
		t.Fatalf("trusting the address header must be opt-in")
	}
	if !cfg.EnableEventAuditConsumer {
		t.Fatalf("expected audit consumer enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "ballots")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092 , ,kafka-2:9092")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("IDEMPOTENCY_TTL", "1h")
	t.Setenv("OUTBOX_BATCH_SIZE", "25")
	t.Setenv("AUTH_TRUST_ADDRESS_HEADER", "yes")
	t.Setenv("ENABLE_EVENT_AUDIT_CONSUMER", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "ballots" {
		t.Fatalf("expected service ballots, got %s", cfg.ServiceName)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.IdempotencyTTL != time.Hour || cfg.OutboxBatchSize != 25 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if !cfg.AuthTrustAddressHeader || cfg.EnableEventAuditConsumer {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	testCases := map[string]string{
		"IDEMPOTENCY_TTL":      "forever",
		"OUTBOX_POLL_INTERVAL": "-1s",
		"OUTBOX_BATCH_SIZE":    "zero",
		"LOG_LEVEL":            "loud",
	}
	for name, value := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%q to be rejected", name, value)
			}
		})
	}
}
