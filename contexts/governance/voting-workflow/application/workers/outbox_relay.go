package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "civitas/contexts/governance/voting-workflow/application"
	"civitas/contexts/governance/voting-workflow/ports"
)

// OutboxRelay publishes persisted voting events to the event bus, one
// election partition at a time.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Telemetry ports.Telemetry
	BatchSize int
	Logger    *slog.Logger
}

// RelayResult summarizes one relay cycle.
type RelayResult struct {
	Published int
	// Held maps each election whose rows stopped at a failure to the
	// sequence it stopped at. Later rows of that election wait for the next
	// cycle.
	Held map[string]uint64
}

// RunOnce drains a bounded batch. Rows of an election are published in
// sequence order and a row is marked only after its publish succeeds. A
// failure holds back the rest of that election while other elections keep
// draining; the returned error joins every held election's failure.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	_, err := r.Drain(ctx)
	return err
}

// Drain is RunOnce that also reports what the cycle published and held.
func (r OutboxRelay) Drain(ctx context.Context) (RelayResult, error) {
	logger := application.ResolveLogger(r.Logger).With(
		"module", "governance/voting-workflow",
		"layer", "worker",
	)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("voting outbox list failed",
			"event", "voting_outbox_list_failed",
			"error", err.Error(),
		)
		return RelayResult{}, err
	}
	if len(pending) == 0 {
		logger.Debug("voting outbox relay found no pending rows",
			"event", "voting_outbox_relay_noop",
			"batch_size", limit,
		)
		return RelayResult{}, nil
	}

	result := RelayResult{Held: make(map[string]uint64)}
	defer func() {
		if r.Telemetry != nil && result.Published > 0 {
			r.Telemetry.ObserveOutboxPublished(result.Published)
		}
	}()

	var failures []error
	last := make(map[string]uint64)
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(append(failures, err)...)
		}
		if _, held := result.Held[row.PartitionKey]; held {
			continue
		}
		rowLogger := logger.With(
			"outbox_id", row.OutboxID,
			"election_id", row.PartitionKey,
			"sequence", row.Sequence,
		)
		if previous, seen := last[row.PartitionKey]; seen && row.Sequence <= previous {
			err := fmt.Errorf("outbox row %s: sequence %d after %d", row.OutboxID, row.Sequence, previous)
			rowLogger.Error("voting outbox rows out of sequence",
				"event", "voting_outbox_sequence_out_of_order",
				"error", err.Error(),
			)
			result.Held[row.PartitionKey] = row.Sequence
			failures = append(failures, err)
			continue
		}
		if err := r.relayRow(ctx, row, rowLogger); err != nil {
			result.Held[row.PartitionKey] = row.Sequence
			failures = append(failures, fmt.Errorf("election %s sequence %d: %w", row.PartitionKey, row.Sequence, err))
			continue
		}
		last[row.PartitionKey] = row.Sequence
		result.Published++
	}

	logger.Info("voting outbox relay cycle completed",
		"event", "voting_outbox_relay_completed",
		"published_count", result.Published,
		"held_elections", len(result.Held),
	)
	return result, errors.Join(failures...)
}

func (r OutboxRelay) relayRow(ctx context.Context, row ports.OutboxMessage, logger *slog.Logger) error {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		logger.Error("voting outbox decode failed",
			"event", "voting_outbox_decode_failed",
			"error", err.Error(),
		)
		return err
	}
	topic := event.EventType
	if topic == "" {
		topic = row.EventType
	}
	if err := r.Publisher.Publish(ctx, topic, event); err != nil {
		logger.Error("voting outbox publish failed",
			"event", "voting_outbox_publish_failed",
			"event_id", event.EventID,
			"event_type", topic,
			"error", err.Error(),
		)
		return err
	}
	// A failed mark republishes the row next cycle, so delivery is at least
	// once.
	if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, r.now()); err != nil {
		logger.Error("voting outbox mark published failed",
			"event", "voting_outbox_mark_published_failed",
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (r OutboxRelay) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
