package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "civitas/contexts/governance/voting-workflow/application"
	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
)

const moduleName = "governance/voting-workflow"

// mutation is one atomic call against an election.
type mutation struct {
	operation      string
	electionID     string
	caller         common.Address
	idempotencyKey string
	requestHash    string
	apply          func(ctx context.Context, tx *ledgerTx) error
}

// ledgerTx is the state an apply func works on. The election is loaded once
// per unit and saved by the runner after apply succeeds.
type ledgerTx struct {
	ledger   ports.Ledger
	election entities.Election
	caller   common.Address
	now      time.Time
	events   []entities.Event
}

func (tx *ledgerTx) emit(event entities.Event, err error) error {
	if err != nil {
		return err
	}
	tx.events = append(tx.events, event)
	return nil
}

type runner struct {
	elections      ports.ElectionRepository
	clock          ports.Clock
	idGen          ports.IDGenerator
	telemetry      ports.Telemetry
	idempotencyTTL time.Duration
	logger         *slog.Logger
}

func (r runner) run(ctx context.Context, m mutation) (entities.Receipt, error) {
	logger := application.ResolveLogger(r.logger).With(
		"module", moduleName,
		"layer", "application",
		"operation", m.operation,
		"election_id", strings.TrimSpace(m.electionID),
		"caller", m.caller.Hex(),
	)
	logger.Info("voting operation processing started",
		"event", "voting_"+m.operation+"_started",
	)

	electionID := strings.TrimSpace(m.electionID)
	if electionID == "" {
		logger.Warn("voting operation validation failed",
			"event", "voting_"+m.operation+"_validation_failed",
		)
		return entities.Receipt{}, domainerrors.ErrInvalidInput
	}

	key := strings.TrimSpace(m.idempotencyKey)
	var (
		receipt  entities.Receipt
		replayed bool
	)
	err := r.elections.Atomically(ctx, electionID, func(ctx context.Context, ledger ports.Ledger) error {
		// Read under the election lock so sequence and timestamps agree.
		now := r.now()
		if key != "" {
			record, found, err := ledger.Get(ctx, key, now)
			if err != nil {
				return err
			}
			if found {
				if record.RequestHash != m.requestHash {
					return domainerrors.ErrIdempotencyConflict
				}
				replayed = true
				return json.Unmarshal(record.Receipt, &receipt)
			}
		}

		election, err := ledger.GetElection(ctx, electionID)
		if err != nil {
			return err
		}
		tx := &ledgerTx{
			ledger:   ledger,
			election: election,
			caller:   m.caller,
			now:      now,
		}
		if err := m.apply(ctx, tx); err != nil {
			return err
		}
		receipt, err = r.commit(ctx, tx)
		if err != nil || key == "" {
			return err
		}
		payload, err := json.Marshal(receipt)
		if err != nil {
			return err
		}
		return ledger.Put(ctx, ports.IdempotencyRecord{
			Key:         key,
			RequestHash: m.requestHash,
			ElectionID:  electionID,
			Receipt:     payload,
			ExpiresAt:   now.Add(r.resolveIdempotencyTTL()),
		})
	})
	if err != nil {
		r.logFailure(logger, m.operation, err)
		return entities.Receipt{}, err
	}
	if replayed {
		logger.Info("voting operation replayed",
			"event", "voting_"+m.operation+"_replayed",
			"idempotency_key", key,
		)
		return receipt, nil
	}

	r.observe(receipt)
	logger.Info("voting operation applied",
		"event", "voting_"+m.operation+"_applied",
		"stage", receipt.Stage.String(),
		"emitted_events", len(receipt.Events),
	)
	return receipt, nil
}

func (r runner) commit(ctx context.Context, tx *ledgerTx) (entities.Receipt, error) {
	for i := range tx.events {
		tx.election.EventCount++
		tx.events[i].Sequence = tx.election.EventCount
	}
	tx.election.UpdatedAt = tx.now
	if err := tx.ledger.SaveElection(ctx, tx.election); err != nil {
		return entities.Receipt{}, err
	}
	if len(tx.events) > 0 {
		if err := tx.ledger.AppendEvents(ctx, tx.events); err != nil {
			return entities.Receipt{}, err
		}
		for _, event := range tx.events {
			eventID, err := r.idGen.NewID(ctx)
			if err != nil {
				return entities.Receipt{}, err
			}
			envelope, err := newVotingEnvelope(eventID, event)
			if err != nil {
				return entities.Receipt{}, err
			}
			if err := tx.ledger.AppendOutbox(ctx, event.Sequence, envelope); err != nil {
				return entities.Receipt{}, err
			}
		}
	}
	return entities.Receipt{
		ElectionID: tx.election.ElectionID,
		Stage:      tx.election.Stage,
		Events:     tx.events,
	}, nil
}

func (r runner) logFailure(logger *slog.Logger, operation string, err error) {
	if class, ok := domainerrors.ClassOf(err); ok {
		logger.Warn("voting operation reverted",
			"event", "voting_"+operation+"_reverted",
			"class", string(class),
			"reason", err.Error(),
		)
		if r.telemetry != nil {
			r.telemetry.ObserveRevert(operation, string(class))
		}
		return
	}
	if errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		logger.Warn("voting idempotency conflict",
			"event", "voting_"+operation+"_idempotency_conflict",
		)
		return
	}
	if errors.Is(err, domainerrors.ErrElectionNotFound) {
		logger.Warn("voting operation target missing",
			"event", "voting_"+operation+"_election_not_found",
		)
		return
	}
	logger.Error("voting operation failed",
		"event", "voting_"+operation+"_failed",
		"error", err.Error(),
	)
}

func (r runner) observe(receipt entities.Receipt) {
	if r.telemetry == nil {
		return
	}
	for _, event := range receipt.Events {
		r.telemetry.ObserveEvent(string(event.Kind))
		if event.Kind == entities.EventWorkflowStatusChange {
			r.telemetry.ObserveTransition(event.PreviousStatus.String(), event.NewStatus.String())
		}
	}
}

func (r runner) now() time.Time {
	if r.clock != nil {
		return r.clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (r runner) resolveIdempotencyTTL() time.Duration {
	if r.idempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return r.idempotencyTTL
}

func hashRequest(op string, fields map[string]string) string {
	payload := make(map[string]string, len(fields)+1)
	for key, value := range fields {
		payload[key] = strings.TrimSpace(value)
	}
	payload["op"] = op
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
