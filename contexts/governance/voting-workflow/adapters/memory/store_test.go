package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
)

var testOwner = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func seededStore() *Store {
	return NewStore([]entities.Election{{
		ElectionID: "election-1",
		Owner:      testOwner,
		Stage:      entities.StageRegisteringVoters,
	}})
}

func TestAtomicallyDiscardsWritesOnError(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	voter := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	failure := errors.New("apply failed")

	err := store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
		if err := ledger.SaveVoter(ctx, entities.Voter{ElectionID: "election-1", Address: voter, IsRegistered: true}); err != nil {
			return err
		}
		if _, found, _ := ledger.GetVoter(ctx, "election-1", voter); !found {
			t.Fatalf("expected staged voter to be visible inside the unit")
		}
		if err := ledger.AppendOutbox(ctx, 1, ports.EventEnvelope{EventID: "evt-1", EventType: "voting.voter_registered"}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected apply error, got %v", err)
	}
	if _, found, _ := store.GetVoter(ctx, "election-1", voter); found {
		t.Fatalf("expected voter write to be discarded")
	}
	pending, _ := store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected outbox write to be discarded, got %d rows", len(pending))
	}
}

func TestAtomicallyCommitsOnSuccess(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	err := store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
		election, err := ledger.GetElection(ctx, "election-1")
		if err != nil {
			return err
		}
		election.ProposalCount = 1
		if err := ledger.SaveElection(ctx, election); err != nil {
			return err
		}
		if err := ledger.SaveProposal(ctx, entities.Proposal{ElectionID: "election-1", ProposalID: 1, Description: "p1"}); err != nil {
			return err
		}
		proposals, _ := ledger.ListProposals(ctx, "election-1")
		if len(proposals) != 1 {
			t.Fatalf("expected staged proposal in listing, got %d", len(proposals))
		}
		return ledger.AppendEvents(ctx, []entities.Event{{ElectionID: "election-1", Sequence: 1, Kind: entities.EventProposalRegistered, ProposalID: 1}})
	})
	if err != nil {
		t.Fatalf("atomically failed: %v", err)
	}

	election, _ := store.GetElection(ctx, "election-1")
	if election.ProposalCount != 1 {
		t.Fatalf("expected proposal count 1, got %d", election.ProposalCount)
	}
	events, _ := store.ListEvents(ctx, "election-1")
	if len(events) != 1 || events[0].ProposalID != 1 {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestAtomicallyRejectsUnknownElectionAndCancelledContext(t *testing.T) {
	store := seededStore()
	noop := func(context.Context, ports.Ledger) error { return nil }

	if err := store.Atomically(context.Background(), "missing", noop); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected election not found, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Atomically(ctx, "election-1", noop); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestCreateElectionRejectsDuplicateID(t *testing.T) {
	store := seededStore()
	err := store.CreateElection(context.Background(), entities.Election{ElectionID: "election-1", Owner: testOwner})
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	lookup := func(at time.Time) (found bool) {
		t.Helper()
		err := store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
			_, found, _ = ledger.Get(ctx, "key-1", at)
			return nil
		})
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		return found
	}

	err := store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
		return ledger.Put(ctx, ports.IdempotencyRecord{
			Key:         "key-1",
			RequestHash: "hash",
			ElectionID:  "election-1",
			Receipt:     []byte(`{}`),
			ExpiresAt:   now.Add(time.Hour),
		})
	})
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if !lookup(now.Add(59 * time.Minute)) {
		t.Fatalf("expected record before expiry")
	}
	if lookup(now.Add(time.Hour)) {
		t.Fatalf("expected record to expire at ExpiresAt")
	}
	if lookup(now) {
		t.Fatalf("expected expired record to be deleted")
	}
}

func TestIdempotencyRecordsCommitWithTheUnit(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	record := ports.IdempotencyRecord{Key: "key-1", RequestHash: "hash-a", ExpiresAt: now.Add(time.Hour)}
	failure := errors.New("apply failed")

	err := store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
		if err := ledger.Put(ctx, record); err != nil {
			return err
		}
		if _, found, _ := ledger.Get(ctx, "key-1", now); !found {
			t.Fatalf("expected staged record to be visible inside the unit")
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected apply error, got %v", err)
	}

	err = store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
		if _, found, _ := ledger.Get(ctx, "key-1", now); found {
			t.Fatalf("expected rolled back record to be gone")
		}
		return ledger.Put(ctx, record)
	})
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	err = store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
		other := record
		other.RequestHash = "hash-b"
		return ledger.Put(ctx, other)
	})
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestOutboxPublishLifecycle(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	err := store.Atomically(ctx, "election-1", func(ctx context.Context, ledger ports.Ledger) error {
		for i, id := range []string{"evt-1", "evt-2", "evt-3"} {
			envelope := ports.EventEnvelope{EventID: id, EventType: "voting.voted", PartitionKey: "election-1"}
			if err := ledger.AppendOutbox(ctx, uint64(i+1), envelope); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}

	pending, _ := store.ListPendingOutbox(ctx, 2)
	if len(pending) != 2 || pending[0].OutboxID != "evt-1" || pending[1].Sequence != 2 {
		t.Fatalf("expected the first two rows in order, got %+v", pending)
	}
	if err := store.MarkOutboxPublished(ctx, "evt-1", time.Now()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, _ = store.ListPendingOutbox(ctx, 10)
	if len(pending) != 2 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected evt-2 and evt-3 pending, got %+v", pending)
	}
	if err := store.MarkOutboxPublished(ctx, "evt-9", time.Now()); !errors.Is(err, domainerrors.ErrOutboxMessageNotFound) {
		t.Fatalf("expected outbox message not found, got %v", err)
	}
}
