package ports

import (
	"context"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	contractsv1 "civitas/contracts/gen/events/v1"

	"github.com/ethereum/go-ethereum/common"
)

type EventEnvelope = contractsv1.Envelope

// ElectionReader serves the read side. Missing voters read as the zero Voter
// with found=false; missing proposals return found=false.
type ElectionReader interface {
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	GetVoter(ctx context.Context, electionID string, address common.Address) (entities.Voter, bool, error)
	GetProposal(ctx context.Context, electionID string, proposalID uint64) (entities.Proposal, bool, error)
	ListProposals(ctx context.Context, electionID string) ([]entities.Proposal, error)
	ListEvents(ctx context.Context, electionID string) ([]entities.Event, error)
}

// Ledger is the write view handed to an atomic unit. Nothing written through
// it is visible to other callers until the unit returns nil. Idempotency keys
// are looked up and reserved through the same unit as the writes they guard.
type Ledger interface {
	IdempotencyStore

	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	GetVoter(ctx context.Context, electionID string, address common.Address) (entities.Voter, bool, error)
	GetProposal(ctx context.Context, electionID string, proposalID uint64) (entities.Proposal, bool, error)
	ListProposals(ctx context.Context, electionID string) ([]entities.Proposal, error)

	SaveElection(ctx context.Context, election entities.Election) error
	SaveVoter(ctx context.Context, voter entities.Voter) error
	SaveProposal(ctx context.Context, proposal entities.Proposal) error
	AppendEvents(ctx context.Context, events []entities.Event) error
	// AppendOutbox stores envelope for relay. sequence is the election's event
	// sequence and orders rows of one partition.
	AppendOutbox(ctx context.Context, sequence uint64, envelope EventEnvelope) error
}

type ElectionRepository interface {
	ElectionReader
	CreateElection(ctx context.Context, election entities.Election) error
	// Atomically serializes all units of one election. fn's writes are
	// committed only when it returns nil.
	Atomically(ctx context.Context, electionID string, fn func(ctx context.Context, ledger Ledger) error) error
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ElectionID  string
	Receipt     []byte
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Sequence     uint64
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	// ListPendingOutbox returns unpublished rows, each partition in sequence
	// order.
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// Telemetry receives counters from use cases and workers. A nil Telemetry is
// valid everywhere it is accepted.
type Telemetry interface {
	ObserveTransition(from string, to string)
	ObserveEvent(kind string)
	ObserveRevert(operation string, class string)
	ObserveOutboxPublished(count int)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
