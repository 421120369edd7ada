package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type voterKey struct {
	electionID string
	address    common.Address
}

type proposalKey struct {
	electionID string
	proposalID uint64
}

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps every election in process memory. Atomic units hold the write
// lock for their whole duration, which serializes them across elections.
// Outbox rows are appended under that lock, so they list in sequence order.
type Store struct {
	mu sync.RWMutex

	elections   map[string]entities.Election
	voters      map[voterKey]entities.Voter
	proposals   map[proposalKey]entities.Proposal
	events      map[string][]entities.Event
	idempotency map[string]ports.IdempotencyRecord
	outbox      []outboxRecord

	clockMu sync.RWMutex
	now     func() time.Time
}

func NewStore(seed []entities.Election) *Store {
	elections := make(map[string]entities.Election, len(seed))
	for _, election := range seed {
		elections[strings.TrimSpace(election.ElectionID)] = election
	}
	return &Store{
		elections:   elections,
		voters:      make(map[voterKey]entities.Voter),
		proposals:   make(map[proposalKey]entities.Proposal),
		events:      make(map[string][]entities.Event),
		idempotency: make(map[string]ports.IdempotencyRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock pins Now for deterministic tests.
func (s *Store) SetClock(now func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = now
}

func (s *Store) CreateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	electionID := strings.TrimSpace(election.ElectionID)
	if _, exists := s.elections[electionID]; exists {
		return domainerrors.ErrConflict
	}
	s.elections[electionID] = election
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getElectionLocked(electionID)
}

func (s *Store) GetVoter(_ context.Context, electionID string, address common.Address) (entities.Voter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[voterKey{electionID: strings.TrimSpace(electionID), address: address}]
	return voter, ok, nil
}

func (s *Store) GetProposal(_ context.Context, electionID string, proposalID uint64) (entities.Proposal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[proposalKey{electionID: strings.TrimSpace(electionID), proposalID: proposalID}]
	return proposal, ok, nil
}

func (s *Store) ListProposals(_ context.Context, electionID string) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProposalsLocked(strings.TrimSpace(electionID), nil), nil
}

func (s *Store) ListEvents(_ context.Context, electionID string) ([]entities.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[strings.TrimSpace(electionID)]
	items := make([]entities.Event, 0, len(events))
	for _, event := range events {
		items = append(items, cloneEvent(event))
	}
	return items, nil
}

func (s *Store) Atomically(
	ctx context.Context,
	electionID string,
	fn func(ctx context.Context, ledger ports.Ledger) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.getElectionLocked(electionID); err != nil {
		return err
	}
	tx := &stagedLedger{
		store:       s,
		elections:   make(map[string]entities.Election),
		voters:      make(map[voterKey]entities.Voter),
		proposals:   make(map[proposalKey]entities.Proposal),
		idempotency: make(map[string]ports.IdempotencyRecord),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, record := range s.outbox {
		if record.published {
			continue
		}
		message := record.message
		message.Payload = append([]byte(nil), message.Payload...)
		items = append(items, message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outboxID = strings.TrimSpace(outboxID)
	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].published = true
			return nil
		}
	}
	return domainerrors.ErrOutboxMessageNotFound
}

func (s *Store) Now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) getElectionLocked(electionID string) (entities.Election, error) {
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) listProposalsLocked(electionID string, staged map[proposalKey]entities.Proposal) []entities.Proposal {
	merged := make(map[uint64]entities.Proposal)
	for key, proposal := range s.proposals {
		if key.electionID == electionID {
			merged[key.proposalID] = proposal
		}
	}
	for key, proposal := range staged {
		if key.electionID == electionID {
			merged[key.proposalID] = proposal
		}
	}
	items := make([]entities.Proposal, 0, len(merged))
	for _, proposal := range merged {
		items = append(items, proposal)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProposalID < items[j].ProposalID
	})
	return items
}

// stagedLedger buffers writes of one atomic unit. The store's write lock is
// held by Atomically, so reads go straight to the store maps.
type stagedLedger struct {
	store       *Store
	elections   map[string]entities.Election
	voters      map[voterKey]entities.Voter
	proposals   map[proposalKey]entities.Proposal
	idempotency map[string]ports.IdempotencyRecord
	expired     []string
	events      []entities.Event
	outbox      []outboxRecord
}

func (tx *stagedLedger) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	if election, ok := tx.elections[strings.TrimSpace(electionID)]; ok {
		return election, nil
	}
	return tx.store.getElectionLocked(electionID)
}

func (tx *stagedLedger) GetVoter(_ context.Context, electionID string, address common.Address) (entities.Voter, bool, error) {
	key := voterKey{electionID: strings.TrimSpace(electionID), address: address}
	if voter, ok := tx.voters[key]; ok {
		return voter, true, nil
	}
	voter, ok := tx.store.voters[key]
	return voter, ok, nil
}

func (tx *stagedLedger) GetProposal(_ context.Context, electionID string, proposalID uint64) (entities.Proposal, bool, error) {
	key := proposalKey{electionID: strings.TrimSpace(electionID), proposalID: proposalID}
	if proposal, ok := tx.proposals[key]; ok {
		return proposal, true, nil
	}
	proposal, ok := tx.store.proposals[key]
	return proposal, ok, nil
}

func (tx *stagedLedger) ListProposals(_ context.Context, electionID string) ([]entities.Proposal, error) {
	return tx.store.listProposalsLocked(strings.TrimSpace(electionID), tx.proposals), nil
}

// Get returns the live record for key. Expired records read as missing and
// are dropped when the unit commits.
func (tx *stagedLedger) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	key = strings.TrimSpace(key)
	record, ok := tx.idempotency[key]
	if !ok {
		record, ok = tx.store.idempotency[key]
	}
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt) {
		delete(tx.idempotency, key)
		tx.expired = append(tx.expired, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	record.Receipt = append([]byte(nil), record.Receipt...)
	return record, true, nil
}

func (tx *stagedLedger) Put(_ context.Context, record ports.IdempotencyRecord) error {
	record.Key = strings.TrimSpace(record.Key)
	if existing, ok := tx.idempotency[record.Key]; ok && existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	if existing, ok := tx.store.idempotency[record.Key]; ok && !tx.isExpired(record.Key) && existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	record.Receipt = append([]byte(nil), record.Receipt...)
	tx.idempotency[record.Key] = record
	return nil
}

func (tx *stagedLedger) isExpired(key string) bool {
	for _, expired := range tx.expired {
		if expired == key {
			return true
		}
	}
	return false
}

func (tx *stagedLedger) SaveElection(_ context.Context, election entities.Election) error {
	tx.elections[strings.TrimSpace(election.ElectionID)] = election
	return nil
}

func (tx *stagedLedger) SaveVoter(_ context.Context, voter entities.Voter) error {
	tx.voters[voterKey{electionID: strings.TrimSpace(voter.ElectionID), address: voter.Address}] = voter
	return nil
}

func (tx *stagedLedger) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	tx.proposals[proposalKey{electionID: strings.TrimSpace(proposal.ElectionID), proposalID: proposal.ProposalID}] = proposal
	return nil
}

func (tx *stagedLedger) AppendEvents(_ context.Context, events []entities.Event) error {
	for _, event := range events {
		tx.events = append(tx.events, cloneEvent(event))
	}
	return nil
}

func (tx *stagedLedger) AppendOutbox(_ context.Context, sequence uint64, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	tx.outbox = append(tx.outbox, outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Sequence:     sequence,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		},
	})
	return nil
}

func (tx *stagedLedger) commit() {
	s := tx.store
	for electionID, election := range tx.elections {
		s.elections[electionID] = election
	}
	for key, voter := range tx.voters {
		s.voters[key] = voter
	}
	for key, proposal := range tx.proposals {
		s.proposals[key] = proposal
	}
	for _, key := range tx.expired {
		delete(s.idempotency, key)
	}
	for key, record := range tx.idempotency {
		s.idempotency[key] = record
	}
	for _, event := range tx.events {
		s.events[event.ElectionID] = append(s.events[event.ElectionID], event)
	}
	s.outbox = append(s.outbox, tx.outbox...)
}

func cloneEvent(event entities.Event) entities.Event {
	event.Data = append([]byte(nil), event.Data...)
	return event
}

var _ ports.ElectionRepository = (*Store)(nil)
var _ ports.Ledger = (*stagedLedger)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
