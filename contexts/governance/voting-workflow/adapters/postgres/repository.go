package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository persists elections in Postgres. Inside Atomically the same type
// is bound to the transaction and serves as the unit's ledger.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the voting tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&electionModel{},
		&voterModel{},
		&proposalModel{},
		&eventModel{},
		&idempotencyModel{},
		&outboxModel{},
	)
}

func (r *Repository) CreateElection(ctx context.Context, election entities.Election) error {
	row := electionModelFromEntity(election)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("voting_repo_create_election_failed", err, "election_id", row.ElectionID)
	}
	return nil
}

// Atomically locks the election row for the length of the transaction, so
// concurrent units of one election run one after another. An idempotency key
// reserved by a unit of another election blocks on the key's unique index
// until that unit ends.
func (r *Repository) Atomically(
	ctx context.Context,
	electionID string,
	fn func(ctx context.Context, ledger ports.Ledger) error,
) error {
	electionID = strings.TrimSpace(electionID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row electionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("election_id = ?", electionID).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return r.logError("voting_repo_lock_election_failed", err, "election_id", electionID)
		}
		return fn(ctx, &Repository{db: tx, logger: r.logger})
	})
	if err != nil && isSerializationFailure(err) {
		return domainerrors.ErrConflict
	}
	return err
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("voting_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveElection(ctx context.Context, election entities.Election) error {
	row := electionModelFromEntity(election)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"stage":               row.Stage,
			"proposal_count":      row.ProposalCount,
			"event_count":         row.EventCount,
			"winning_proposal_id": row.WinningProposalID,
			"updated_at":          row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_save_election_failed", create.Error, "election_id", row.ElectionID)
	}
	return nil
}

func (r *Repository) GetVoter(ctx context.Context, electionID string, address common.Address) (entities.Voter, bool, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("address = ?", address.Hex()).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("voting_repo_get_voter_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"address", address.Hex(),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModelFromEntity(voter)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}, {Name: "address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"is_registered":     row.IsRegistered,
			"has_voted":         row.HasVoted,
			"voted_proposal_id": row.VotedProposalID,
			"voted_at":          row.VotedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_save_voter_failed", create.Error,
			"election_id", row.ElectionID,
			"address", row.Address,
		)
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, electionID string, proposalID uint64) (entities.Proposal, bool, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("proposal_id = ?", int64(proposalID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, false, nil
		}
		return entities.Proposal{}, false, r.logError("voting_repo_get_proposal_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"proposal_id", proposalID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListProposals(ctx context.Context, electionID string) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("proposal_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_proposals_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	row := proposalModelFromEntity(proposal)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}, {Name: "proposal_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"vote_count": row.VoteCount,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_save_proposal_failed", create.Error,
			"election_id", row.ElectionID,
			"proposal_id", row.ProposalID,
		)
	}
	return nil
}

func (r *Repository) ListEvents(ctx context.Context, electionID string) ([]entities.Event, error) {
	var rows []eventModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_events_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Event, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendEvents(ctx context.Context, events []entities.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]eventModel, 0, len(events))
	for _, event := range events {
		rows = append(rows, eventModelFromEntity(event))
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("voting_repo_append_events_failed", err,
			"election_id", rows[0].ElectionID,
			"first_sequence", rows[0].Sequence,
		)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("voting_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && !now.UTC().Before(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("voting_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		ElectionID:  row.ElectionID,
		Receipt:     append([]byte(nil), row.Receipt...),
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		ElectionID:  strings.TrimSpace(record.ElectionID),
		Receipt:     append([]byte(nil), record.Receipt...),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("voting_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, sequence uint64, envelope ports.EventEnvelope) error {
	row, err := outboxModelFromEnvelope(sequence, envelope)
	if err != nil {
		return r.logError("voting_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("voting_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("partition_key ASC").
		Order("sequence ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toMessage())
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("voting_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxMessageNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-workflow",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

type electionModel struct {
	ElectionID        string    `gorm:"column:election_id;primaryKey"`
	Owner             string    `gorm:"column:owner;size:42;not null"`
	Stage             int16     `gorm:"column:stage;not null"`
	ProposalCount     int64     `gorm:"column:proposal_count;not null"`
	EventCount        int64     `gorm:"column:event_count;not null"`
	WinningProposalID int64     `gorm:"column:winning_proposal_id;not null"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "voting_elections"
}

func electionModelFromEntity(election entities.Election) electionModel {
	return electionModel{
		ElectionID:        strings.TrimSpace(election.ElectionID),
		Owner:             election.Owner.Hex(),
		Stage:             int16(election.Stage),
		ProposalCount:     int64(election.ProposalCount),
		EventCount:        int64(election.EventCount),
		WinningProposalID: int64(election.WinningProposalID),
		CreatedAt:         election.CreatedAt.UTC(),
		UpdatedAt:         election.UpdatedAt.UTC(),
	}
}

func (m electionModel) toEntity() entities.Election {
	return entities.Election{
		ElectionID:        m.ElectionID,
		Owner:             common.HexToAddress(m.Owner),
		Stage:             entities.Stage(m.Stage),
		ProposalCount:     uint64(m.ProposalCount),
		EventCount:        uint64(m.EventCount),
		WinningProposalID: uint64(m.WinningProposalID),
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

type voterModel struct {
	ElectionID      string     `gorm:"column:election_id;primaryKey"`
	Address         string     `gorm:"column:address;primaryKey;size:42"`
	IsRegistered    bool       `gorm:"column:is_registered;not null"`
	HasVoted        bool       `gorm:"column:has_voted;not null"`
	VotedProposalID int64      `gorm:"column:voted_proposal_id;not null"`
	RegisteredAt    time.Time  `gorm:"column:registered_at"`
	VotedAt         *time.Time `gorm:"column:voted_at"`
}

func (voterModel) TableName() string {
	return "voting_voters"
}

func voterModelFromEntity(voter entities.Voter) voterModel {
	return voterModel{
		ElectionID:      strings.TrimSpace(voter.ElectionID),
		Address:         voter.Address.Hex(),
		IsRegistered:    voter.IsRegistered,
		HasVoted:        voter.HasVoted,
		VotedProposalID: int64(voter.VotedProposalID),
		RegisteredAt:    voter.RegisteredAt.UTC(),
		VotedAt:         normalizeOptionalTime(voter.VotedAt),
	}
}

func (m voterModel) toEntity() entities.Voter {
	return entities.Voter{
		ElectionID:      m.ElectionID,
		Address:         common.HexToAddress(m.Address),
		IsRegistered:    m.IsRegistered,
		HasVoted:        m.HasVoted,
		VotedProposalID: uint64(m.VotedProposalID),
		RegisteredAt:    m.RegisteredAt.UTC(),
		VotedAt:         normalizeOptionalTime(m.VotedAt),
	}
}

type proposalModel struct {
	ElectionID  string    `gorm:"column:election_id;primaryKey"`
	ProposalID  int64     `gorm:"column:proposal_id;primaryKey;autoIncrement:false"`
	Description string    `gorm:"column:description;not null"`
	VoteCount   int64     `gorm:"column:vote_count;not null"`
	Proposer    string    `gorm:"column:proposer;size:42"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (proposalModel) TableName() string {
	return "voting_proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	return proposalModel{
		ElectionID:  strings.TrimSpace(proposal.ElectionID),
		ProposalID:  int64(proposal.ProposalID),
		Description: proposal.Description,
		VoteCount:   int64(proposal.VoteCount),
		Proposer:    proposal.Proposer.Hex(),
		CreatedAt:   proposal.CreatedAt.UTC(),
	}
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ElectionID:  m.ElectionID,
		ProposalID:  uint64(m.ProposalID),
		Description: m.Description,
		VoteCount:   uint64(m.VoteCount),
		Proposer:    common.HexToAddress(m.Proposer),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type eventModel struct {
	ElectionID     string    `gorm:"column:election_id;primaryKey"`
	Sequence       int64     `gorm:"column:sequence;primaryKey;autoIncrement:false"`
	Kind           string    `gorm:"column:kind;not null"`
	PreviousStatus int16     `gorm:"column:previous_status"`
	NewStatus      int16     `gorm:"column:new_status"`
	Voter          string    `gorm:"column:voter;size:42"`
	ProposalID     int64     `gorm:"column:proposal_id"`
	Topic          string    `gorm:"column:topic;size:66;not null"`
	Data           []byte    `gorm:"column:data"`
	OccurredAt     time.Time `gorm:"column:occurred_at"`
}

func (eventModel) TableName() string {
	return "voting_events"
}

func eventModelFromEntity(event entities.Event) eventModel {
	row := eventModel{
		ElectionID:     strings.TrimSpace(event.ElectionID),
		Sequence:       int64(event.Sequence),
		Kind:           string(event.Kind),
		PreviousStatus: int16(event.PreviousStatus),
		NewStatus:      int16(event.NewStatus),
		ProposalID:     int64(event.ProposalID),
		Topic:          event.Topic.Hex(),
		Data:           append([]byte(nil), event.Data...),
		OccurredAt:     event.OccurredAt.UTC(),
	}
	if event.Voter != (common.Address{}) {
		row.Voter = event.Voter.Hex()
	}
	return row
}

func (m eventModel) toEntity() entities.Event {
	event := entities.Event{
		ElectionID:     m.ElectionID,
		Sequence:       uint64(m.Sequence),
		Kind:           entities.EventKind(m.Kind),
		PreviousStatus: entities.Stage(m.PreviousStatus),
		NewStatus:      entities.Stage(m.NewStatus),
		ProposalID:     uint64(m.ProposalID),
		Topic:          common.HexToHash(m.Topic),
		Data:           append([]byte(nil), m.Data...),
		OccurredAt:     m.OccurredAt.UTC(),
	}
	if m.Voter != "" {
		event.Voter = common.HexToAddress(m.Voter)
	}
	return event
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ElectionID  string    `gorm:"column:election_id"`
	Receipt     []byte    `gorm:"column:receipt"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "voting_workflow_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key;index:idx_voting_outbox_partition_sequence,priority:1"`
	Sequence     int64      `gorm:"column:sequence;index:idx_voting_outbox_partition_sequence,priority:2"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_workflow_outbox"
}

func outboxModelFromEnvelope(sequence uint64, envelope ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxModel{}, err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Sequence:     int64(sequence),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

func (row outboxModel) toMessage() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     row.OutboxID,
		EventType:    row.EventType,
		PartitionKey: row.PartitionKey,
		Sequence:     uint64(row.Sequence),
		Payload:      append([]byte(nil), row.Payload...),
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isSerializationFailure reports serialization failures and deadlocks, both
// of which Postgres resolves by aborting one transaction.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.Ledger = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
