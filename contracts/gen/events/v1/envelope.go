package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical, versioned event envelope shared by producers and
// consumers. Fields are append-only.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Event types published by the voting workflow.
const (
	EventTypeWorkflowStatusChanged = "voting.workflow_status_changed"
	EventTypeVoterRegistered       = "voting.voter_registered"
	EventTypeProposalRegistered    = "voting.proposal_registered"
	EventTypeVoted                 = "voting.voted"
)

// VotingEventData is the Data payload of every voting.* envelope. Log fields
// carry the ABI encoding so consumers can verify the typed fields.
type VotingEventData struct {
	ElectionID     string  `json:"election_id"`
	Sequence       uint64  `json:"sequence"`
	Kind           string  `json:"kind"`
	PreviousStatus *uint8  `json:"previous_status,omitempty"`
	NewStatus      *uint8  `json:"new_status,omitempty"`
	Voter          string  `json:"voter,omitempty"`
	ProposalID     *uint64 `json:"proposal_id,omitempty"`
	LogTopic       string  `json:"log_topic"`
	LogData        string  `json:"log_data"`
	OccurredAt     string  `json:"occurred_at"`
}
