package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventWorkflowStatusChange EventKind = "WorkflowStatusChange"
	EventVoterRegistered      EventKind = "VoterRegistered"
	EventProposalRegistered   EventKind = "ProposalRegistered"
	EventVoted                EventKind = "Voted"
)

// Event is one entry of an election's event log. Topic and Data hold the
// ABI log encoding of the typed arguments.
type Event struct {
	ElectionID     string
	Sequence       uint64
	Kind           EventKind
	PreviousStatus Stage
	NewStatus      Stage
	Voter          common.Address
	ProposalID     uint64
	Topic          common.Hash
	Data           []byte
	OccurredAt     time.Time
}
