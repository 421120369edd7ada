package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Election is one hosted voting contract instance.
type Election struct {
	ElectionID        string
	Owner             common.Address
	Stage             Stage
	ProposalCount     uint64
	EventCount        uint64
	WinningProposalID uint64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (e Election) IsOwner(account common.Address) bool {
	return e.Owner == account
}

// Voter is the registry record of one account. The zero value is what an
// unregistered account reads as.
type Voter struct {
	ElectionID      string
	Address         common.Address
	IsRegistered    bool
	HasVoted        bool
	VotedProposalID uint64
	RegisteredAt    time.Time
	VotedAt         *time.Time
}

type Proposal struct {
	ElectionID  string
	ProposalID  uint64
	Description string
	VoteCount   uint64
	Proposer    common.Address
	CreatedAt   time.Time
}

// Winner is the tally outcome. ProposalID 0 means no proposal received a vote.
type Winner struct {
	ElectionID string
	ProposalID uint64
	Proposal   *Proposal
}

// Receipt is what a successful mutating call returns: the events it emitted
// in order and the stage the election is left in.
type Receipt struct {
	ElectionID string
	Stage      Stage
	Events     []Event
}
