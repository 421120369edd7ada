package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is the workflow status of an election. The numeric values are part of
// the emitted event data and must not be reordered.
type Stage uint8

const (
	StageRegisteringVoters Stage = iota
	StageProposalsRegistrationStarted
	StageProposalsRegistrationEnded
	StageVotingSessionStarted
	StageVotingSessionEnded
	StageVotesTallied
)

var stageNames = [...]string{
	StageRegisteringVoters:            "RegisteringVoters",
	StageProposalsRegistrationStarted: "ProposalsRegistrationStarted",
	StageProposalsRegistrationEnded:   "ProposalsRegistrationEnded",
	StageVotingSessionStarted:         "VotingSessionStarted",
	StageVotingSessionEnded:           "VotingSessionEnded",
	StageVotesTallied:                 "VotesTallied",
}

func (s Stage) Valid() bool {
	return int(s) < len(stageNames)
}

func (s Stage) String() string {
	if !s.Valid() {
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// ParseStage accepts either the stage name (case-insensitive) or its numeric
// value.
func ParseStage(value string) (Stage, error) {
	value = strings.TrimSpace(value)
	if n, err := strconv.ParseUint(value, 10, 8); err == nil {
		stage := Stage(n)
		if !stage.Valid() {
			return 0, fmt.Errorf("unknown stage %q", value)
		}
		return stage, nil
	}
	for i, name := range stageNames {
		if strings.EqualFold(name, value) {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", value)
}

// WorkflowAction names an owner-invoked stage transition.
type WorkflowAction string

const (
	ActionStartProposalsRegistering WorkflowAction = "start-proposals-registering"
	ActionEndProposalsRegistering   WorkflowAction = "end-proposals-registering"
	ActionStartVotingSession        WorkflowAction = "start-voting-session"
	ActionEndVotingSession          WorkflowAction = "end-voting-session"
	ActionTallyVotes                WorkflowAction = "tally-votes"
)
