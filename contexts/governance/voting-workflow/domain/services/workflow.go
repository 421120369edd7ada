package services

import (
	"strings"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
)

// Transition is one row of the workflow table. Each action has exactly one
// source stage; calling it from any other stage fails with Rejection.
type Transition struct {
	Action    entities.WorkflowAction
	From      entities.Stage
	To        entities.Stage
	Rejection error
}

var transitionTable = []Transition{
	{
		Action:    entities.ActionStartProposalsRegistering,
		From:      entities.StageRegisteringVoters,
		To:        entities.StageProposalsRegistrationStarted,
		Rejection: domainerrors.ErrCannotStartProposals,
	},
	{
		Action:    entities.ActionEndProposalsRegistering,
		From:      entities.StageProposalsRegistrationStarted,
		To:        entities.StageProposalsRegistrationEnded,
		Rejection: domainerrors.ErrProposalsNotStarted,
	},
	{
		Action:    entities.ActionStartVotingSession,
		From:      entities.StageProposalsRegistrationEnded,
		To:        entities.StageVotingSessionStarted,
		Rejection: domainerrors.ErrProposalsNotFinished,
	},
	{
		Action:    entities.ActionEndVotingSession,
		From:      entities.StageVotingSessionStarted,
		To:        entities.StageVotingSessionEnded,
		Rejection: domainerrors.ErrVotingNotStarted,
	},
	{
		Action:    entities.ActionTallyVotes,
		From:      entities.StageVotingSessionEnded,
		To:        entities.StageVotesTallied,
		Rejection: domainerrors.ErrVotingSessionNotEnded,
	},
}

var transitionsByAction = indexTransitions(transitionTable)

func indexTransitions(table []Transition) map[entities.WorkflowAction]Transition {
	index := make(map[entities.WorkflowAction]Transition, len(table))
	for _, transition := range table {
		index[transition.Action] = transition
	}
	return index
}

// Transitions returns the workflow table in stage order.
func Transitions() []Transition {
	return append([]Transition(nil), transitionTable...)
}

// Advance validates action against the current stage and returns the
// transition to apply.
func Advance(current entities.Stage, action entities.WorkflowAction) (Transition, error) {
	transition, ok := transitionsByAction[action]
	if !ok {
		return Transition{}, domainerrors.ErrUnknownWorkflowAction
	}
	if current != transition.From {
		return Transition{}, transition.Rejection
	}
	return transition, nil
}

func ParseAction(value string) (entities.WorkflowAction, error) {
	action := entities.WorkflowAction(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := transitionsByAction[action]; !ok {
		return "", domainerrors.ErrUnknownWorkflowAction
	}
	return action, nil
}

// RequireStage gates an operation on the exact stage it is permitted in.
func RequireStage(current entities.Stage, permitted entities.Stage, rejection error) error {
	if current != permitted {
		return rejection
	}
	return nil
}
