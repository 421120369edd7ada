package commands

import (
	"context"
	"log/slog"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	"civitas/contexts/governance/voting-workflow/domain/services"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
)

type AdvanceWorkflowCommand struct {
	ElectionID     string
	Caller         common.Address
	Action         entities.WorkflowAction
	IdempotencyKey string
}

// WorkflowUseCase drives the owner-only stage transitions.
type WorkflowUseCase struct {
	Elections      ports.ElectionRepository
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Telemetry      ports.Telemetry
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Advance applies one transition from the workflow table and emits
// WorkflowStatusChange(previous, new). Tallying computes the winner in the
// same unit.
func (uc WorkflowUseCase) Advance(ctx context.Context, cmd AdvanceWorkflowCommand) (entities.Receipt, error) {
	return uc.runner().run(ctx, mutation{
		operation:      "workflow_advance",
		electionID:     cmd.ElectionID,
		caller:         cmd.Caller,
		idempotencyKey: cmd.IdempotencyKey,
		requestHash: hashRequest("workflow_advance", map[string]string{
			"election_id": cmd.ElectionID,
			"caller":      cmd.Caller.Hex(),
			"action":      string(cmd.Action),
		}),
		apply: func(ctx context.Context, tx *ledgerTx) error {
			if err := requireOwner(tx); err != nil {
				return err
			}
			transition, err := services.Advance(tx.election.Stage, cmd.Action)
			if err != nil {
				return err
			}
			if transition.To == entities.StageVotesTallied {
				proposals, err := tx.ledger.ListProposals(ctx, tx.election.ElectionID)
				if err != nil {
					return err
				}
				tx.election.WinningProposalID = services.SelectWinner(proposals)
			}
			tx.election.Stage = transition.To
			return tx.emit(services.NewWorkflowStatusChange(
				tx.election.ElectionID,
				transition.From,
				transition.To,
				tx.now,
			))
		},
	})
}

func (uc WorkflowUseCase) StartProposalsRegistering(ctx context.Context, electionID string, caller common.Address) (entities.Receipt, error) {
	return uc.Advance(ctx, AdvanceWorkflowCommand{ElectionID: electionID, Caller: caller, Action: entities.ActionStartProposalsRegistering})
}

func (uc WorkflowUseCase) EndProposalsRegistering(ctx context.Context, electionID string, caller common.Address) (entities.Receipt, error) {
	return uc.Advance(ctx, AdvanceWorkflowCommand{ElectionID: electionID, Caller: caller, Action: entities.ActionEndProposalsRegistering})
}

func (uc WorkflowUseCase) StartVotingSession(ctx context.Context, electionID string, caller common.Address) (entities.Receipt, error) {
	return uc.Advance(ctx, AdvanceWorkflowCommand{ElectionID: electionID, Caller: caller, Action: entities.ActionStartVotingSession})
}

func (uc WorkflowUseCase) EndVotingSession(ctx context.Context, electionID string, caller common.Address) (entities.Receipt, error) {
	return uc.Advance(ctx, AdvanceWorkflowCommand{ElectionID: electionID, Caller: caller, Action: entities.ActionEndVotingSession})
}

func (uc WorkflowUseCase) TallyVotes(ctx context.Context, electionID string, caller common.Address) (entities.Receipt, error) {
	return uc.Advance(ctx, AdvanceWorkflowCommand{ElectionID: electionID, Caller: caller, Action: entities.ActionTallyVotes})
}

func (uc WorkflowUseCase) runner() runner {
	return runner{
		elections:      uc.Elections,
		clock:          uc.Clock,
		idGen:          uc.IDGen,
		telemetry:      uc.Telemetry,
		idempotencyTTL: uc.IdempotencyTTL,
		logger:         uc.Logger,
	}
}
