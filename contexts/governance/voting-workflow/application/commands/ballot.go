package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/domain/services"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
)

type AddVoterCommand struct {
	ElectionID     string
	Caller         common.Address
	Voter          common.Address
	IdempotencyKey string
}

type AddProposalCommand struct {
	ElectionID     string
	Caller         common.Address
	Description    string
	IdempotencyKey string
}

type SetVoteCommand struct {
	ElectionID     string
	Caller         common.Address
	ProposalID     uint64
	IdempotencyKey string
}

// BallotUseCase owns the voter registry and the proposal/vote ledger.
type BallotUseCase struct {
	Elections      ports.ElectionRepository
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Telemetry      ports.Telemetry
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// AddVoter registers an account. Owner only, RegisteringVoters only.
func (uc BallotUseCase) AddVoter(ctx context.Context, cmd AddVoterCommand) (entities.Receipt, error) {
	return uc.runner().run(ctx, mutation{
		operation:      "voter_register",
		electionID:     cmd.ElectionID,
		caller:         cmd.Caller,
		idempotencyKey: cmd.IdempotencyKey,
		requestHash: hashRequest("voter_register", map[string]string{
			"election_id": cmd.ElectionID,
			"caller":      cmd.Caller.Hex(),
			"voter":       cmd.Voter.Hex(),
		}),
		apply: func(ctx context.Context, tx *ledgerTx) error {
			if err := requireOwner(tx); err != nil {
				return err
			}
			if err := services.RequireStage(
				tx.election.Stage,
				entities.StageRegisteringVoters,
				domainerrors.ErrVoterRegistrationClosed,
			); err != nil {
				return err
			}
			if cmd.Voter == (common.Address{}) {
				return domainerrors.ErrInvalidVoterAddress
			}
			existing, found, err := tx.ledger.GetVoter(ctx, tx.election.ElectionID, cmd.Voter)
			if err != nil {
				return err
			}
			if found && existing.IsRegistered {
				return domainerrors.ErrAlreadyRegistered
			}
			if err := tx.ledger.SaveVoter(ctx, entities.Voter{
				ElectionID:   tx.election.ElectionID,
				Address:      cmd.Voter,
				IsRegistered: true,
				RegisteredAt: tx.now,
			}); err != nil {
				return err
			}
			return tx.emit(services.NewVoterRegistered(tx.election.ElectionID, cmd.Voter, tx.now))
		},
	})
}

// AddProposal stores a proposal under the next sequential id, starting at 1.
func (uc BallotUseCase) AddProposal(ctx context.Context, cmd AddProposalCommand) (entities.Receipt, error) {
	return uc.runner().run(ctx, mutation{
		operation:      "proposal_register",
		electionID:     cmd.ElectionID,
		caller:         cmd.Caller,
		idempotencyKey: cmd.IdempotencyKey,
		requestHash: hashRequest("proposal_register", map[string]string{
			"election_id": cmd.ElectionID,
			"caller":      cmd.Caller.Hex(),
			"description": cmd.Description,
		}),
		apply: func(ctx context.Context, tx *ledgerTx) error {
			if err := services.RequireStage(
				tx.election.Stage,
				entities.StageProposalsRegistrationStarted,
				domainerrors.ErrProposalsNotAllowed,
			); err != nil {
				return err
			}
			if _, err := requireVoter(ctx, tx); err != nil {
				return err
			}
			description := strings.TrimSpace(cmd.Description)
			if description == "" {
				return domainerrors.ErrEmptyProposal
			}

			proposalID := tx.election.ProposalCount + 1
			if err := tx.ledger.SaveProposal(ctx, entities.Proposal{
				ElectionID:  tx.election.ElectionID,
				ProposalID:  proposalID,
				Description: description,
				Proposer:    tx.caller,
				CreatedAt:   tx.now,
			}); err != nil {
				return err
			}
			tx.election.ProposalCount = proposalID
			return tx.emit(services.NewProposalRegistered(tx.election.ElectionID, proposalID, tx.now))
		},
	})
}

// SetVote records the caller's single vote.
func (uc BallotUseCase) SetVote(ctx context.Context, cmd SetVoteCommand) (entities.Receipt, error) {
	return uc.runner().run(ctx, mutation{
		operation:      "vote_cast",
		electionID:     cmd.ElectionID,
		caller:         cmd.Caller,
		idempotencyKey: cmd.IdempotencyKey,
		requestHash: hashRequest("vote_cast", map[string]string{
			"election_id": cmd.ElectionID,
			"caller":      cmd.Caller.Hex(),
			"proposal_id": strconv.FormatUint(cmd.ProposalID, 10),
		}),
		apply: func(ctx context.Context, tx *ledgerTx) error {
			if err := services.RequireStage(
				tx.election.Stage,
				entities.StageVotingSessionStarted,
				domainerrors.ErrVotingNotStarted,
			); err != nil {
				return err
			}
			voter, err := requireVoter(ctx, tx)
			if err != nil {
				return err
			}
			if voter.HasVoted {
				return domainerrors.ErrAlreadyVoted
			}
			if cmd.ProposalID == 0 {
				return domainerrors.ErrProposalNotFound
			}
			proposal, found, err := tx.ledger.GetProposal(ctx, tx.election.ElectionID, cmd.ProposalID)
			if err != nil {
				return err
			}
			if !found {
				return domainerrors.ErrProposalNotFound
			}

			votedAt := tx.now
			voter.HasVoted = true
			voter.VotedProposalID = proposal.ProposalID
			voter.VotedAt = &votedAt
			proposal.VoteCount++
			if err := tx.ledger.SaveVoter(ctx, voter); err != nil {
				return err
			}
			if err := tx.ledger.SaveProposal(ctx, proposal); err != nil {
				return err
			}
			return tx.emit(services.NewVoted(tx.election.ElectionID, voter.Address, proposal.ProposalID, tx.now))
		},
	})
}

func (uc BallotUseCase) runner() runner {
	return runner{
		elections:      uc.Elections,
		clock:          uc.Clock,
		idGen:          uc.IDGen,
		telemetry:      uc.Telemetry,
		idempotencyTTL: uc.IdempotencyTTL,
		logger:         uc.Logger,
	}
}
