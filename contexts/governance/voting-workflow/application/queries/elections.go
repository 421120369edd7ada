package queries

import (
	"context"
	"sort"
	"strings"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
)

type ElectionQueries struct {
	Elections ports.ElectionReader
}

func (uc ElectionQueries) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.Election{}, domainerrors.ErrInvalidInput
	}
	return uc.Elections.GetElection(ctx, electionID)
}

func (uc ElectionQueries) WorkflowStatus(ctx context.Context, electionID string) (entities.Stage, error) {
	election, err := uc.GetElection(ctx, electionID)
	if err != nil {
		return 0, err
	}
	return election.Stage, nil
}

// GetVoter returns the registry record of address. Unregistered accounts
// read as a record with IsRegistered=false, not as an error.
func (uc ElectionQueries) GetVoter(ctx context.Context, electionID string, address common.Address) (entities.Voter, error) {
	election, err := uc.GetElection(ctx, electionID)
	if err != nil {
		return entities.Voter{}, err
	}
	voter, found, err := uc.Elections.GetVoter(ctx, election.ElectionID, address)
	if err != nil {
		return entities.Voter{}, err
	}
	if !found {
		return entities.Voter{ElectionID: election.ElectionID, Address: address}, nil
	}
	return voter, nil
}

func (uc ElectionQueries) GetOneProposal(ctx context.Context, electionID string, proposalID uint64) (entities.Proposal, error) {
	election, err := uc.GetElection(ctx, electionID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if proposalID == 0 {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	proposal, found, err := uc.Elections.GetProposal(ctx, election.ElectionID, proposalID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if !found {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (uc ElectionQueries) ListProposals(ctx context.Context, electionID string) ([]entities.Proposal, error) {
	election, err := uc.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	proposals, err := uc.Elections.ListProposals(ctx, election.ElectionID)
	if err != nil {
		return nil, err
	}
	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].ProposalID < proposals[j].ProposalID
	})
	return proposals, nil
}

// GetWinner is readable once the election is tallied.
func (uc ElectionQueries) GetWinner(ctx context.Context, electionID string) (entities.Winner, error) {
	election, err := uc.GetElection(ctx, electionID)
	if err != nil {
		return entities.Winner{}, err
	}
	if election.Stage != entities.StageVotesTallied {
		return entities.Winner{}, domainerrors.ErrVotesNotTallied
	}
	winner := entities.Winner{
		ElectionID: election.ElectionID,
		ProposalID: election.WinningProposalID,
	}
	if election.WinningProposalID == 0 {
		return winner, nil
	}
	proposal, found, err := uc.Elections.GetProposal(ctx, election.ElectionID, election.WinningProposalID)
	if err != nil {
		return entities.Winner{}, err
	}
	if found {
		winner.Proposal = &proposal
	}
	return winner, nil
}

// ListEvents returns the election's event log in emission order, optionally
// filtered by kind.
func (uc ElectionQueries) ListEvents(ctx context.Context, electionID string, kind entities.EventKind) ([]entities.Event, error) {
	election, err := uc.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	events, err := uc.Elections.ListEvents(ctx, election.ElectionID)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Sequence < events[j].Sequence
	})
	if kind == "" {
		return events, nil
	}
	filtered := make([]entities.Event, 0, len(events))
	for _, event := range events {
		if event.Kind == kind {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}
