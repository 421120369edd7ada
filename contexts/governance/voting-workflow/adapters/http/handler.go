package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "civitas/contexts/governance/voting-workflow/application"
	"civitas/contexts/governance/voting-workflow/application/commands"
	"civitas/contexts/governance/voting-workflow/application/queries"
	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/domain/services"
	httptransport "civitas/contexts/governance/voting-workflow/transport/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type Handler struct {
	Elections commands.ElectionUseCase
	Workflow  commands.WorkflowUseCase
	Ballots   commands.BallotUseCase
	Queries   queries.ElectionQueries
	Logger    *slog.Logger
}

// DeployElectionHandler godoc
// @Summary Deploy an election
// @Description Creates a new election owned by the calling account, in stage RegisteringVoters.
// @Tags voting-workflow
// @Produce json
// @Param X-Account-Address header string true "Caller account address"
// @Param X-Signature header string false "Caller signature over the request digest"
// @Param X-Signed-At header string false "Unix seconds the signature was produced at"
// @Success 201 {object} httptransport.ElectionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections [post]
func (h Handler) DeployElectionHandler(ctx context.Context, caller common.Address) (httptransport.ElectionResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("deploy election request received",
		"event", "http_deploy_election_received",
		"module", "governance/voting-workflow",
		"layer", "transport",
		"caller", caller.Hex(),
	)
	election, err := h.Elections.Deploy(ctx, commands.DeployElectionCommand{Caller: caller})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

// GetElectionHandler godoc
// @Summary Get an election
// @Tags voting-workflow
// @Produce json
// @Param election_id path string true "Election id"
// @Success 200 {object} httptransport.ElectionResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id} [get]
func (h Handler) GetElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Queries.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

// WorkflowStatusHandler godoc
// @Summary Get the workflow status
// @Tags voting-workflow
// @Produce json
// @Param election_id path string true "Election id"
// @Success 200 {object} httptransport.WorkflowStatusResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/workflow-status [get]
func (h Handler) WorkflowStatusHandler(ctx context.Context, electionID string) (httptransport.WorkflowStatusResponse, error) {
	stage, err := h.Queries.WorkflowStatus(ctx, electionID)
	if err != nil {
		return httptransport.WorkflowStatusResponse{}, err
	}
	return httptransport.WorkflowStatusResponse{
		ElectionID: strings.TrimSpace(electionID),
		Stage:      uint8(stage),
		StageName:  stage.String(),
	}, nil
}

// AdvanceWorkflowHandler godoc
// @Summary Advance the workflow
// @Description Owner only. Applies one stage transition and emits WorkflowStatusChange.
// @Tags voting-workflow
// @Produce json
// @Param X-Account-Address header string true "Caller account address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param election_id path string true "Election id"
// @Param action path string true "start-proposals-registering, end-proposals-registering, start-voting-session, end-voting-session or tally-votes"
// @Success 200 {object} httptransport.ReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/workflow/{action} [post]
func (h Handler) AdvanceWorkflowHandler(
	ctx context.Context,
	electionID string,
	caller common.Address,
	action string,
	idempotencyKey string,
) (httptransport.ReceiptResponse, error) {
	receipt, err := h.Workflow.Advance(ctx, commands.AdvanceWorkflowCommand{
		ElectionID:     electionID,
		Caller:         caller,
		Action:         entities.WorkflowAction(strings.ToLower(strings.TrimSpace(action))),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ReceiptResponse{}, err
	}
	return mapReceipt(receipt), nil
}

// AddVoterHandler godoc
// @Summary Register a voter
// @Description Owner only, while registering voters.
// @Tags voting-workflow
// @Accept json
// @Produce json
// @Param X-Account-Address header string true "Caller account address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param election_id path string true "Election id"
// @Param request body httptransport.AddVoterRequest true "Voter payload"
// @Success 200 {object} httptransport.ReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/voters [post]
func (h Handler) AddVoterHandler(
	ctx context.Context,
	electionID string,
	caller common.Address,
	idempotencyKey string,
	req httptransport.AddVoterRequest,
) (httptransport.ReceiptResponse, error) {
	receipt, err := h.Ballots.AddVoter(ctx, commands.AddVoterCommand{
		ElectionID:     electionID,
		Caller:         caller,
		Voter:          parseAddress(req.Address),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ReceiptResponse{}, err
	}
	return mapReceipt(receipt), nil
}

// GetVoterHandler godoc
// @Summary Get a voter record
// @Description Unregistered accounts read as is_registered=false.
// @Tags voting-workflow
// @Produce json
// @Param election_id path string true "Election id"
// @Param address path string true "Voter address"
// @Success 200 {object} httptransport.VoterResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/voters/{address} [get]
func (h Handler) GetVoterHandler(ctx context.Context, electionID string, address string) (httptransport.VoterResponse, error) {
	if !common.IsHexAddress(strings.TrimSpace(address)) {
		return httptransport.VoterResponse{}, domainerrors.ErrInvalidVoterAddress
	}
	voter, err := h.Queries.GetVoter(ctx, electionID, common.HexToAddress(strings.TrimSpace(address)))
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		ElectionID:      voter.ElectionID,
		Address:         voter.Address.Hex(),
		IsRegistered:    voter.IsRegistered,
		HasVoted:        voter.HasVoted,
		VotedProposalID: voter.VotedProposalID,
	}, nil
}

// AddProposalHandler godoc
// @Summary Register a proposal
// @Description Registered voters only, while proposals registration is open.
// @Tags voting-workflow
// @Accept json
// @Produce json
// @Param X-Account-Address header string true "Caller account address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param election_id path string true "Election id"
// @Param request body httptransport.AddProposalRequest true "Proposal payload"
// @Success 200 {object} httptransport.ReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/proposals [post]
func (h Handler) AddProposalHandler(
	ctx context.Context,
	electionID string,
	caller common.Address,
	idempotencyKey string,
	req httptransport.AddProposalRequest,
) (httptransport.ReceiptResponse, error) {
	receipt, err := h.Ballots.AddProposal(ctx, commands.AddProposalCommand{
		ElectionID:     electionID,
		Caller:         caller,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ReceiptResponse{}, err
	}
	return mapReceipt(receipt), nil
}

// ListProposalsHandler godoc
// @Summary List proposals
// @Tags voting-workflow
// @Produce json
// @Param election_id path string true "Election id"
// @Success 200 {object} httptransport.ListProposalsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/proposals [get]
func (h Handler) ListProposalsHandler(ctx context.Context, electionID string) (httptransport.ListProposalsResponse, error) {
	proposals, err := h.Queries.ListProposals(ctx, electionID)
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, mapProposal(proposal))
	}
	return httptransport.ListProposalsResponse{Items: items}, nil
}

// GetProposalHandler godoc
// @Summary Get one proposal
// @Tags voting-workflow
// @Produce json
// @Param election_id path string true "Election id"
// @Param proposal_id path int true "Proposal id, starting at 1"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/proposals/{proposal_id} [get]
func (h Handler) GetProposalHandler(ctx context.Context, electionID string, proposalID uint64) (httptransport.ProposalResponse, error) {
	proposal, err := h.Queries.GetOneProposal(ctx, electionID, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// SetVoteHandler godoc
// @Summary Cast a vote
// @Description Registered voters only, once, while the voting session is open.
// @Tags voting-workflow
// @Accept json
// @Produce json
// @Param X-Account-Address header string true "Caller account address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param election_id path string true "Election id"
// @Param request body httptransport.SetVoteRequest true "Vote payload"
// @Success 200 {object} httptransport.ReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/votes [post]
func (h Handler) SetVoteHandler(
	ctx context.Context,
	electionID string,
	caller common.Address,
	idempotencyKey string,
	req httptransport.SetVoteRequest,
) (httptransport.ReceiptResponse, error) {
	receipt, err := h.Ballots.SetVote(ctx, commands.SetVoteCommand{
		ElectionID:     electionID,
		Caller:         caller,
		ProposalID:     req.ProposalID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ReceiptResponse{}, err
	}
	return mapReceipt(receipt), nil
}

// WinnerHandler godoc
// @Summary Get the winning proposal
// @Description Readable once votes are tallied. proposal_id 0 means no votes were cast.
// @Tags voting-workflow
// @Produce json
// @Param election_id path string true "Election id"
// @Success 200 {object} httptransport.WinnerResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/winner [get]
func (h Handler) WinnerHandler(ctx context.Context, electionID string) (httptransport.WinnerResponse, error) {
	winner, err := h.Queries.GetWinner(ctx, electionID)
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	resp := httptransport.WinnerResponse{
		ElectionID: winner.ElectionID,
		ProposalID: winner.ProposalID,
	}
	if winner.Proposal != nil {
		proposal := mapProposal(*winner.Proposal)
		resp.Proposal = &proposal
	}
	return resp, nil
}

// ListEventsHandler godoc
// @Summary List the event log
// @Description Events in emission order, optionally filtered by kind.
// @Tags voting-workflow
// @Produce json
// @Param election_id path string true "Election id"
// @Param kind query string false "WorkflowStatusChange, VoterRegistered, ProposalRegistered or Voted"
// @Success 200 {object} httptransport.ListEventsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/events [get]
func (h Handler) ListEventsHandler(ctx context.Context, electionID string, kind string) (httptransport.ListEventsResponse, error) {
	filter := entities.EventKind(strings.TrimSpace(kind))
	if filter != "" {
		if _, ok := services.EventTopic(filter); !ok {
			return httptransport.ListEventsResponse{}, domainerrors.ErrInvalidInput
		}
	}
	events, err := h.Queries.ListEvents(ctx, electionID, filter)
	if err != nil {
		return httptransport.ListEventsResponse{}, err
	}
	return httptransport.ListEventsResponse{Items: mapEvents(events)}, nil
}

// parseAddress maps malformed input to the zero address, which the use case
// rejects with the validation revert after its owner and stage checks.
func parseAddress(value string) common.Address {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}
	}
	return common.HexToAddress(value)
}

func mapElection(election entities.Election) httptransport.ElectionResponse {
	return httptransport.ElectionResponse{
		ElectionID:        election.ElectionID,
		Owner:             election.Owner.Hex(),
		Stage:             uint8(election.Stage),
		StageName:         election.Stage.String(),
		ProposalCount:     election.ProposalCount,
		WinningProposalID: election.WinningProposalID,
		CreatedAt:         election.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         election.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	return httptransport.ProposalResponse{
		ElectionID:  proposal.ElectionID,
		ProposalID:  proposal.ProposalID,
		Description: proposal.Description,
		VoteCount:   proposal.VoteCount,
	}
}

func mapReceipt(receipt entities.Receipt) httptransport.ReceiptResponse {
	return httptransport.ReceiptResponse{
		ElectionID: receipt.ElectionID,
		Stage:      uint8(receipt.Stage),
		StageName:  receipt.Stage.String(),
		Events:     mapEvents(receipt.Events),
	}
}

func mapEvents(events []entities.Event) []httptransport.EventResponse {
	items := make([]httptransport.EventResponse, 0, len(events))
	for _, event := range events {
		item := httptransport.EventResponse{
			Sequence:   event.Sequence,
			Kind:       string(event.Kind),
			Topic:      event.Topic.Hex(),
			Data:       hexutil.Encode(event.Data),
			OccurredAt: event.OccurredAt.UTC().Format(time.RFC3339Nano),
		}
		switch event.Kind {
		case entities.EventWorkflowStatusChange:
			previous, next := uint8(event.PreviousStatus), uint8(event.NewStatus)
			item.PreviousStatus = &previous
			item.NewStatus = &next
		case entities.EventVoterRegistered:
			item.Voter = event.Voter.Hex()
		case entities.EventProposalRegistered:
			proposalID := event.ProposalID
			item.ProposalID = &proposalID
		case entities.EventVoted:
			proposalID := event.ProposalID
			item.Voter = event.Voter.Hex()
			item.ProposalID = &proposalID
		}
		items = append(items, item)
	}
	return items
}
