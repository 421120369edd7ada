package commands_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"civitas/contexts/governance/voting-workflow/adapters/memory"
	"civitas/contexts/governance/voting-workflow/application/commands"
	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	voter1   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	voter2   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	store      *memory.Store
	workflow   commands.WorkflowUseCase
	ballots    commands.BallotUseCase
	electionID string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore(nil)
	store.SetClock(func() time.Time { return fixedNow })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	election, err := commands.ElectionUseCase{
		Elections: store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	}.Deploy(context.Background(), commands.DeployElectionCommand{Caller: owner})
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}

	return fixture{
		store: store,
		workflow: commands.WorkflowUseCase{
			Elections:      store,
			Clock:          store,
			IDGen:          store,
			IdempotencyTTL: time.Hour,
			Logger:         logger,
		},
		ballots: commands.BallotUseCase{
			Elections:      store,
			Clock:          store,
			IDGen:          store,
			IdempotencyTTL: time.Hour,
			Logger:         logger,
		},
		electionID: election.ElectionID,
	}
}

func (f fixture) stage(t *testing.T) entities.Stage {
	t.Helper()
	election, err := f.store.GetElection(context.Background(), f.electionID)
	if err != nil {
		t.Fatalf("get election failed: %v", err)
	}
	return election.Stage
}

func (f fixture) eventCount(t *testing.T) int {
	t.Helper()
	events, err := f.store.ListEvents(context.Background(), f.electionID)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	return len(events)
}

func (f fixture) addVoter(t *testing.T, voter common.Address) {
	t.Helper()
	if _, err := f.ballots.AddVoter(context.Background(), commands.AddVoterCommand{
		ElectionID: f.electionID,
		Caller:     owner,
		Voter:      voter,
	}); err != nil {
		t.Fatalf("add voter %s failed: %v", voter.Hex(), err)
	}
}

func (f fixture) addProposal(t *testing.T, caller common.Address, description string) entities.Receipt {
	t.Helper()
	receipt, err := f.ballots.AddProposal(context.Background(), commands.AddProposalCommand{
		ElectionID:  f.electionID,
		Caller:      caller,
		Description: description,
	})
	if err != nil {
		t.Fatalf("add proposal %q failed: %v", description, err)
	}
	return receipt
}

func (f fixture) vote(caller common.Address, proposalID uint64) (entities.Receipt, error) {
	return f.ballots.SetVote(context.Background(), commands.SetVoteCommand{
		ElectionID: f.electionID,
		Caller:     caller,
		ProposalID: proposalID,
	})
}

func (f fixture) advance(caller common.Address, action entities.WorkflowAction) (entities.Receipt, error) {
	return f.workflow.Advance(context.Background(), commands.AdvanceWorkflowCommand{
		ElectionID: f.electionID,
		Caller:     caller,
		Action:     action,
	})
}

var actionsInOrder = []entities.WorkflowAction{
	entities.ActionStartProposalsRegistering,
	entities.ActionEndProposalsRegistering,
	entities.ActionStartVotingSession,
	entities.ActionEndVotingSession,
	entities.ActionTallyVotes,
}

// advanceTo moves the election forward by owner calls until it reaches target.
func (f fixture) advanceTo(t *testing.T, target entities.Stage) {
	t.Helper()
	for f.stage(t) < target {
		if _, err := f.advance(owner, actionsInOrder[f.stage(t)]); err != nil {
			t.Fatalf("advance from %s failed: %v", f.stage(t), err)
		}
	}
}

func TestVotingScenarioFromRegistrationToDoubleVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addVoter(t, voter1)
	f.addVoter(t, voter2)
	if _, err := f.advance(owner, entities.ActionStartProposalsRegistering); err != nil {
		t.Fatalf("start proposals failed: %v", err)
	}

	receipt := f.addProposal(t, voter1, "p1")
	if len(receipt.Events) != 1 || receipt.Events[0].Kind != entities.EventProposalRegistered || receipt.Events[0].ProposalID != 1 {
		t.Fatalf("expected ProposalRegistered(1), got %+v", receipt.Events)
	}
	receipt = f.addProposal(t, voter2, "p2")
	if receipt.Events[0].ProposalID != 2 {
		t.Fatalf("expected proposal id 2, got %d", receipt.Events[0].ProposalID)
	}

	if _, err := f.advance(owner, entities.ActionEndProposalsRegistering); err != nil {
		t.Fatalf("end proposals failed: %v", err)
	}
	if _, err := f.advance(owner, entities.ActionStartVotingSession); err != nil {
		t.Fatalf("start voting failed: %v", err)
	}

	receipt, err := f.vote(voter1, 1)
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	voted := receipt.Events[0]
	if voted.Kind != entities.EventVoted || voted.Voter != voter1 || voted.ProposalID != 1 {
		t.Fatalf("expected Voted(voter1, 1), got %+v", voted)
	}

	proposal, found, err := f.store.GetProposal(ctx, f.electionID, 1)
	if err != nil || !found {
		t.Fatalf("expected proposal 1, found=%v err=%v", found, err)
	}
	if proposal.VoteCount != 1 || proposal.Description != "p1" {
		t.Fatalf("unexpected proposal %+v", proposal)
	}
	voter, _, _ := f.store.GetVoter(ctx, f.electionID, voter1)
	if !voter.HasVoted || voter.VotedProposalID != 1 {
		t.Fatalf("unexpected voter record %+v", voter)
	}

	if _, err := f.vote(voter1, 1); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrAlreadyVoted.Reason, err)
	}
	proposal, _, _ = f.store.GetProposal(ctx, f.electionID, 1)
	if proposal.VoteCount != 1 {
		t.Fatalf("expected vote count to stay 1, got %d", proposal.VoteCount)
	}
}

func TestWorkflowTransitionsEmitStatusChangesInOrder(t *testing.T) {
	f := newFixture(t)

	for i, action := range actionsInOrder {
		receipt, err := f.advance(owner, action)
		if err != nil {
			t.Fatalf("%s failed: %v", action, err)
		}
		if len(receipt.Events) != 1 {
			t.Fatalf("%s: expected one event, got %d", action, len(receipt.Events))
		}
		event := receipt.Events[0]
		if event.Kind != entities.EventWorkflowStatusChange {
			t.Fatalf("%s: expected WorkflowStatusChange, got %s", action, event.Kind)
		}
		if event.PreviousStatus != entities.Stage(i) || event.NewStatus != entities.Stage(i+1) {
			t.Fatalf("%s: expected change(%d,%d), got change(%d,%d)", action, i, i+1, event.PreviousStatus, event.NewStatus)
		}
		if receipt.Stage != entities.Stage(i+1) {
			t.Fatalf("%s: expected receipt stage %d, got %d", action, i+1, receipt.Stage)
		}
	}

	events, _ := f.store.ListEvents(context.Background(), f.electionID)
	for i, event := range events {
		if event.Sequence != uint64(i+1) {
			t.Fatalf("expected sequence %d, got %d", i+1, event.Sequence)
		}
	}
}

func TestOnlyOwnerCanAdvanceWorkflow(t *testing.T) {
	f := newFixture(t)

	for _, action := range actionsInOrder {
		before := f.stage(t)
		if _, err := f.advance(stranger, action); !errors.Is(err, domainerrors.ErrCallerNotOwner) {
			t.Fatalf("%s by stranger: expected %q, got %v", action, domainerrors.ErrCallerNotOwner.Reason, err)
		}
		if f.stage(t) != before {
			t.Fatalf("%s by stranger changed stage to %s", action, f.stage(t))
		}
		if _, err := f.advance(owner, action); err != nil {
			t.Fatalf("%s by owner failed: %v", action, err)
		}
	}
	if f.stage(t) != entities.StageVotesTallied {
		t.Fatalf("expected VotesTallied, got %s", f.stage(t))
	}
}

func TestOutOfOrderTransitionsRevert(t *testing.T) {
	testCases := []struct {
		from   entities.Stage
		action entities.WorkflowAction
		want   error
	}{
		{entities.StageRegisteringVoters, entities.ActionEndProposalsRegistering, domainerrors.ErrProposalsNotStarted},
		{entities.StageRegisteringVoters, entities.ActionStartVotingSession, domainerrors.ErrProposalsNotFinished},
		{entities.StageRegisteringVoters, entities.ActionEndVotingSession, domainerrors.ErrVotingNotStarted},
		{entities.StageRegisteringVoters, entities.ActionTallyVotes, domainerrors.ErrVotingSessionNotEnded},
		{entities.StageProposalsRegistrationStarted, entities.ActionStartProposalsRegistering, domainerrors.ErrCannotStartProposals},
		{entities.StageVotingSessionStarted, entities.ActionTallyVotes, domainerrors.ErrVotingSessionNotEnded},
		{entities.StageVotesTallied, entities.ActionStartProposalsRegistering, domainerrors.ErrCannotStartProposals},
		{entities.StageVotesTallied, entities.ActionTallyVotes, domainerrors.ErrVotingSessionNotEnded},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s from %s", tc.action, tc.from), func(t *testing.T) {
			f := newFixture(t)
			f.advanceTo(t, tc.from)
			events := f.eventCount(t)

			if _, err := f.advance(owner, tc.action); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if f.stage(t) != tc.from {
				t.Fatalf("expected stage to stay %s, got %s", tc.from, f.stage(t))
			}
			if f.eventCount(t) != events {
				t.Fatalf("expected no event from a reverted transition")
			}
		})
	}
}

func TestUnknownWorkflowActionReverts(t *testing.T) {
	f := newFixture(t)
	if _, err := f.advance(owner, "reopen"); !errors.Is(err, domainerrors.ErrUnknownWorkflowAction) {
		t.Fatalf("expected unknown action revert, got %v", err)
	}
	if _, err := f.advance(stranger, "reopen"); !errors.Is(err, domainerrors.ErrCallerNotOwner) {
		t.Fatalf("expected owner check first, got %v", err)
	}
}

func TestAddVoterRegistersAndEmits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.ballots.AddVoter(ctx, commands.AddVoterCommand{
		ElectionID: f.electionID,
		Caller:     owner,
		Voter:      voter1,
	})
	if err != nil {
		t.Fatalf("add voter failed: %v", err)
	}
	if len(receipt.Events) != 1 || receipt.Events[0].Kind != entities.EventVoterRegistered || receipt.Events[0].Voter != voter1 {
		t.Fatalf("expected VoterRegistered(voter1), got %+v", receipt.Events)
	}
	voter, found, _ := f.store.GetVoter(ctx, f.electionID, voter1)
	if !found || !voter.IsRegistered || voter.HasVoted || voter.VotedProposalID != 0 {
		t.Fatalf("unexpected voter record %+v", voter)
	}

	if _, err := f.ballots.AddVoter(ctx, commands.AddVoterCommand{
		ElectionID: f.electionID,
		Caller:     owner,
		Voter:      voter1,
	}); !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrAlreadyRegistered.Reason, err)
	}
}

func TestAddVoterGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ballots.AddVoter(ctx, commands.AddVoterCommand{
		ElectionID: f.electionID,
		Caller:     stranger,
		Voter:      voter1,
	}); !errors.Is(err, domainerrors.ErrCallerNotOwner) {
		t.Fatalf("expected owner revert, got %v", err)
	}
	if _, err := f.ballots.AddVoter(ctx, commands.AddVoterCommand{
		ElectionID: f.electionID,
		Caller:     owner,
	}); !errors.Is(err, domainerrors.ErrInvalidVoterAddress) {
		t.Fatalf("expected invalid address revert, got %v", err)
	}
	if f.eventCount(t) != 0 {
		t.Fatalf("expected reverted calls to emit nothing")
	}
}

func TestAddVoterRejectedOutsideRegistration(t *testing.T) {
	for stage := entities.StageProposalsRegistrationStarted; stage <= entities.StageVotesTallied; stage++ {
		t.Run(stage.String(), func(t *testing.T) {
			f := newFixture(t)
			f.advanceTo(t, stage)
			_, err := f.ballots.AddVoter(context.Background(), commands.AddVoterCommand{
				ElectionID: f.electionID,
				Caller:     owner,
				Voter:      voter1,
			})
			if !errors.Is(err, domainerrors.ErrVoterRegistrationClosed) {
				t.Fatalf("expected %q, got %v", domainerrors.ErrVoterRegistrationClosed.Reason, err)
			}
			if _, found, _ := f.store.GetVoter(context.Background(), f.electionID, voter1); found {
				t.Fatalf("expected voter not to be stored")
			}
		})
	}
}

func TestAddProposalGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addVoter(t, voter1)

	propose := func(caller common.Address, description string) error {
		_, err := f.ballots.AddProposal(ctx, commands.AddProposalCommand{
			ElectionID:  f.electionID,
			Caller:      caller,
			Description: description,
		})
		return err
	}

	if err := propose(voter1, "early"); !errors.Is(err, domainerrors.ErrProposalsNotAllowed) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrProposalsNotAllowed.Reason, err)
	}
	f.advanceTo(t, entities.StageProposalsRegistrationStarted)

	if err := propose(stranger, "outsider"); !errors.Is(err, domainerrors.ErrNotVoter) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrNotVoter.Reason, err)
	}
	if err := propose(voter1, "   "); !errors.Is(err, domainerrors.ErrEmptyProposal) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrEmptyProposal.Reason, err)
	}

	for i := 1; i <= 3; i++ {
		receipt := f.addProposal(t, voter1, fmt.Sprintf("proposal %d", i))
		if receipt.Events[0].ProposalID != uint64(i) {
			t.Fatalf("expected id %d, got %d", i, receipt.Events[0].ProposalID)
		}
	}

	f.advanceTo(t, entities.StageProposalsRegistrationEnded)
	if err := propose(voter1, "late"); !errors.Is(err, domainerrors.ErrProposalsNotAllowed) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrProposalsNotAllowed.Reason, err)
	}
	proposals, _ := f.store.ListProposals(ctx, f.electionID)
	if len(proposals) != 3 {
		t.Fatalf("expected 3 proposals, got %d", len(proposals))
	}
}

func TestSetVoteGuards(t *testing.T) {
	f := newFixture(t)
	f.addVoter(t, voter1)
	f.advanceTo(t, entities.StageProposalsRegistrationStarted)
	f.addProposal(t, voter1, "p1")

	if _, err := f.vote(voter1, 1); !errors.Is(err, domainerrors.ErrVotingNotStarted) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrVotingNotStarted.Reason, err)
	}
	f.advanceTo(t, entities.StageVotingSessionStarted)

	if _, err := f.vote(stranger, 1); !errors.Is(err, domainerrors.ErrNotVoter) {
		t.Fatalf("expected %q, got %v", domainerrors.ErrNotVoter.Reason, err)
	}
	for _, proposalID := range []uint64{0, 2, 99} {
		if _, err := f.vote(voter1, proposalID); !errors.Is(err, domainerrors.ErrProposalNotFound) {
			t.Fatalf("proposal %d: expected %q, got %v", proposalID, domainerrors.ErrProposalNotFound.Reason, err)
		}
	}
	voter, _, _ := f.store.GetVoter(context.Background(), f.electionID, voter1)
	if voter.HasVoted {
		t.Fatalf("failed votes must not mark the voter")
	}

	if _, err := f.vote(voter1, 1); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	f.advanceTo(t, entities.StageVotingSessionEnded)
	if _, err := f.vote(voter1, 1); !errors.Is(err, domainerrors.ErrVotingNotStarted) {
		t.Fatalf("expected stage revert after the session, got %v", err)
	}
}

func TestTallySelectsWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	voters := []common.Address{voter1, voter2, stranger}
	for _, voter := range voters {
		f.addVoter(t, voter)
	}
	f.advanceTo(t, entities.StageProposalsRegistrationStarted)
	f.addProposal(t, voter1, "p1")
	f.addProposal(t, voter1, "p2")
	f.addProposal(t, voter2, "p3")
	f.advanceTo(t, entities.StageVotingSessionStarted)

	for voter, proposalID := range map[common.Address]uint64{voter1: 2, voter2: 3, stranger: 3} {
		if _, err := f.vote(voter, proposalID); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}
	f.advanceTo(t, entities.StageVotesTallied)

	election, _ := f.store.GetElection(ctx, f.electionID)
	if election.WinningProposalID != 3 {
		t.Fatalf("expected winner 3, got %d", election.WinningProposalID)
	}
}

func TestTallyWithoutVotesHasNoWinner(t *testing.T) {
	f := newFixture(t)
	f.addVoter(t, voter1)
	f.advanceTo(t, entities.StageProposalsRegistrationStarted)
	f.addProposal(t, voter1, "p1")
	f.advanceTo(t, entities.StageVotesTallied)

	election, _ := f.store.GetElection(context.Background(), f.electionID)
	if election.WinningProposalID != 0 {
		t.Fatalf("expected no winner, got %d", election.WinningProposalID)
	}
}

func TestIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := commands.AddVoterCommand{
		ElectionID:     f.electionID,
		Caller:         owner,
		Voter:          voter1,
		IdempotencyKey: "add-voter-1",
	}

	first, err := f.ballots.AddVoter(ctx, cmd)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	replayed, err := f.ballots.AddVoter(ctx, cmd)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(replayed.Events) != 1 || replayed.Events[0].Sequence != first.Events[0].Sequence {
		t.Fatalf("expected replayed receipt, got %+v", replayed)
	}
	if f.eventCount(t) != 1 {
		t.Fatalf("expected replay not to emit, got %d events", f.eventCount(t))
	}

	cmd.Voter = voter2
	if _, err := f.ballots.AddVoter(ctx, cmd); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestRevertedCallsLeaveNoOutboxRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addVoter(t, voter1)

	before, _ := f.store.ListPendingOutbox(ctx, 100)
	if _, err := f.advance(stranger, entities.ActionStartProposalsRegistering); err == nil {
		t.Fatalf("expected revert")
	}
	if _, err := f.vote(voter1, 1); err == nil {
		t.Fatalf("expected revert")
	}
	after, _ := f.store.ListPendingOutbox(ctx, 100)
	if len(after) != len(before) || len(after) != 1 {
		t.Fatalf("expected exactly the VoterRegistered row, got %d", len(after))
	}
}

func TestUnknownElection(t *testing.T) {
	f := newFixture(t)
	_, err := f.workflow.Advance(context.Background(), commands.AdvanceWorkflowCommand{
		ElectionID: "missing",
		Caller:     owner,
		Action:     entities.ActionStartProposalsRegistering,
	})
	if !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected election not found, got %v", err)
	}
	if _, err := f.vote(voter1, 1); err == nil {
		t.Fatalf("expected revert")
	}
}

func TestDeployRejectsZeroCaller(t *testing.T) {
	store := memory.NewStore(nil)
	_, err := commands.ElectionUseCase{Elections: store, IDGen: store}.Deploy(
		context.Background(),
		commands.DeployElectionCommand{},
	)
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestConcurrentVotesAreSerialized(t *testing.T) {
	f := newFixture(t)
	voters := make([]common.Address, 0, 25)
	for i := 0; i < 25; i++ {
		voter := common.HexToAddress(fmt.Sprintf("0x%040x", 1000+i))
		voters = append(voters, voter)
		f.addVoter(t, voter)
	}
	f.advanceTo(t, entities.StageProposalsRegistrationStarted)
	f.addProposal(t, voters[0], "only")
	f.advanceTo(t, entities.StageVotingSessionStarted)

	var wg sync.WaitGroup
	errs := make(chan error, len(voters)*2)
	for _, voter := range voters {
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(voter common.Address) {
				defer wg.Done()
				if _, err := f.vote(voter, 1); err != nil {
					errs <- err
				}
			}(voter)
		}
	}
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
			t.Fatalf("unexpected error %v", err)
		}
		rejected++
	}
	if rejected != len(voters) {
		t.Fatalf("expected %d second votes rejected, got %d", len(voters), rejected)
	}
	proposal, _, _ := f.store.GetProposal(context.Background(), f.electionID, 1)
	if proposal.VoteCount != uint64(len(voters)) {
		t.Fatalf("expected %d votes, got %d", len(voters), proposal.VoteCount)
	}

	events, _ := f.store.ListEvents(context.Background(), f.electionID)
	seen := make(map[uint64]bool, len(events))
	for _, event := range events {
		if seen[event.Sequence] {
			t.Fatalf("duplicate sequence %d", event.Sequence)
		}
		seen[event.Sequence] = true
	}
}

func TestConcurrentRequestsWithOneIdempotencyKeyApplyOnce(t *testing.T) {
	f := newFixture(t)
	f.addVoter(t, voter1)
	f.advanceTo(t, entities.StageProposalsRegistrationStarted)

	cmd := commands.AddProposalCommand{
		ElectionID:     f.electionID,
		Caller:         voter1,
		Description:    "fix the roof",
		IdempotencyKey: "proposal-roof",
	}
	var wg sync.WaitGroup
	receipts := make(chan entities.Receipt, 8)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := f.ballots.AddProposal(context.Background(), cmd)
			if err != nil {
				errs <- err
				return
			}
			receipts <- receipt
		}()
	}
	wg.Wait()
	close(receipts)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error %v", err)
	}
	var sequence uint64
	for receipt := range receipts {
		if len(receipt.Events) != 1 {
			t.Fatalf("expected one ProposalRegistered in every receipt, got %+v", receipt)
		}
		if sequence != 0 && receipt.Events[0].Sequence != sequence {
			t.Fatalf("expected every receipt to replay sequence %d, got %d", sequence, receipt.Events[0].Sequence)
		}
		sequence = receipt.Events[0].Sequence
	}

	election, _ := f.store.GetElection(context.Background(), f.electionID)
	if election.ProposalCount != 1 {
		t.Fatalf("expected 1 proposal, got %d", election.ProposalCount)
	}
	proposals, _ := f.store.ListProposals(context.Background(), f.electionID)
	if len(proposals) != 1 {
		t.Fatalf("expected 1 stored proposal, got %d", len(proposals))
	}
}

func TestEventTimesFollowSequenceUnderContention(t *testing.T) {
	f := newFixture(t)
	var (
		clockMu sync.Mutex
		ticks   int
	)
	f.store.SetClock(func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		ticks++
		return fixedNow.Add(time.Duration(ticks) * time.Millisecond)
	})

	voters := make([]common.Address, 0, 16)
	for i := 0; i < 16; i++ {
		voter := common.HexToAddress(fmt.Sprintf("0x%040x", 2000+i))
		voters = append(voters, voter)
		f.addVoter(t, voter)
	}
	f.advanceTo(t, entities.StageProposalsRegistrationStarted)
	f.addProposal(t, voters[0], "only")
	f.advanceTo(t, entities.StageVotingSessionStarted)

	var wg sync.WaitGroup
	for _, voter := range voters {
		wg.Add(1)
		go func(voter common.Address) {
			defer wg.Done()
			if _, err := f.vote(voter, 1); err != nil {
				t.Errorf("vote failed: %v", err)
			}
		}(voter)
	}
	wg.Wait()

	events, _ := f.store.ListEvents(context.Background(), f.electionID)
	for i := 1; i < len(events); i++ {
		if events[i].Sequence != events[i-1].Sequence+1 {
			t.Fatalf("expected contiguous sequences, got %d after %d", events[i].Sequence, events[i-1].Sequence)
		}
		if events[i].OccurredAt.Before(events[i-1].OccurredAt) {
			t.Fatalf("event %d occurred at %s, before event %d at %s",
				events[i].Sequence, events[i].OccurredAt, events[i-1].Sequence, events[i-1].OccurredAt)
		}
	}

	pending, _ := f.store.ListPendingOutbox(context.Background(), 100)
	if len(pending) != len(events) {
		t.Fatalf("expected %d outbox rows, got %d", len(events), len(pending))
	}
	for i, row := range pending {
		if row.PartitionKey != f.electionID || row.Sequence != events[i].Sequence {
			t.Fatalf("expected outbox row %d to carry sequence %d, got %s/%d", i, events[i].Sequence, row.PartitionKey, row.Sequence)
		}
	}
}
