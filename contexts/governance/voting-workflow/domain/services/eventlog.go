package services

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// votingEventsABI is the event section of the voting contract interface.
// Logs produced here decode with any standard ABI tooling.
const votingEventsABI = `[
	{"type":"event","name":"VoterRegistered","anonymous":false,"inputs":[
		{"name":"voterAddress","type":"address","indexed":false}]},
	{"type":"event","name":"WorkflowStatusChange","anonymous":false,"inputs":[
		{"name":"previousStatus","type":"uint8","indexed":false},
		{"name":"newStatus","type":"uint8","indexed":false}]},
	{"type":"event","name":"ProposalRegistered","anonymous":false,"inputs":[
		{"name":"proposalId","type":"uint256","indexed":false}]},
	{"type":"event","name":"Voted","anonymous":false,"inputs":[
		{"name":"voter","type":"address","indexed":false},
		{"name":"proposalId","type":"uint256","indexed":false}]}
]`

var votingABI = mustParseABI(votingEventsABI)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("parse voting events abi: %v", err))
	}
	return parsed
}

// EventTopic returns the Keccak-256 topic of the event signature, for example
// keccak256("Voted(address,uint256)").
func EventTopic(kind entities.EventKind) (common.Hash, bool) {
	event, ok := votingABI.Events[string(kind)]
	if !ok {
		return common.Hash{}, false
	}
	return event.ID, true
}

func NewWorkflowStatusChange(electionID string, previous entities.Stage, next entities.Stage, at time.Time) (entities.Event, error) {
	return encodeEvent(entities.Event{
		ElectionID:     electionID,
		Kind:           entities.EventWorkflowStatusChange,
		PreviousStatus: previous,
		NewStatus:      next,
		OccurredAt:     at,
	}, uint8(previous), uint8(next))
}

func NewVoterRegistered(electionID string, voter common.Address, at time.Time) (entities.Event, error) {
	return encodeEvent(entities.Event{
		ElectionID: electionID,
		Kind:       entities.EventVoterRegistered,
		Voter:      voter,
		OccurredAt: at,
	}, voter)
}

func NewProposalRegistered(electionID string, proposalID uint64, at time.Time) (entities.Event, error) {
	return encodeEvent(entities.Event{
		ElectionID: electionID,
		Kind:       entities.EventProposalRegistered,
		ProposalID: proposalID,
		OccurredAt: at,
	}, new(big.Int).SetUint64(proposalID))
}

func NewVoted(electionID string, voter common.Address, proposalID uint64, at time.Time) (entities.Event, error) {
	return encodeEvent(entities.Event{
		ElectionID: electionID,
		Kind:       entities.EventVoted,
		Voter:      voter,
		ProposalID: proposalID,
		OccurredAt: at,
	}, voter, new(big.Int).SetUint64(proposalID))
}

func encodeEvent(event entities.Event, args ...any) (entities.Event, error) {
	definition, ok := votingABI.Events[string(event.Kind)]
	if !ok {
		return entities.Event{}, domainerrors.ErrEventDecodeUnsupported
	}
	data, err := definition.Inputs.Pack(args...)
	if err != nil {
		return entities.Event{}, fmt.Errorf("pack %s log: %w", event.Kind, err)
	}
	event.Topic = definition.ID
	event.Data = data
	return event, nil
}

// DecodeEvent rebuilds the typed arguments of a log from its topic and data.
// Election, sequence and timestamp are not part of the log and stay zero.
func DecodeEvent(topic common.Hash, data []byte) (entities.Event, error) {
	definition, err := votingABI.EventByID(topic)
	if err != nil {
		return entities.Event{}, domainerrors.ErrEventDecodeUnsupported
	}
	values, err := definition.Inputs.Unpack(data)
	if err != nil {
		return entities.Event{}, fmt.Errorf("unpack %s log: %w", definition.Name, err)
	}

	event := entities.Event{
		Kind:  entities.EventKind(definition.Name),
		Topic: topic,
		Data:  append([]byte(nil), data...),
	}
	switch event.Kind {
	case entities.EventWorkflowStatusChange:
		previous, okPrevious := values[0].(uint8)
		next, okNext := values[1].(uint8)
		if !okPrevious || !okNext {
			return entities.Event{}, domainerrors.ErrEventDecodeUnsupported
		}
		event.PreviousStatus = entities.Stage(previous)
		event.NewStatus = entities.Stage(next)
	case entities.EventVoterRegistered:
		voter, ok := values[0].(common.Address)
		if !ok {
			return entities.Event{}, domainerrors.ErrEventDecodeUnsupported
		}
		event.Voter = voter
	case entities.EventProposalRegistered:
		proposalID, ok := values[0].(*big.Int)
		if !ok || !proposalID.IsUint64() {
			return entities.Event{}, domainerrors.ErrEventDecodeUnsupported
		}
		event.ProposalID = proposalID.Uint64()
	case entities.EventVoted:
		voter, okVoter := values[0].(common.Address)
		proposalID, okProposal := values[1].(*big.Int)
		if !okVoter || !okProposal || !proposalID.IsUint64() {
			return entities.Event{}, domainerrors.ErrEventDecodeUnsupported
		}
		event.Voter = voter
		event.ProposalID = proposalID.Uint64()
	default:
		return entities.Event{}, domainerrors.ErrEventDecodeUnsupported
	}
	return event, nil
}
