package commands

import (
	"encoding/json"
	"time"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/ports"
	contractsv1 "civitas/contracts/gen/events/v1"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var eventTypes = map[entities.EventKind]string{
	entities.EventWorkflowStatusChange: contractsv1.EventTypeWorkflowStatusChanged,
	entities.EventVoterRegistered:      contractsv1.EventTypeVoterRegistered,
	entities.EventProposalRegistered:   contractsv1.EventTypeProposalRegistered,
	entities.EventVoted:                contractsv1.EventTypeVoted,
}

func newVotingEnvelope(eventID string, event entities.Event) (ports.EventEnvelope, error) {
	eventType, ok := eventTypes[event.Kind]
	if !ok {
		return ports.EventEnvelope{}, domainerrors.ErrEventDecodeUnsupported
	}

	data := contractsv1.VotingEventData{
		ElectionID: event.ElectionID,
		Sequence:   event.Sequence,
		Kind:       string(event.Kind),
		LogTopic:   event.Topic.Hex(),
		LogData:    hexutil.Encode(event.Data),
		OccurredAt: event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	switch event.Kind {
	case entities.EventWorkflowStatusChange:
		previous, next := uint8(event.PreviousStatus), uint8(event.NewStatus)
		data.PreviousStatus = &previous
		data.NewStatus = &next
	case entities.EventVoterRegistered:
		data.Voter = event.Voter.Hex()
	case entities.EventProposalRegistered:
		proposalID := event.ProposalID
		data.ProposalID = &proposalID
	case entities.EventVoted:
		proposalID := event.ProposalID
		data.Voter = event.Voter.Hex()
		data.ProposalID = &proposalID
	}

	// Events are partitioned by election so consumers see one election's log
	// in sequence order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       event.OccurredAt.UTC(),
		SourceService:    "voting-workflow",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     event.ElectionID,
		Data:             payload,
	}, nil
}
