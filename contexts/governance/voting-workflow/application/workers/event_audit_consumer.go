package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	application "civitas/contexts/governance/voting-workflow/application"
	"civitas/contexts/governance/voting-workflow/domain/entities"
	"civitas/contexts/governance/voting-workflow/domain/services"
	"civitas/contexts/governance/voting-workflow/ports"
	contractsv1 "civitas/contracts/gen/events/v1"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrEventLogMismatch = errors.New("voting event log does not match its typed fields")

// VotingTopics lists every topic the voting workflow publishes.
var VotingTopics = []string{
	contractsv1.EventTypeWorkflowStatusChanged,
	contractsv1.EventTypeVoterRegistered,
	contractsv1.EventTypeProposalRegistered,
	contractsv1.EventTypeVoted,
}

// EventAuditConsumer re-decodes the ABI log carried by each published voting
// event and checks it against the envelope's typed fields.
type EventAuditConsumer struct {
	Subscriber    ports.EventSubscriber
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c EventAuditConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = "voting-workflow-audit-cg"
	}
	for _, topic := range VotingTopics {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			return err
		}
	}
	return nil
}

func (c EventAuditConsumer) Handle(_ context.Context, envelope ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var data contractsv1.VotingEventData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		logger.Error("voting event payload decode failed",
			"event", "voting_audit_decode_failed",
			"module", "governance/voting-workflow",
			"layer", "worker",
			"event_id", envelope.EventID,
			"error", err.Error(),
		)
		return err
	}
	raw, err := hexutil.Decode(data.LogData)
	if err != nil {
		return err
	}
	decoded, err := services.DecodeEvent(common.HexToHash(data.LogTopic), raw)
	if err != nil {
		return err
	}
	if !matchesTypedFields(decoded, data) {
		logger.Error("voting event log mismatch",
			"event", "voting_audit_log_mismatch",
			"module", "governance/voting-workflow",
			"layer", "worker",
			"event_id", envelope.EventID,
			"election_id", data.ElectionID,
			"sequence", data.Sequence,
		)
		return ErrEventLogMismatch
	}

	logger.Info("voting event observed",
		"event", "voting_audit_event_observed",
		"module", "governance/voting-workflow",
		"layer", "worker",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"election_id", data.ElectionID,
		"sequence", data.Sequence,
		"kind", data.Kind,
	)
	return nil
}

func matchesTypedFields(decoded entities.Event, data contractsv1.VotingEventData) bool {
	if string(decoded.Kind) != data.Kind {
		return false
	}
	switch decoded.Kind {
	case entities.EventWorkflowStatusChange:
		return data.PreviousStatus != nil && data.NewStatus != nil &&
			uint8(decoded.PreviousStatus) == *data.PreviousStatus &&
			uint8(decoded.NewStatus) == *data.NewStatus
	case entities.EventVoterRegistered:
		return common.HexToAddress(data.Voter) == decoded.Voter
	case entities.EventProposalRegistered:
		return data.ProposalID != nil && *data.ProposalID == decoded.ProposalID
	case entities.EventVoted:
		return data.ProposalID != nil && *data.ProposalID == decoded.ProposalID &&
			common.HexToAddress(data.Voter) == decoded.Voter
	default:
		return false
	}
}
