package votingworkflow

import (
	"log/slog"
	"time"

	httpadapter "civitas/contexts/governance/voting-workflow/adapters/http"
	"civitas/contexts/governance/voting-workflow/adapters/memory"
	"civitas/contexts/governance/voting-workflow/application/commands"
	"civitas/contexts/governance/voting-workflow/application/queries"
	"civitas/contexts/governance/voting-workflow/application/workers"
	"civitas/contexts/governance/voting-workflow/domain/entities"
	"civitas/contexts/governance/voting-workflow/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store

	outbox    ports.OutboxRepository
	clock     ports.Clock
	telemetry ports.Telemetry
	logger    *slog.Logger
}

type Dependencies struct {
	Elections      ports.ElectionRepository
	Outbox         ports.OutboxRepository
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Telemetry      ports.Telemetry
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	electionUseCase := commands.ElectionUseCase{
		Elections: deps.Elections,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	workflowUseCase := commands.WorkflowUseCase{
		Elections:      deps.Elections,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		Telemetry:      deps.Telemetry,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	ballotUseCase := commands.BallotUseCase{
		Elections:      deps.Elections,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		Telemetry:      deps.Telemetry,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Workflow:  workflowUseCase,
			Ballots:   ballotUseCase,
			Queries:   queries.ElectionQueries{Elections: deps.Elections},
			Logger:    deps.Logger,
		},
		outbox:    deps.Outbox,
		clock:     deps.Clock,
		telemetry: deps.Telemetry,
		logger:    deps.Logger,
	}
}

func NewInMemoryModule(seed []entities.Election, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Elections:      store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}

// WithTelemetry returns a copy of the module whose use cases and relay report
// to telemetry.
func (m Module) WithTelemetry(telemetry ports.Telemetry) Module {
	m.telemetry = telemetry
	m.Handler.Workflow.Telemetry = telemetry
	m.Handler.Ballots.Telemetry = telemetry
	return m
}

// OutboxRelay builds the relay that drains this module's outbox.
func (m Module) OutboxRelay(publisher ports.EventPublisher, batchSize int) workers.OutboxRelay {
	return workers.OutboxRelay{
		Outbox:    m.outbox,
		Publisher: publisher,
		Clock:     m.clock,
		Telemetry: m.telemetry,
		BatchSize: batchSize,
		Logger:    m.logger,
	}
}

func (m Module) EventAuditConsumer(subscriber ports.EventSubscriber) workers.EventAuditConsumer {
	return workers.EventAuditConsumer{
		Subscriber: subscriber,
		Logger:     m.logger,
	}
}
