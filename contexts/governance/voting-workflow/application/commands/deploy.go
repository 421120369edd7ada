package commands

import (
	"context"
	"log/slog"
	"time"

	application "civitas/contexts/governance/voting-workflow/application"
	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	"civitas/contexts/governance/voting-workflow/ports"

	"github.com/ethereum/go-ethereum/common"
)

type DeployElectionCommand struct {
	Caller common.Address
}

// ElectionUseCase creates election instances. The deploying account becomes
// the owner; nothing is emitted for the initial stage.
type ElectionUseCase struct {
	Elections ports.ElectionRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc ElectionUseCase) Deploy(ctx context.Context, cmd DeployElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.Caller == (common.Address{}) {
		logger.Warn("election deploy validation failed",
			"event", "voting_election_deploy_validation_failed",
			"module", moduleName,
			"layer", "application",
		)
		return entities.Election{}, domainerrors.ErrInvalidInput
	}

	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Election{}, err
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	election := entities.Election{
		ElectionID: electionID,
		Owner:      cmd.Caller,
		Stage:      entities.StageRegisteringVoters,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.Elections.CreateElection(ctx, election); err != nil {
		logger.Error("election deploy failed",
			"event", "voting_election_deploy_failed",
			"module", moduleName,
			"layer", "application",
			"owner", cmd.Caller.Hex(),
			"error", err.Error(),
		)
		return entities.Election{}, err
	}

	logger.Info("election deployed",
		"event", "voting_election_deployed",
		"module", moduleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"owner", election.Owner.Hex(),
	)
	return election, nil
}
