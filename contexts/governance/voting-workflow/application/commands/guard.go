package commands

import (
	"context"

	"civitas/contexts/governance/voting-workflow/domain/entities"
	domainerrors "civitas/contexts/governance/voting-workflow/domain/errors"
)

// requireOwner gates every owner-only entry point.
func requireOwner(tx *ledgerTx) error {
	if !tx.election.IsOwner(tx.caller) {
		return domainerrors.ErrCallerNotOwner
	}
	return nil
}

func requireVoter(ctx context.Context, tx *ledgerTx) (entities.Voter, error) {
	voter, found, err := tx.ledger.GetVoter(ctx, tx.election.ElectionID, tx.caller)
	if err != nil {
		return entities.Voter{}, err
	}
	if !found || !voter.IsRegistered {
		return entities.Voter{}, domainerrors.ErrNotVoter
	}
	return voter, nil
}
