package services

import "civitas/contexts/governance/voting-workflow/domain/entities"

// SelectWinner returns the id of the proposal with the most votes. Ties go to
// the lowest id. It returns 0 when no proposal has a vote.
func SelectWinner(proposals []entities.Proposal) uint64 {
	var (
		winner uint64
		best   uint64
	)
	for _, proposal := range proposals {
		if proposal.ProposalID == 0 || proposal.VoteCount == 0 {
			continue
		}
		if proposal.VoteCount > best || (proposal.VoteCount == best && proposal.ProposalID < winner) {
			winner = proposal.ProposalID
			best = proposal.VoteCount
		}
	}
	return winner
}
