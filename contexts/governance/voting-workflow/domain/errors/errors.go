package errors

import "errors"

// Class groups revert reasons so transports can map them without matching
// on reason strings.
type Class string

const (
	ClassAuthorization   Class = "authorization"
	ClassStage           Class = "stage"
	ClassRegistry        Class = "registry"
	ClassValidation      Class = "validation"
	ClassDuplicateAction Class = "duplicate_action"
)

// Revert is a rejected call. Reason is the exact message callers observe.
type Revert struct {
	Class  Class
	Reason string
}

func (r *Revert) Error() string {
	return r.Reason
}

func newRevert(class Class, reason string) *Revert {
	return &Revert{Class: class, Reason: reason}
}

var (
	ErrCallerNotOwner = newRevert(ClassAuthorization, "Ownable: caller is not the owner")

	ErrVoterRegistrationClosed = newRevert(ClassStage, "Voters registration is not open yet")
	ErrProposalsNotAllowed     = newRevert(ClassStage, "Proposals are not allowed yet")
	ErrVotingNotStarted        = newRevert(ClassStage, "Voting session havent started yet")
	ErrCannotStartProposals    = newRevert(ClassStage, "Registering proposals cant be started now")
	ErrProposalsNotStarted     = newRevert(ClassStage, "Registering proposals havent started yet")
	ErrProposalsNotFinished    = newRevert(ClassStage, "Registering proposals phase is not finished")
	ErrVotingSessionNotEnded   = newRevert(ClassStage, "Current status is not voting session ended")
	ErrVotesNotTallied         = newRevert(ClassStage, "Votes are not tallied yet")

	ErrAlreadyRegistered = newRevert(ClassRegistry, "Already registered")
	ErrNotVoter          = newRevert(ClassRegistry, "You're not a voter")

	ErrEmptyProposal         = newRevert(ClassValidation, "Proposal description must not be empty")
	ErrProposalNotFound      = newRevert(ClassValidation, "Proposal not found")
	ErrInvalidVoterAddress   = newRevert(ClassValidation, "Invalid voter address")
	ErrUnknownWorkflowAction = newRevert(ClassValidation, "Unknown workflow action")

	ErrAlreadyVoted = newRevert(ClassDuplicateAction, "You have already voted")
)

var (
	ErrElectionNotFound       = errors.New("election not found")
	ErrInvalidInput           = errors.New("invalid voting workflow input")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
	ErrConflict               = errors.New("voting workflow write conflict")
	ErrOutboxMessageNotFound  = errors.New("outbox message not found")
	ErrEventDecodeUnsupported = errors.New("unsupported voting event")
)

// ClassOf reports the revert class of err, if err is a revert.
func ClassOf(err error) (Class, bool) {
	var revert *Revert
	if errors.As(err, &revert) {
		return revert.Class, true
	}
	return "", false
}
