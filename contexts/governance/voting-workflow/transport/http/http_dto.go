package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ElectionResponse struct {
	ElectionID        string `json:"election_id"`
	Owner             string `json:"owner"`
	Stage             uint8  `json:"stage"`
	StageName         string `json:"stage_name"`
	ProposalCount     uint64 `json:"proposal_count"`
	WinningProposalID uint64 `json:"winning_proposal_id"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type WorkflowStatusResponse struct {
	ElectionID string `json:"election_id"`
	Stage      uint8  `json:"stage"`
	StageName  string `json:"stage_name"`
}

type AddVoterRequest struct {
	Address string `json:"address"`
}

type AddProposalRequest struct {
	Description string `json:"description"`
}

type SetVoteRequest struct {
	ProposalID uint64 `json:"proposal_id"`
}

type VoterResponse struct {
	ElectionID      string `json:"election_id"`
	Address         string `json:"address"`
	IsRegistered    bool   `json:"is_registered"`
	HasVoted        bool   `json:"has_voted"`
	VotedProposalID uint64 `json:"voted_proposal_id"`
}

type ProposalResponse struct {
	ElectionID  string `json:"election_id"`
	ProposalID  uint64 `json:"proposal_id"`
	Description string `json:"description"`
	VoteCount   uint64 `json:"vote_count"`
}

type ListProposalsResponse struct {
	Items []ProposalResponse `json:"items"`
}

type WinnerResponse struct {
	ElectionID string            `json:"election_id"`
	ProposalID uint64            `json:"proposal_id"`
	Proposal   *ProposalResponse `json:"proposal,omitempty"`
}

type EventResponse struct {
	Sequence       uint64  `json:"sequence"`
	Kind           string  `json:"kind"`
	PreviousStatus *uint8  `json:"previous_status,omitempty"`
	NewStatus      *uint8  `json:"new_status,omitempty"`
	Voter          string  `json:"voter,omitempty"`
	ProposalID     *uint64 `json:"proposal_id,omitempty"`
	Topic          string  `json:"topic"`
	Data           string  `json:"data"`
	OccurredAt     string  `json:"occurred_at"`
}

type ListEventsResponse struct {
	Items []EventResponse `json:"items"`
}

// ReceiptResponse answers every mutating call.
type ReceiptResponse struct {
	ElectionID string          `json:"election_id"`
	Stage      uint8           `json:"stage"`
	StageName  string          `json:"stage_name"`
	Events     []EventResponse `json:"events"`
}
