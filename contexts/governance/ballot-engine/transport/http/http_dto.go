package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HostVotingRequest times are unix seconds. PaymentWei is a base-10 integer
// string so that wei amounts never pass through a float.
type HostVotingRequest struct {
	Title         string   `json:"title"`
	StartTime     int64    `json:"start_time"`
	EndTime       int64    `json:"end_time"`
	Candidates    []string `json:"candidates"`
	AllowedVoters []string `json:"allowed_voters"`
	PaymentWei    string   `json:"payment_wei"`
}

type HostVotingResponse struct {
	VotingID uint64 `json:"voting_id"`
	Replayed bool   `json:"replayed"`
}

type VotingSummaryResponse struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Hoster    string `json:"hoster"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Phase     string `json:"phase"`
}

type VotingListResponse struct {
	Items []VotingSummaryResponse `json:"items"`
}

type VotingDetailResponse struct {
	VotingSummaryResponse
	Candidates    []string `json:"candidates"`
	AllowedVoters []string `json:"allowed_voters"`
	BallotCount   int      `json:"ballot_count"`
}

type CandidateVotesItem struct {
	Candidate string `json:"candidate"`
	VoteCount uint64 `json:"vote_count"`
}

type CandidateVotesResponse struct {
	VotingID uint64               `json:"voting_id"`
	Items    []CandidateVotesItem `json:"items"`
}

// ResultResponse winners are provisional until Final is true.
type ResultResponse struct {
	VotingID   uint64               `json:"voting_id"`
	Phase      string               `json:"phase"`
	Final      bool                 `json:"final"`
	TotalVotes uint64               `json:"total_votes"`
	Tally      []CandidateVotesItem `json:"tally"`
	Winners    []string             `json:"winners"`
}

type EligibilityResponse struct {
	VotingID uint64 `json:"voting_id"`
	Voter    string `json:"voter"`
	CanVote  bool   `json:"can_vote"`
}

type CastVoteRequest struct {
	Candidate string `json:"candidate"`
}

type OwnershipResponse struct {
	Owner string `json:"owner"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}
