package errors

import (
	"errors"
	"fmt"
)

// Creation validation.
var (
	ErrEmptyTitle              = errors.New("voting title is empty")
	ErrInvalidTimeWindow       = errors.New("voting start time must be before end time")
	ErrInsufficientCandidates  = errors.New("the number of candidates should be at least 2")
	ErrDuplicateCandidate      = errors.New("candidate is listed more than once")
	ErrInvalidCandidateAddress = errors.New("candidate address is invalid")
	ErrEmptyVoterList          = errors.New("allowed voter list is empty")
	ErrDuplicateVoter          = errors.New("voter is listed more than once")
	ErrInvalidVoterAddress     = errors.New("voter address is invalid")
	ErrIncorrectPayment        = errors.New("payment does not match the hosting fee")
)

var (
	ErrNotFound         = errors.New("voting not found")
	ErrUnauthorized     = errors.New("caller is not authorized")
	ErrVotingNotActive  = errors.New("voting is not active")
	ErrAlreadyVoted     = errors.New("voter has already voted")
	ErrInvalidCandidate = errors.New("candidate is not part of the voting")
	ErrInvalidAddress   = errors.New("address is invalid")

	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrConflict            = errors.New("ledger conflict")
)

// ErrTooEarly and ErrTooLate refine ErrVotingNotActive; errors.Is matches both.
var (
	ErrTooEarly = fmt.Errorf("%w: voting has not started", ErrVotingNotActive)
	ErrTooLate  = fmt.Errorf("%w: voting has ended", ErrVotingNotActive)
)
