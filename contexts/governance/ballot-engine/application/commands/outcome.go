package commands

import (
	"errors"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
)

// outcome labels a command result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domainerrors.ErrEmptyTitle),
		errors.Is(err, domainerrors.ErrInvalidTimeWindow),
		errors.Is(err, domainerrors.ErrInsufficientCandidates),
		errors.Is(err, domainerrors.ErrDuplicateCandidate),
		errors.Is(err, domainerrors.ErrInvalidCandidateAddress),
		errors.Is(err, domainerrors.ErrEmptyVoterList),
		errors.Is(err, domainerrors.ErrDuplicateVoter),
		errors.Is(err, domainerrors.ErrInvalidVoterAddress),
		errors.Is(err, domainerrors.ErrIncorrectPayment),
		errors.Is(err, domainerrors.ErrInvalidAddress),
		errors.Is(err, domainerrors.ErrInvalidCandidate):
		return "invalid"
	case errors.Is(err, domainerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, domainerrors.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domainerrors.ErrVotingNotActive):
		return "not_active"
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domainerrors.ErrIdempotencyConflict):
		return "conflict"
	default:
		return "error"
	}
}

// isRejection reports whether err is a domain precondition failure rather
// than an infrastructure error.
func isRejection(err error) bool {
	return outcome(err) != "error"
}
