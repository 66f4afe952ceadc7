package entities

import (
	"math/big"
	"strings"
	"time"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"

	"github.com/ethereum/go-ethereum/params"
)

// HostingFeeWei is the exact payment (0.001 ether) required to host a voting.
var HostingFeeWei = big.NewInt(params.Ether / 1000)

// Voting is one hosted ballot event. Everything except Ballots is immutable
// after creation; Ballots only grows.
type Voting struct {
	ID            uint64
	Title         string
	Hoster        Address
	StartTime     time.Time
	EndTime       time.Time
	Candidates    []Address
	AllowedVoters []Address
	Ballots       []Ballot
	CreatedAt     time.Time
}

// Ballot is an accepted vote. A voter appears at most once per voting.
type Ballot struct {
	VotingID  uint64
	Voter     Address
	Candidate Address
	CastAt    time.Time
}

// VotingSummary is the list/lookup projection exposed to collaborators.
type VotingSummary struct {
	ID        uint64
	Title     string
	Hoster    Address
	StartTime time.Time
	EndTime   time.Time
}

// HostRequest carries unvalidated creation input. Candidate and voter
// addresses stay raw so that malformed entries are reported per list.
type HostRequest struct {
	Title         string
	Hoster        Address
	StartTime     time.Time
	EndTime       time.Time
	Candidates    []string
	AllowedVoters []string
	Payment       *big.Int
}

// NewVoting validates every creation invariant and returns a voting without
// an id. Checks run in a fixed order so the first violation is reported.
func NewVoting(req HostRequest, now time.Time) (Voting, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Voting{}, domainerrors.ErrEmptyTitle
	}
	if !req.StartTime.Before(req.EndTime) {
		return Voting{}, domainerrors.ErrInvalidTimeWindow
	}
	if len(req.Candidates) < 2 {
		return Voting{}, domainerrors.ErrInsufficientCandidates
	}
	candidates, err := parseDistinct(req.Candidates,
		domainerrors.ErrInvalidCandidateAddress, domainerrors.ErrDuplicateCandidate)
	if err != nil {
		return Voting{}, err
	}
	if len(req.AllowedVoters) == 0 {
		return Voting{}, domainerrors.ErrEmptyVoterList
	}
	voters, err := parseDistinct(req.AllowedVoters,
		domainerrors.ErrInvalidVoterAddress, domainerrors.ErrDuplicateVoter)
	if err != nil {
		return Voting{}, err
	}
	if req.Payment == nil || req.Payment.Cmp(HostingFeeWei) != 0 {
		return Voting{}, domainerrors.ErrIncorrectPayment
	}
	if req.Hoster.IsZero() {
		return Voting{}, domainerrors.ErrUnauthorized
	}
	return Voting{
		Title:         title,
		Hoster:        req.Hoster,
		StartTime:     req.StartTime.UTC(),
		EndTime:       req.EndTime.UTC(),
		Candidates:    candidates,
		AllowedVoters: voters,
		Ballots:       []Ballot{},
		CreatedAt:     now.UTC(),
	}, nil
}

func parseDistinct(values []string, invalid error, duplicate error) ([]Address, error) {
	items := make([]Address, 0, len(values))
	seen := make(map[Address]struct{}, len(values))
	for _, value := range values {
		addr, err := ParseAddress(value)
		if err != nil {
			return nil, invalid
		}
		if _, ok := seen[addr]; ok {
			return nil, duplicate
		}
		seen[addr] = struct{}{}
		items = append(items, addr)
	}
	return items, nil
}

func (v Voting) Summary() VotingSummary {
	return VotingSummary{
		ID:        v.ID,
		Title:     v.Title,
		Hoster:    v.Hoster,
		StartTime: v.StartTime,
		EndTime:   v.EndTime,
	}
}

func (v Voting) PhaseAt(now time.Time) Phase {
	return PhaseAt(v.StartTime, v.EndTime, now)
}

func (v Voting) IsAllowedVoter(voter Address) bool {
	for _, item := range v.AllowedVoters {
		if item == voter {
			return true
		}
	}
	return false
}

func (v Voting) IsCandidate(candidate Address) bool {
	for _, item := range v.Candidates {
		if item == candidate {
			return true
		}
	}
	return false
}

// BallotOf returns the ballot cast by voter, if any.
func (v Voting) BallotOf(voter Address) (Ballot, bool) {
	for _, ballot := range v.Ballots {
		if ballot.Voter == voter {
			return ballot, true
		}
	}
	return Ballot{}, false
}

// CheckBallot applies the vote preconditions at instant now.
func (v Voting) CheckBallot(voter Address, candidate Address, now time.Time) error {
	// Eligibility is checked before the window so that an ineligible caller
	// is reported as unauthorized in every phase.
	if voter.IsZero() || !v.IsAllowedVoter(voter) {
		return domainerrors.ErrUnauthorized
	}
	switch v.PhaseAt(now) {
	case PhaseUpcoming:
		return domainerrors.ErrTooEarly
	case PhasePast:
		return domainerrors.ErrTooLate
	}
	if _, voted := v.BallotOf(voter); voted {
		return domainerrors.ErrAlreadyVoted
	}
	if candidate.IsZero() || !v.IsCandidate(candidate) {
		return domainerrors.ErrInvalidCandidate
	}
	return nil
}

// CanVote reports whether CheckBallot would accept voter for some candidate.
func (v Voting) CanVote(voter Address, now time.Time) bool {
	if v.PhaseAt(now) != PhaseCurrent || voter.IsZero() || !v.IsAllowedVoter(voter) {
		return false
	}
	_, voted := v.BallotOf(voter)
	return !voted
}

// Clone returns a copy that shares no slices with v.
func (v Voting) Clone() Voting {
	out := v
	out.Candidates = append([]Address(nil), v.Candidates...)
	out.AllowedVoters = append([]Address(nil), v.AllowedVoters...)
	out.Ballots = append(make([]Ballot, 0, len(v.Ballots)), v.Ballots...)
	return out
}
