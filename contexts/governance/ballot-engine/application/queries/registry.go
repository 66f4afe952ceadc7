package queries

import (
	"context"
	"errors"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

// VotingView is a summary annotated with its phase at read time.
type VotingView struct {
	entities.VotingSummary
	Phase entities.Phase
}

// VotingDetail is the full read model of a single voting.
type VotingDetail struct {
	VotingView
	Candidates    []entities.Address
	AllowedVoters []entities.Address
	BallotCount   int
}

type RegistryUseCase struct {
	Reader ports.VotingReader
	Clock  ports.Clock
}

// ListVotings returns every voting in creation order. A non-empty phase keeps
// only votings in that phase at the current clock reading.
func (uc RegistryUseCase) ListVotings(ctx context.Context, phase entities.Phase) ([]VotingView, error) {
	summaries, err := uc.Reader.ListVotings(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	items := make([]VotingView, 0, len(summaries))
	for _, summary := range summaries {
		current := entities.PhaseAt(summary.StartTime, summary.EndTime, now)
		if phase != "" && current != phase {
			continue
		}
		items = append(items, VotingView{VotingSummary: summary, Phase: current})
	}
	return items, nil
}

func (uc RegistryUseCase) GetVoting(ctx context.Context, votingID uint64) (VotingDetail, error) {
	voting, err := uc.Reader.GetVoting(ctx, votingID)
	if err != nil {
		return VotingDetail{}, err
	}
	return VotingDetail{
		VotingView: VotingView{
			VotingSummary: voting.Summary(),
			Phase:         voting.PhaseAt(uc.now()),
		},
		Candidates:    voting.Candidates,
		AllowedVoters: voting.AllowedVoters,
		BallotCount:   len(voting.Ballots),
	}, nil
}

// CanVote never fails on a missing voting or malformed voter; both answer
// false. Only storage errors are returned.
func (uc RegistryUseCase) CanVote(ctx context.Context, votingID uint64, voter string) (bool, error) {
	addr, err := entities.ParseAddress(voter)
	if err != nil {
		return false, nil
	}
	voting, err := uc.Reader.GetVoting(ctx, votingID)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return voting.CanVote(addr, uc.now()), nil
}

func (uc RegistryUseCase) Owner(ctx context.Context) (entities.Address, error) {
	return uc.Reader.GetOwner(ctx)
}

func (uc RegistryUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
