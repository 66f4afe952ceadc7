package queries

import (
	"context"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

// TallyUseCase computes counts from the stored ballots on every call.
type TallyUseCase struct {
	Reader ports.VotingReader
	Clock  ports.Clock
}

func (uc TallyUseCase) CandidateVotes(ctx context.Context, votingID uint64) ([]entities.CandidateVotes, error) {
	voting, err := uc.Reader.GetVoting(ctx, votingID)
	if err != nil {
		return nil, err
	}
	return entities.Tally(voting), nil
}

// Result resolves winners at the current clock reading. The winner set is
// provisional until the result is Final.
func (uc TallyUseCase) Result(ctx context.Context, votingID uint64) (entities.Result, error) {
	voting, err := uc.Reader.GetVoting(ctx, votingID)
	if err != nil {
		return entities.Result{}, err
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return entities.Resolve(voting, voting.PhaseAt(now)), nil
}
