package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotbox/contexts/governance/ballot-engine/adapters/memory"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var (
	now       = time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC)
	owner     = entities.MustParseAddress("0x1111111111111111111111111111111111111111")
	alice     = entities.MustParseAddress("0x2222222222222222222222222222222222222222")
	bob       = entities.MustParseAddress("0x3333333333333333333333333333333333333333")
	voterA    = entities.MustParseAddress("0x4444444444444444444444444444444444444444")
	voterB    = entities.MustParseAddress("0x5555555555555555555555555555555555555555")
	outsiderC = entities.MustParseAddress("0x6666666666666666666666666666666666666666")
)

func voting(title string, start time.Time, end time.Time, ballots ...entities.Ballot) entities.Voting {
	return entities.Voting{
		Title:         title,
		Hoster:        owner,
		StartTime:     start,
		EndTime:       end,
		Candidates:    []entities.Address{alice, bob},
		AllowedVoters: []entities.Address{voterA, voterB},
		Ballots:       ballots,
	}
}

// seededStore holds one voting per phase at now: 0 is past, 1 is current and
// 2 is upcoming.
func seededStore() *memory.Store {
	return memory.NewStore(owner,
		voting("closed", now.Add(-2*time.Hour), now.Add(-time.Hour),
			entities.Ballot{Voter: voterA, Candidate: alice},
			entities.Ballot{Voter: voterB, Candidate: bob},
		),
		voting("open", now.Add(-time.Hour), now.Add(time.Hour),
			entities.Ballot{Voter: voterA, Candidate: bob},
		),
		voting("soon", now.Add(time.Hour), now.Add(2*time.Hour)),
	)
}

func TestListVotingsFiltersByPhase(t *testing.T) {
	uc := RegistryUseCase{Reader: seededStore(), Clock: fixedClock{now: now}}
	ctx := context.Background()

	all, err := uc.ListVotings(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, entities.PhasePast, all[0].Phase)
	require.Equal(t, entities.PhaseCurrent, all[1].Phase)
	require.Equal(t, entities.PhaseUpcoming, all[2].Phase)

	for phase, title := range map[entities.Phase]string{
		entities.PhasePast:     "closed",
		entities.PhaseCurrent:  "open",
		entities.PhaseUpcoming: "soon",
	} {
		items, err := uc.ListVotings(ctx, phase)
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, title, items[0].Title)
	}
}

func TestListVotingsEmptyRegistry(t *testing.T) {
	uc := RegistryUseCase{Reader: memory.NewStore(owner), Clock: fixedClock{now: now}}
	items, err := uc.ListVotings(context.Background(), entities.PhaseCurrent)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestGetVoting(t *testing.T) {
	uc := RegistryUseCase{Reader: seededStore(), Clock: fixedClock{now: now}}
	ctx := context.Background()

	detail, err := uc.GetVoting(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "open", detail.Title)
	require.Equal(t, entities.PhaseCurrent, detail.Phase)
	require.Equal(t, 1, detail.BallotCount)
	require.Equal(t, []entities.Address{alice, bob}, detail.Candidates)

	_, err = uc.GetVoting(ctx, 3)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCanVote(t *testing.T) {
	uc := RegistryUseCase{Reader: seededStore(), Clock: fixedClock{now: now}}
	ctx := context.Background()

	cases := []struct {
		name     string
		votingID uint64
		voter    string
		want     bool
	}{
		{"eligible and unused", 1, voterB.String(), true},
		{"already voted", 1, voterA.String(), false},
		{"not on the list", 1, outsiderC.String(), false},
		{"malformed address", 1, "0x12", false},
		{"past voting", 0, voterB.String(), false},
		{"upcoming voting", 2, voterA.String(), false},
		{"unknown voting", 42, voterA.String(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := uc.CanVote(ctx, tc.votingID, tc.voter)
			require.NoError(t, err)
			require.Equal(t, tc.want, ok)
		})
	}
}

func TestOwner(t *testing.T) {
	uc := RegistryUseCase{Reader: seededStore()}
	current, err := uc.Owner(context.Background())
	require.NoError(t, err)
	require.Equal(t, owner, current)
}

func TestCandidateVotes(t *testing.T) {
	uc := TallyUseCase{Reader: seededStore(), Clock: fixedClock{now: now}}
	ctx := context.Background()

	rows, err := uc.CandidateVotes(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []entities.CandidateVotes{
		{Candidate: alice, VoteCount: 0},
		{Candidate: bob, VoteCount: 1},
	}, rows)

	_, err = uc.CandidateVotes(ctx, 9)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestResultFinalOnlyAfterEnd(t *testing.T) {
	uc := TallyUseCase{Reader: seededStore(), Clock: fixedClock{now: now}}
	ctx := context.Background()

	closed, err := uc.Result(ctx, 0)
	require.NoError(t, err)
	require.True(t, closed.Final)
	require.Equal(t, []entities.Address{alice, bob}, closed.Winners)
	require.Equal(t, uint64(2), closed.TotalVotes)

	open, err := uc.Result(ctx, 1)
	require.NoError(t, err)
	require.False(t, open.Final)
	require.Equal(t, entities.PhaseCurrent, open.Phase)
	require.Equal(t, []entities.Address{bob}, open.Winners)

	soon, err := uc.Result(ctx, 2)
	require.NoError(t, err)
	require.False(t, soon.Final)
	require.Len(t, soon.Winners, 2)
}

type readSet struct {
	list    []VotingView
	detail  VotingDetail
	counts  []entities.CandidateVotes
	result  entities.Result
	canVote bool
	owner   entities.Address
}

func readEverything(t *testing.T, reader ports.VotingReader) readSet {
	t.Helper()
	ctx := context.Background()
	clock := fixedClock{now: now}
	registry := RegistryUseCase{Reader: reader, Clock: clock}
	tally := TallyUseCase{Reader: reader, Clock: clock}

	var set readSet
	var err error
	set.list, err = registry.ListVotings(ctx, "")
	require.NoError(t, err)
	set.detail, err = registry.GetVoting(ctx, 1)
	require.NoError(t, err)
	set.counts, err = tally.CandidateVotes(ctx, 1)
	require.NoError(t, err)
	set.result, err = tally.Result(ctx, 1)
	require.NoError(t, err)
	set.canVote, err = registry.CanVote(ctx, 1, voterB.String())
	require.NoError(t, err)
	set.owner, err = registry.Owner(ctx)
	require.NoError(t, err)
	return set
}

func TestReadsWithoutWritesAreRepeatable(t *testing.T) {
	store := seededStore()

	first := readEverything(t, store)
	second := readEverything(t, store)
	require.Equal(t, first, second)
	require.True(t, first.canVote)
	require.Len(t, first.list, 3)
}

func TestRolledBackWriteLeavesReadsUnchanged(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	before := readEverything(t, store)

	errRollback := errors.New("rollback")
	err := store.Atomically(ctx, func(tx ports.LedgerTx) error {
		if _, err := tx.AppendVoting(ctx, voting("discarded", now, now.Add(time.Hour))); err != nil {
			return err
		}
		if err := tx.AppendBallot(ctx, entities.Ballot{VotingID: 1, Voter: voterB, Candidate: alice, CastAt: now}); err != nil {
			return err
		}
		if err := tx.SetOwner(ctx, outsiderC); err != nil {
			return err
		}
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
	require.Equal(t, before, readEverything(t, store))
}
