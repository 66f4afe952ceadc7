package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/stretchr/testify/require"
)

var (
	owner     = entities.MustParseAddress("0x1111111111111111111111111111111111111111")
	candidate = entities.MustParseAddress("0x2222222222222222222222222222222222222222")
	voter     = entities.MustParseAddress("0x4444444444444444444444444444444444444444")
)

func testVoting(title string) entities.Voting {
	now := time.Now().UTC()
	return entities.Voting{
		Title:         title,
		Hoster:        owner,
		StartTime:     now.Add(-time.Hour),
		EndTime:       now.Add(time.Hour),
		Candidates:    []entities.Address{candidate, entities.MustParseAddress("0x3333333333333333333333333333333333333333")},
		AllowedVoters: []entities.Address{voter},
	}
}

func TestAppendVotingAssignsSequentialIDs(t *testing.T) {
	store := NewStore(owner, testVoting("seeded"))
	ctx := context.Background()

	var ids []uint64
	for _, title := range []string{"first", "second"} {
		err := store.Atomically(ctx, func(tx ports.LedgerTx) error {
			id, err := tx.AppendVoting(ctx, testVoting(title))
			ids = append(ids, id)
			return err
		})
		require.NoError(t, err)
	}
	require.Equal(t, []uint64{1, 2}, ids)

	items, err := store.ListVotings(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		require.Equal(t, uint64(i), item.ID)
	}
	require.Equal(t, "second", items[2].Title)
}

func TestGetVotingUnknownID(t *testing.T) {
	store := NewStore(owner)
	_, err := store.GetVoting(context.Background(), 0)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAtomicallyDiscardsFailedTransaction(t *testing.T) {
	store := NewStore(owner, testVoting("seeded"))
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Atomically(ctx, func(tx ports.LedgerTx) error {
		if _, err := tx.AppendVoting(ctx, testVoting("discarded")); err != nil {
			return err
		}
		if err := tx.AppendBallot(ctx, entities.Ballot{VotingID: 0, Voter: voter, Candidate: candidate}); err != nil {
			return err
		}
		if err := tx.SetOwner(ctx, voter); err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-1", EventType: "voting.hosted"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	items, err := store.ListVotings(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	voting, err := store.GetVoting(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, voting.Ballots)
	current, err := store.GetOwner(ctx)
	require.NoError(t, err)
	require.Equal(t, owner, current)
	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestReadersKeepTheirSnapshot(t *testing.T) {
	store := NewStore(owner, testVoting("seeded"))
	ctx := context.Background()

	before, err := store.GetVoting(ctx, 0)
	require.NoError(t, err)

	err = store.Atomically(ctx, func(tx ports.LedgerTx) error {
		return tx.AppendBallot(ctx, entities.Ballot{VotingID: 0, Voter: voter, Candidate: candidate})
	})
	require.NoError(t, err)

	require.Empty(t, before.Ballots)
	after, err := store.GetVoting(ctx, 0)
	require.NoError(t, err)
	require.Len(t, after.Ballots, 1)
}

func TestAppendBallotRejectsSecondBallot(t *testing.T) {
	store := NewStore(owner, testVoting("seeded"))
	ctx := context.Background()
	ballot := entities.Ballot{VotingID: 0, Voter: voter, Candidate: candidate}

	require.NoError(t, store.Atomically(ctx, func(tx ports.LedgerTx) error {
		return tx.AppendBallot(ctx, ballot)
	}))
	err := store.Atomically(ctx, func(tx ports.LedgerTx) error {
		return tx.AppendBallot(ctx, ballot)
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyVoted)
}

func TestConcurrentBallotsForOneVoterCommitOnce(t *testing.T) {
	store := NewStore(owner, testVoting("seeded"))
	ctx := context.Background()

	const attempts = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Atomically(ctx, func(tx ports.LedgerTx) error {
				voting, err := tx.LockVoting(ctx, 0)
				if err != nil {
					return err
				}
				if _, voted := voting.BallotOf(voter); voted {
					return domainerrors.ErrAlreadyVoted
				}
				return tx.AppendBallot(ctx, entities.Ballot{VotingID: 0, Voter: voter, Candidate: candidate})
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, accepted)
	voting, err := store.GetVoting(ctx, 0)
	require.NoError(t, err)
	require.Len(t, voting.Ballots, 1)
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	store := NewStore(owner)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Atomically(ctx, func(tx ports.LedgerTx) error {
		return tx.PutIdempotency(ctx, ports.IdempotencyRecord{
			Key:         "idem-1",
			RequestHash: "hash",
			VotingID:    7,
			ExpiresAt:   now.Add(time.Minute),
		})
	}))

	require.NoError(t, store.Atomically(ctx, func(tx ports.LedgerTx) error {
		record, found, err := tx.GetIdempotency(ctx, "idem-1", now)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, uint64(7), record.VotingID)

		_, found, err = tx.GetIdempotency(ctx, "idem-1", now.Add(time.Minute))
		require.NoError(t, err)
		require.False(t, found)
		return nil
	}))
}

func TestOutboxPendingAndPublished(t *testing.T) {
	store := NewStore(owner)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.Atomically(ctx, func(tx ports.LedgerTx) error {
		if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-2", EventType: "ballot.cast", OccurredAt: base.Add(time.Second)}); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-1", EventType: "voting.hosted", OccurredAt: base})
	}))

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "evt-1", pending[0].OutboxID)
	require.Equal(t, "voting.hosted", pending[0].EventType)

	require.NoError(t, store.MarkOutboxPublished(ctx, "evt-1", base))
	pending, err = store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "evt-2", pending[0].OutboxID)

	require.ErrorIs(t, store.MarkOutboxPublished(ctx, "missing", base), domainerrors.ErrConflict)
}

func TestPendingOutboxKeepsCommitOrderForEqualTimestamps(t *testing.T) {
	store := NewStore(owner)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ids := []string{"evt-hosted", "evt-cast-1", "evt-cast-2", "evt-cast-3", "evt-cast-4", "evt-cast-5"}
	for _, id := range ids {
		require.NoError(t, store.Atomically(ctx, func(tx ports.LedgerTx) error {
			return tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: id, EventType: "ballot.cast", OccurredAt: at})
		}))
	}
	// Two rows committed together keep their append order.
	require.NoError(t, store.Atomically(ctx, func(tx ports.LedgerTx) error {
		if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-batch-1", OccurredAt: at}); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-batch-2", OccurredAt: at})
	}))
	ids = append(ids, "evt-batch-1", "evt-batch-2")

	pending, err := store.ListPendingOutbox(ctx, 100)
	require.NoError(t, err)
	got := make([]string, 0, len(pending))
	for _, row := range pending {
		got = append(got, row.OutboxID)
	}
	require.Equal(t, ids, got)

	limited, err := store.ListPendingOutbox(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "evt-hosted", limited[0].OutboxID)
	require.Equal(t, "evt-cast-1", limited[1].OutboxID)
}
