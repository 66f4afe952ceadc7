package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
)

// ledgerState is an immutable snapshot. Transactions build a new one and
// publish it in a single pointer swap.
type ledgerState struct {
	votings []entities.Voting
	owner   entities.Address
}

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
	// seq orders rows committed with equal timestamps.
	seq uint64
}

type Store struct {
	writeMu sync.Mutex
	state   atomic.Pointer[ledgerState]

	mu          sync.Mutex
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
	outboxSeq   uint64
}

// NewStore initialises the ledger with owner as the administrative identity.
// Seed votings are appended in order and receive sequential ids.
func NewStore(owner entities.Address, seed ...entities.Voting) *Store {
	votings := make([]entities.Voting, 0, len(seed))
	for i, voting := range seed {
		voting = voting.Clone()
		voting.ID = uint64(i)
		votings = append(votings, voting)
	}
	s := &Store{
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
	}
	s.state.Store(&ledgerState{votings: votings, owner: owner})
	return s
}

func (s *Store) Atomically(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	base := s.state.Load()
	tx := &memoryTx{
		store:       s,
		votings:     base.votings,
		owner:       base.owner,
		idempotency: make(map[string]ports.IdempotencyRecord),
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	for key, record := range tx.idempotency {
		s.idempotency[key] = record
	}
	for _, record := range tx.outbox {
		s.outboxSeq++
		record.seq = s.outboxSeq
		s.outbox[record.message.OutboxID] = record
	}
	s.mu.Unlock()

	s.state.Store(&ledgerState{votings: tx.votings, owner: tx.owner})
	return nil
}

func (s *Store) ListVotings(_ context.Context) ([]entities.VotingSummary, error) {
	state := s.state.Load()
	items := make([]entities.VotingSummary, 0, len(state.votings))
	for _, voting := range state.votings {
		items = append(items, voting.Summary())
	}
	return items, nil
}

func (s *Store) GetVoting(_ context.Context, votingID uint64) (entities.Voting, error) {
	state := s.state.Load()
	if votingID >= uint64(len(state.votings)) {
		return entities.Voting{}, domainerrors.ErrNotFound
	}
	return state.votings[votingID].Clone(), nil
}

func (s *Store) GetOwner(_ context.Context) (entities.Address, error) {
	return s.state.Load().owner, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].message.CreatedAt, rows[j].message.CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type memoryTx struct {
	store *Store

	votings []entities.Voting
	// owned is set once votings no longer aliases the published snapshot.
	owned bool
	owner entities.Address

	idempotency map[string]ports.IdempotencyRecord
	outbox      []outboxRecord
}

func (tx *memoryTx) own() {
	if !tx.owned {
		tx.votings = slices.Clone(tx.votings)
		tx.owned = true
	}
}

// LockRegistry is a no-op: Atomically already holds the writer lock.
func (tx *memoryTx) LockRegistry(_ context.Context) error {
	return nil
}

func (tx *memoryTx) AppendVoting(_ context.Context, voting entities.Voting) (uint64, error) {
	tx.own()
	voting = voting.Clone()
	voting.ID = uint64(len(tx.votings))
	tx.votings = append(tx.votings, voting)
	return voting.ID, nil
}

func (tx *memoryTx) LockVoting(_ context.Context, votingID uint64) (entities.Voting, error) {
	if votingID >= uint64(len(tx.votings)) {
		return entities.Voting{}, domainerrors.ErrNotFound
	}
	return tx.votings[votingID].Clone(), nil
}

func (tx *memoryTx) AppendBallot(_ context.Context, ballot entities.Ballot) error {
	if ballot.VotingID >= uint64(len(tx.votings)) {
		return domainerrors.ErrNotFound
	}
	current := tx.votings[ballot.VotingID]
	if _, voted := current.BallotOf(ballot.Voter); voted {
		return domainerrors.ErrAlreadyVoted
	}
	tx.own()
	// Snapshot readers may still hold current.Ballots, so never write into
	// its backing array.
	current.Ballots = append(slices.Clip(current.Ballots), ballot)
	tx.votings[ballot.VotingID] = current
	return nil
}

func (tx *memoryTx) Owner(_ context.Context) (entities.Address, error) {
	return tx.owner, nil
}

func (tx *memoryTx) SetOwner(_ context.Context, owner entities.Address) error {
	if owner.IsZero() {
		return domainerrors.ErrInvalidAddress
	}
	tx.owner = owner
	return nil
}

func (tx *memoryTx) GetIdempotency(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	key = strings.TrimSpace(key)
	if record, ok := tx.idempotency[key]; ok {
		return record, true, nil
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	record, exists := tx.store.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(tx.store.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (tx *memoryTx) PutIdempotency(_ context.Context, record ports.IdempotencyRecord) error {
	key := strings.TrimSpace(record.Key)
	tx.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(record.RequestHash),
		VotingID:    record.VotingID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	return nil
}

func (tx *memoryTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}

	tx.store.mu.Lock()
	existing, ok := tx.store.outbox[outboxID]
	tx.store.mu.Unlock()
	if ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}

	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tx.outbox = append(tx.outbox, outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	})
	return nil
}

var _ ports.Ledger = (*Store)(nil)
var _ ports.VotingReader = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
