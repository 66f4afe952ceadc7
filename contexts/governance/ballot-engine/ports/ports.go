package ports

import (
	"context"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

// VotingReader serves snapshot reads. Implementations never block writers.
type VotingReader interface {
	ListVotings(ctx context.Context) ([]entities.VotingSummary, error)
	GetVoting(ctx context.Context, votingID uint64) (entities.Voting, error)
	GetOwner(ctx context.Context) (entities.Address, error)
}

// Ledger is the single mutation entry point. fn runs with exclusive access to
// the state; its effects are committed together when it returns nil and
// discarded otherwise.
type Ledger interface {
	Atomically(ctx context.Context, fn func(tx LedgerTx) error) error
}

type LedgerTx interface {
	// LockRegistry serialises registry writers until the transaction ends.
	LockRegistry(ctx context.Context) error
	// AppendVoting assigns the next sequential id (starting at 0).
	AppendVoting(ctx context.Context, voting entities.Voting) (uint64, error)
	// LockVoting loads a voting for update.
	LockVoting(ctx context.Context, votingID uint64) (entities.Voting, error)
	AppendBallot(ctx context.Context, ballot entities.Ballot) error
	Owner(ctx context.Context) (entities.Address, error)
	SetOwner(ctx context.Context, owner entities.Address) error

	GetIdempotency(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutIdempotency(ctx context.Context, record IdempotencyRecord) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	VotingID    uint64
	ExpiresAt   time.Time
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope is the canonical event shape written to the outbox.
type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// MetricsRecorder counts command outcomes. A nil recorder is allowed.
type MetricsRecorder interface {
	ObserveCommand(command string, outcome string)
}
