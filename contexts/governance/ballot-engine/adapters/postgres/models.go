package postgresadapter

import (
	"strings"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
)

const registryRowID = 1

// registryModel is the single row that carries the id sequence and the
// owner. Locking it serializes voting creation and ownership changes.
type registryModel struct {
	ID           int       `gorm:"column:id;primaryKey"`
	NextVotingID uint64    `gorm:"column:next_voting_id;not null"`
	Owner        string    `gorm:"column:owner;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (registryModel) TableName() string {
	return "ballot_registry"
}

type votingModel struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title         string    `gorm:"column:title;not null"`
	Hoster        string    `gorm:"column:hoster;not null"`
	StartTime     time.Time `gorm:"column:start_time;not null"`
	EndTime       time.Time `gorm:"column:end_time;not null"`
	Candidates    []string  `gorm:"column:candidates;type:jsonb;serializer:json;not null"`
	AllowedVoters []string  `gorm:"column:allowed_voters;type:jsonb;serializer:json;not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (votingModel) TableName() string {
	return "ballot_votings"
}

func votingModelFromEntity(voting entities.Voting) votingModel {
	row := votingModel{
		ID:            voting.ID,
		Title:         strings.TrimSpace(voting.Title),
		Hoster:        voting.Hoster.String(),
		StartTime:     voting.StartTime.UTC(),
		EndTime:       voting.EndTime.UTC(),
		Candidates:    addressStrings(voting.Candidates),
		AllowedVoters: addressStrings(voting.AllowedVoters),
		CreatedAt:     voting.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m votingModel) toSummary() entities.VotingSummary {
	return entities.VotingSummary{
		ID:        m.ID,
		Title:     m.Title,
		Hoster:    parseStored(m.Hoster),
		StartTime: m.StartTime.UTC(),
		EndTime:   m.EndTime.UTC(),
	}
}

func (m votingModel) toEntity(ballots []ballotModel) entities.Voting {
	items := make([]entities.Ballot, 0, len(ballots))
	for _, ballot := range ballots {
		items = append(items, ballot.toEntity())
	}
	return entities.Voting{
		ID:            m.ID,
		Title:         m.Title,
		Hoster:        parseStored(m.Hoster),
		StartTime:     m.StartTime.UTC(),
		EndTime:       m.EndTime.UTC(),
		Candidates:    parseStoredList(m.Candidates),
		AllowedVoters: parseStoredList(m.AllowedVoters),
		Ballots:       items,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

// ballotModel's primary key enforces one ballot per voter per voting.
type ballotModel struct {
	VotingID  uint64    `gorm:"column:voting_id;primaryKey;autoIncrement:false"`
	Voter     string    `gorm:"column:voter;primaryKey"`
	Candidate string    `gorm:"column:candidate;not null"`
	CastAt    time.Time `gorm:"column:cast_at;not null"`
}

func (ballotModel) TableName() string {
	return "ballot_ballots"
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		VotingID:  m.VotingID,
		Voter:     parseStored(m.Voter),
		Candidate: parseStored(m.Candidate),
		CastAt:    m.CastAt.UTC(),
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	VotingID    uint64    `gorm:"column:voting_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "ballot_idempotency"
}

const (
	outboxPending   = "pending"
	outboxPublished = "published"
)

// outboxModel rows are relayed in (created_at, seq) order. seq is assigned by
// the database at insert time.
type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	Seq          int64      `gorm:"column:seq;type:bigserial;->"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index:idx_ballot_outbox_pending,priority:1"`
	CreatedAt    time.Time  `gorm:"column:created_at;index:idx_ballot_outbox_pending,priority:2"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
}

func outboxModelFromEnvelope(envelope ports.EventEnvelope, payload []byte, fallback time.Time) outboxModel {
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if envelope.OccurredAt.IsZero() {
		row.CreatedAt = fallback.UTC()
	}
	return row
}

func (m outboxModel) toMessage() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func addressStrings(items []entities.Address) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}

// Stored addresses were validated on the way in; a row that no longer parses
// surfaces as the zero address, which no check ever accepts.
func parseStored(value string) entities.Address {
	addr, _ := entities.ParseAddress(value)
	return addr
}

func parseStoredList(values []string) []entities.Address {
	out := make([]entities.Address, 0, len(values))
	for _, value := range values {
		out = append(out, parseStored(value))
	}
	return out
}
