package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

const (
	EventVotingHosted         = "voting.hosted"
	EventBallotCast           = "ballot.cast"
	EventOwnershipTransferred = "ownership.transferred"

	sourceService = "ballot-engine"
)

func newBallotEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}

// appendVotingEvent writes a voting-scoped event inside the running
// transaction. Events are partitioned by voting id.
func appendVotingEvent(
	ctx context.Context,
	tx ports.LedgerTx,
	idGen ports.IDGenerator,
	eventType string,
	votingID uint64,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	key := strconv.FormatUint(votingID, 10)
	data["voting_id"] = key
	data["occurred_at"] = occurredAt.UTC().Format(time.RFC3339)
	envelope, err := newBallotEnvelope(eventID, eventType, "voting_id", key, occurredAt, data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, envelope)
}

func addressStrings(items []entities.Address) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
