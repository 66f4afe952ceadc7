package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"gorm.io/gorm"
)

// appendOutbox writes the envelope in the caller's transaction. Re-appending
// an event id with the same payload is a no-op; a different payload conflicts.
func (r *Repository) appendOutbox(db *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ballot_repo_outbox_encode_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outboxModelFromEnvelope(envelope, payload, time.Now())

	var existing outboxModel
	err = db.Select("payload").Where("outbox_id = ?", row.OutboxID).Take(&existing).Error
	switch {
	case err == nil:
		if !bytes.Equal(existing.Payload, row.Payload) {
			return domainerrors.ErrConflict
		}
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return r.logError("ballot_repo_outbox_lookup_failed", err, "outbox_id", row.OutboxID)
	}

	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ballot_repo_outbox_insert_failed", err,
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxPending).
		Order("created_at ASC, seq ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_outbox_list_pending_failed", err, "limit", limit)
	}
	messages := make([]ports.OutboxMessage, len(rows))
	for i, row := range rows {
		messages[i] = row.toMessage()
	}
	return messages, nil
}

// MarkOutboxPublished is safe to repeat; only an unknown id is an error.
func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	id := strings.TrimSpace(outboxID)
	published := publishedAt.UTC()
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", id).
		Updates(outboxModel{Status: outboxPublished, PublishedAt: &published})
	if result.Error != nil {
		return r.logError("ballot_repo_outbox_mark_published_failed", result.Error, "outbox_id", id)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

var _ ports.OutboxRepository = (*Repository)(nil)
