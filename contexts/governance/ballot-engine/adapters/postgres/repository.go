package postgresadapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errRegistryMissing = errors.New("ballot registry is not initialised")

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the ballot tables.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&registryModel{},
		&votingModel{},
		&ballotModel{},
		&idempotencyModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("ballot_repo_auto_migrate_failed", err)
	}
	return nil
}

// EnsureOwner creates the registry row with owner when it does not exist yet.
// An existing row, and therefore an already transferred owner, is kept.
func (r *Repository) EnsureOwner(ctx context.Context, owner entities.Address) error {
	if owner.IsZero() {
		return domainerrors.ErrInvalidAddress
	}
	row := registryModel{
		ID:           registryRowID,
		NextVotingID: 0,
		Owner:        owner.String(),
		UpdatedAt:    time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ballot_repo_ensure_owner_failed", create.Error, "owner", owner.String())
	}
	return nil
}

func (r *Repository) Atomically(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{repo: r, db: tx})
	})
}

func (r *Repository) ListVotings(ctx context.Context) ([]entities.VotingSummary, error) {
	var rows []votingModel
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_votings_failed", err)
	}
	items := make([]entities.VotingSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toSummary())
	}
	return items, nil
}

// GetVoting reads the voting and its ballots from one snapshot.
func (r *Repository) GetVoting(ctx context.Context, votingID uint64) (entities.Voting, error) {
	var voting entities.Voting
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := loadVoting(tx, votingID)
		if err != nil {
			return err
		}
		voting = loaded
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return entities.Voting{}, err
		}
		return entities.Voting{}, r.logError("ballot_repo_get_voting_failed", err, "voting_id", votingID)
	}
	return voting, nil
}

func (r *Repository) GetOwner(ctx context.Context) (entities.Address, error) {
	var row registryModel
	err := r.db.WithContext(ctx).
		Where("id = ?", registryRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = errRegistryMissing
		}
		return entities.Address{}, r.logError("ballot_repo_get_owner_failed", err)
	}
	return parseStored(row.Owner), nil
}

type ledgerTx struct {
	repo *Repository
	db   *gorm.DB
}

func (tx *ledgerTx) lockRegistry() (registryModel, error) {
	var row registryModel
	err := tx.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", registryRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = errRegistryMissing
		}
		return registryModel{}, tx.repo.logError("ballot_repo_lock_registry_failed", err)
	}
	return row, nil
}

func (tx *ledgerTx) LockRegistry(_ context.Context) error {
	_, err := tx.lockRegistry()
	return err
}

// AppendVoting takes the id from the locked registry row, so ids are gapless
// even when a later step of the same transaction fails.
func (tx *ledgerTx) AppendVoting(ctx context.Context, voting entities.Voting) (uint64, error) {
	registry, err := tx.lockRegistry()
	if err != nil {
		return 0, err
	}
	voting.ID = registry.NextVotingID
	row := votingModelFromEntity(voting)
	if err := tx.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, domainerrors.ErrConflict
		}
		return 0, tx.repo.logError("ballot_repo_append_voting_failed", err, "voting_id", voting.ID)
	}
	if err := tx.db.WithContext(ctx).Model(&registryModel{}).
		Where("id = ?", registryRowID).
		Updates(map[string]any{
			"next_voting_id": voting.ID + 1,
			"updated_at":     time.Now().UTC(),
		}).Error; err != nil {
		return 0, tx.repo.logError("ballot_repo_advance_sequence_failed", err, "voting_id", voting.ID)
	}
	return voting.ID, nil
}

func (tx *ledgerTx) LockVoting(ctx context.Context, votingID uint64) (entities.Voting, error) {
	var row votingModel
	err := tx.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", votingID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voting{}, domainerrors.ErrNotFound
		}
		return entities.Voting{}, tx.repo.logError("ballot_repo_lock_voting_failed", err, "voting_id", votingID)
	}
	ballots, err := loadBallots(tx.db.WithContext(ctx), votingID)
	if err != nil {
		return entities.Voting{}, tx.repo.logError("ballot_repo_load_ballots_failed", err, "voting_id", votingID)
	}
	return row.toEntity(ballots), nil
}

func (tx *ledgerTx) AppendBallot(ctx context.Context, ballot entities.Ballot) error {
	row := ballotModel{
		VotingID:  ballot.VotingID,
		Voter:     ballot.Voter.String(),
		Candidate: ballot.Candidate.String(),
		CastAt:    ballot.CastAt.UTC(),
	}
	if err := tx.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return tx.repo.logError("ballot_repo_append_ballot_failed", err,
			"voting_id", ballot.VotingID,
			"voter", row.Voter,
		)
	}
	return nil
}

func (tx *ledgerTx) Owner(_ context.Context) (entities.Address, error) {
	registry, err := tx.lockRegistry()
	if err != nil {
		return entities.Address{}, err
	}
	return parseStored(registry.Owner), nil
}

func (tx *ledgerTx) SetOwner(ctx context.Context, owner entities.Address) error {
	if owner.IsZero() {
		return domainerrors.ErrInvalidAddress
	}
	result := tx.db.WithContext(ctx).Model(&registryModel{}).
		Where("id = ?", registryRowID).
		Updates(map[string]any{
			"owner":      owner.String(),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return tx.repo.logError("ballot_repo_set_owner_failed", result.Error, "owner", owner.String())
	}
	if result.RowsAffected == 0 {
		return tx.repo.logError("ballot_repo_set_owner_failed", errRegistryMissing, "owner", owner.String())
	}
	return nil
}

func (tx *ledgerTx) GetIdempotency(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := tx.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, tx.repo.logError("ballot_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.UTC().After(now.UTC()) {
		if err := tx.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, tx.repo.logError("ballot_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		VotingID:    row.VotingID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (tx *ledgerTx) PutIdempotency(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		VotingID:    record.VotingID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := tx.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return tx.repo.logError("ballot_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := tx.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return tx.repo.logError("ballot_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.VotingID != row.VotingID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (tx *ledgerTx) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	return tx.repo.appendOutbox(tx.db.WithContext(ctx), envelope)
}

func loadVoting(db *gorm.DB, votingID uint64) (entities.Voting, error) {
	var row votingModel
	err := db.Where("id = ?", votingID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voting{}, domainerrors.ErrNotFound
		}
		return entities.Voting{}, err
	}
	ballots, err := loadBallots(db, votingID)
	if err != nil {
		return entities.Voting{}, err
	}
	return row.toEntity(ballots), nil
}

func loadBallots(db *gorm.DB, votingID uint64) ([]ballotModel, error) {
	var rows []ballotModel
	if err := db.
		Where("voting_id = ?", votingID).
		Order("cast_at ASC, voter ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/ballot-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Ledger = (*Repository)(nil)
var _ ports.VotingReader = (*Repository)(nil)
var _ ports.LedgerTx = (*ledgerTx)(nil)
