package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

// HostCommand is the write-model input for voting creation.
type HostCommand struct {
	Caller         string
	IdempotencyKey string
	Title          string
	StartTime      time.Time
	EndTime        time.Time
	Candidates     []string
	AllowedVoters  []string
	Payment        *big.Int
}

// HostResult carries the assigned id. Replayed is set when an earlier call
// with the same idempotency key already created the voting.
type HostResult struct {
	VotingID uint64
	Replayed bool
}

// HostUseCase appends new votings to the registry.
type HostUseCase struct {
	Ledger         ports.Ledger
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Metrics        ports.MetricsRecorder
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Host validates the request completely before touching the ledger, then
// assigns the next sequential id inside a single ledger transaction.
func (uc HostUseCase) Host(ctx context.Context, cmd HostCommand) (HostResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("voting host processing started",
		"event", "ballot_voting_host_started",
		"module", application.Module,
		"layer", "application",
		"caller", strings.TrimSpace(cmd.Caller),
		"title", strings.TrimSpace(cmd.Title),
	)

	result, err := uc.host(ctx, cmd)
	application.Observe(uc.Metrics, "host", outcome(err))
	if err != nil {
		if isRejection(err) {
			logger.Warn("voting host rejected",
				"event", "ballot_voting_host_rejected",
				"module", application.Module,
				"layer", "application",
				"caller", strings.TrimSpace(cmd.Caller),
				"reason", err.Error(),
			)
		} else {
			logger.Error("voting host failed",
				"event", "ballot_voting_host_failed",
				"module", application.Module,
				"layer", "application",
				"caller", strings.TrimSpace(cmd.Caller),
				"error", err.Error(),
			)
		}
		return HostResult{}, err
	}

	logger.Info("voting hosted",
		"event", "ballot_voting_hosted",
		"module", application.Module,
		"layer", "application",
		"voting_id", result.VotingID,
		"caller", strings.TrimSpace(cmd.Caller),
		"replayed", result.Replayed,
	)
	return result, nil
}

func (uc HostUseCase) host(ctx context.Context, cmd HostCommand) (HostResult, error) {
	hoster, err := entities.ParseAddress(cmd.Caller)
	if err != nil {
		return HostResult{}, domainerrors.ErrUnauthorized
	}
	draft, err := entities.NewVoting(entities.HostRequest{
		Title:         cmd.Title,
		Hoster:        hoster,
		StartTime:     cmd.StartTime,
		EndTime:       cmd.EndTime,
		Candidates:    cmd.Candidates,
		AllowedVoters: cmd.AllowedVoters,
		Payment:       cmd.Payment,
	}, uc.now())
	if err != nil {
		return HostResult{}, err
	}

	key := strings.TrimSpace(cmd.IdempotencyKey)
	requestHash := hashHostCommand(hoster, draft)

	var result HostResult
	err = uc.Ledger.Atomically(ctx, func(tx ports.LedgerTx) error {
		// Two hosts racing on one key must not both miss the lookup.
		if err := tx.LockRegistry(ctx); err != nil {
			return err
		}
		now := uc.now()
		if key != "" {
			record, found, err := tx.GetIdempotency(ctx, key, now)
			if err != nil {
				return err
			}
			if found {
				if record.RequestHash != requestHash {
					return domainerrors.ErrIdempotencyConflict
				}
				result = HostResult{VotingID: record.VotingID, Replayed: true}
				return nil
			}
		}

		voting := draft
		voting.CreatedAt = now
		votingID, err := tx.AppendVoting(ctx, voting)
		if err != nil {
			return err
		}
		if err := appendVotingEvent(ctx, tx, uc.IDGen, EventVotingHosted, votingID, now, map[string]any{
			"title":          voting.Title,
			"hoster":         voting.Hoster.String(),
			"start_time":     voting.StartTime.Unix(),
			"end_time":       voting.EndTime.Unix(),
			"candidates":     addressStrings(voting.Candidates),
			"allowed_voters": len(voting.AllowedVoters),
		}); err != nil {
			return err
		}
		if key != "" {
			if err := tx.PutIdempotency(ctx, ports.IdempotencyRecord{
				Key:         key,
				RequestHash: requestHash,
				VotingID:    votingID,
				ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
			}); err != nil {
				return err
			}
		}
		result = HostResult{VotingID: votingID}
		return nil
	})
	if err != nil {
		return HostResult{}, err
	}
	return result, nil
}

func (uc HostUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc HostUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func hashHostCommand(hoster entities.Address, voting entities.Voting) string {
	payload := map[string]any{
		"hoster":         hoster.String(),
		"title":          voting.Title,
		"start_time":     voting.StartTime.Unix(),
		"end_time":       voting.EndTime.Unix(),
		"candidates":     addressStrings(voting.Candidates),
		"allowed_voters": addressStrings(voting.AllowedVoters),
		"op":             "host_voting",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
