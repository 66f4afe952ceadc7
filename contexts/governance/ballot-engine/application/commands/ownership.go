package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

type TransferOwnershipCommand struct {
	Caller   string
	NewOwner string
}

// OwnershipUseCase guards and mutates the single administrative identity.
type OwnershipUseCase struct {
	Ledger  ports.Ledger
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Metrics ports.MetricsRecorder
	Logger  *slog.Logger
}

// RequireOwner fails with ErrUnauthorized unless caller is the current owner
// as seen by tx. Owner-only operations call it first inside their transaction.
func RequireOwner(ctx context.Context, tx ports.LedgerTx, caller entities.Address) (entities.Address, error) {
	owner, err := tx.Owner(ctx)
	if err != nil {
		return entities.Address{}, err
	}
	if caller.IsZero() || caller != owner {
		return entities.Address{}, domainerrors.ErrUnauthorized
	}
	return owner, nil
}

func (uc OwnershipUseCase) TransferOwnership(ctx context.Context, cmd TransferOwnershipCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("ownership transfer processing started",
		"event", "ballot_ownership_transfer_started",
		"module", application.Module,
		"layer", "application",
		"caller", strings.TrimSpace(cmd.Caller),
		"new_owner", strings.TrimSpace(cmd.NewOwner),
	)

	previous, err := uc.transfer(ctx, cmd)
	application.Observe(uc.Metrics, "transfer_ownership", outcome(err))
	if err != nil {
		if isRejection(err) {
			logger.Warn("ownership transfer rejected",
				"event", "ballot_ownership_transfer_rejected",
				"module", application.Module,
				"layer", "application",
				"caller", strings.TrimSpace(cmd.Caller),
				"reason", err.Error(),
			)
		} else {
			logger.Error("ownership transfer failed",
				"event", "ballot_ownership_transfer_failed",
				"module", application.Module,
				"layer", "application",
				"caller", strings.TrimSpace(cmd.Caller),
				"error", err.Error(),
			)
		}
		return err
	}

	logger.Info("ownership transferred",
		"event", "ballot_ownership_transferred",
		"module", application.Module,
		"layer", "application",
		"previous_owner", previous.String(),
		"new_owner", strings.TrimSpace(cmd.NewOwner),
	)
	return nil
}

func (uc OwnershipUseCase) transfer(ctx context.Context, cmd TransferOwnershipCommand) (entities.Address, error) {
	caller, _ := entities.ParseAddress(cmd.Caller)

	var previous entities.Address
	err := uc.Ledger.Atomically(ctx, func(tx ports.LedgerTx) error {
		owner, err := RequireOwner(ctx, tx, caller)
		if err != nil {
			return err
		}
		newOwner, err := entities.ParseAddress(cmd.NewOwner)
		if err != nil {
			return domainerrors.ErrInvalidAddress
		}
		if err := tx.SetOwner(ctx, newOwner); err != nil {
			return err
		}
		previous = owner

		now := uc.now()
		eventID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		envelope, err := newBallotEnvelope(eventID, EventOwnershipTransferred, "owner", newOwner.String(), now, map[string]any{
			"previous_owner": owner.String(),
			"owner":          newOwner.String(),
			"occurred_at":    now.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, envelope)
	})
	return previous, err
}

func (uc OwnershipUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
