package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

// VoteCommand is the write-model input for casting a ballot.
type VoteCommand struct {
	VotingID  uint64
	Caller    string
	Candidate string
}

// VoteUseCase records ballots. The voting is locked for the duration of the
// check and the append, and the clock is read under that lock, so the phase
// is evaluated at the instant the ballot commits.
type VoteUseCase struct {
	Ledger  ports.Ledger
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Metrics ports.MetricsRecorder
	Logger  *slog.Logger
}

func (uc VoteUseCase) Vote(ctx context.Context, cmd VoteCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("ballot processing started",
		"event", "ballot_vote_started",
		"module", application.Module,
		"layer", "application",
		"voting_id", cmd.VotingID,
		"voter", strings.TrimSpace(cmd.Caller),
	)

	castAt, err := uc.vote(ctx, cmd)
	application.Observe(uc.Metrics, "vote", outcome(err))
	if err != nil {
		if isRejection(err) {
			logger.Warn("ballot rejected",
				"event", "ballot_vote_rejected",
				"module", application.Module,
				"layer", "application",
				"voting_id", cmd.VotingID,
				"voter", strings.TrimSpace(cmd.Caller),
				"candidate", strings.TrimSpace(cmd.Candidate),
				"reason", err.Error(),
			)
		} else {
			logger.Error("ballot failed",
				"event", "ballot_vote_failed",
				"module", application.Module,
				"layer", "application",
				"voting_id", cmd.VotingID,
				"voter", strings.TrimSpace(cmd.Caller),
				"error", err.Error(),
			)
		}
		return err
	}

	logger.Info("ballot cast",
		"event", "ballot_vote_cast",
		"module", application.Module,
		"layer", "application",
		"voting_id", cmd.VotingID,
		"voter", strings.TrimSpace(cmd.Caller),
		"candidate", strings.TrimSpace(cmd.Candidate),
		"cast_at", castAt.Format(time.RFC3339),
	)
	return nil
}

func (uc VoteUseCase) vote(ctx context.Context, cmd VoteCommand) (time.Time, error) {
	// Unparsable identities fall through as the zero address, which is never
	// eligible and never a candidate, so the error surfaces at its usual place
	// in the precondition order.
	voter, _ := entities.ParseAddress(cmd.Caller)
	candidate, _ := entities.ParseAddress(cmd.Candidate)

	var castAt time.Time
	err := uc.Ledger.Atomically(ctx, func(tx ports.LedgerTx) error {
		voting, err := tx.LockVoting(ctx, cmd.VotingID)
		if err != nil {
			return err
		}
		now := uc.now()
		if err := voting.CheckBallot(voter, candidate, now); err != nil {
			return err
		}
		if err := tx.AppendBallot(ctx, entities.Ballot{
			VotingID:  voting.ID,
			Voter:     voter,
			Candidate: candidate,
			CastAt:    now,
		}); err != nil {
			return err
		}
		castAt = now
		return appendVotingEvent(ctx, tx, uc.IDGen, EventBallotCast, voting.ID, now, map[string]any{
			"voter":     voter.String(),
			"candidate": candidate.String(),
		})
	})
	return castAt, err
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
