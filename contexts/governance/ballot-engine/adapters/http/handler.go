package httpadapter

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"ballotbox/contexts/governance/ballot-engine/application/commands"
	"ballotbox/contexts/governance/ballot-engine/application/queries"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	httptransport "ballotbox/contexts/governance/ballot-engine/transport/http"
)

type Handler struct {
	Host      commands.HostUseCase
	Votes     commands.VoteUseCase
	Ownership commands.OwnershipUseCase
	Registry  queries.RegistryUseCase
	Tally     queries.TallyUseCase
	Logger    *slog.Logger
}

// HostVotingHandler godoc
// @Summary Host a voting
// @Description Creates a voting after validating every field and the exact hosting fee.
// @Tags ballot-engine
// @Accept json
// @Produce json
// @Param X-Caller-Address header string true "Caller account address"
// @Param Idempotency-Key header string false "Replay protection key"
// @Param request body httptransport.HostVotingRequest true "Voting definition"
// @Success 201 {object} httptransport.HostVotingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 402 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/votings [post]
func (h Handler) HostVotingHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	req httptransport.HostVotingRequest,
) (httptransport.HostVotingResponse, error) {
	result, err := h.Host.Host(ctx, commands.HostCommand{
		Caller:         caller,
		IdempotencyKey: idempotencyKey,
		Title:          req.Title,
		StartTime:      time.Unix(req.StartTime, 0).UTC(),
		EndTime:        time.Unix(req.EndTime, 0).UTC(),
		Candidates:     req.Candidates,
		AllowedVoters:  req.AllowedVoters,
		Payment:        parseWei(req.PaymentWei),
	})
	if err != nil {
		return httptransport.HostVotingResponse{}, err
	}
	return httptransport.HostVotingResponse{
		VotingID: result.VotingID,
		Replayed: result.Replayed,
	}, nil
}

// ListVotingsHandler godoc
// @Summary List votings
// @Description Votings in creation order. An unknown phase value yields an empty list.
// @Tags ballot-engine
// @Produce json
// @Param phase query string false "upcoming, current or past"
// @Success 200 {object} httptransport.VotingListResponse
// @Router /v1/votings [get]
func (h Handler) ListVotingsHandler(ctx context.Context, phase string) (httptransport.VotingListResponse, error) {
	filter := entities.Phase("")
	if value := strings.ToLower(strings.TrimSpace(phase)); value != "" {
		parsed, ok := entities.ParsePhase(value)
		if !ok {
			return httptransport.VotingListResponse{Items: []httptransport.VotingSummaryResponse{}}, nil
		}
		filter = parsed
	}
	views, err := h.Registry.ListVotings(ctx, filter)
	if err != nil {
		return httptransport.VotingListResponse{}, err
	}
	items := make([]httptransport.VotingSummaryResponse, 0, len(views))
	for _, view := range views {
		items = append(items, mapSummary(view))
	}
	return httptransport.VotingListResponse{Items: items}, nil
}

// GetVotingHandler godoc
// @Summary Get a voting
// @Tags ballot-engine
// @Produce json
// @Param voting_id path int true "Voting id"
// @Success 200 {object} httptransport.VotingDetailResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/votings/{voting_id} [get]
func (h Handler) GetVotingHandler(ctx context.Context, votingID uint64) (httptransport.VotingDetailResponse, error) {
	detail, err := h.Registry.GetVoting(ctx, votingID)
	if err != nil {
		return httptransport.VotingDetailResponse{}, err
	}
	return httptransport.VotingDetailResponse{
		VotingSummaryResponse: mapSummary(detail.VotingView),
		Candidates:            addressStrings(detail.Candidates),
		AllowedVoters:         addressStrings(detail.AllowedVoters),
		BallotCount:           detail.BallotCount,
	}, nil
}

// CandidateVotesHandler godoc
// @Summary Per-candidate vote counts
// @Tags ballot-engine
// @Produce json
// @Param voting_id path int true "Voting id"
// @Success 200 {object} httptransport.CandidateVotesResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/votings/{voting_id}/candidates [get]
func (h Handler) CandidateVotesHandler(ctx context.Context, votingID uint64) (httptransport.CandidateVotesResponse, error) {
	rows, err := h.Tally.CandidateVotes(ctx, votingID)
	if err != nil {
		return httptransport.CandidateVotesResponse{}, err
	}
	return httptransport.CandidateVotesResponse{
		VotingID: votingID,
		Items:    mapTally(rows),
	}, nil
}

// ResultHandler godoc
// @Summary Tally and winners
// @Description Every candidate tied at the highest count is a winner.
// @Tags ballot-engine
// @Produce json
// @Param voting_id path int true "Voting id"
// @Success 200 {object} httptransport.ResultResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/votings/{voting_id}/results [get]
func (h Handler) ResultHandler(ctx context.Context, votingID uint64) (httptransport.ResultResponse, error) {
	result, err := h.Tally.Result(ctx, votingID)
	if err != nil {
		return httptransport.ResultResponse{}, err
	}
	return httptransport.ResultResponse{
		VotingID:   result.VotingID,
		Phase:      string(result.Phase),
		Final:      result.Final,
		TotalVotes: result.TotalVotes,
		Tally:      mapTally(result.Tally),
		Winners:    addressStrings(result.Winners),
	}, nil
}

// EligibilityHandler godoc
// @Summary Check whether a voter can vote now
// @Tags ballot-engine
// @Produce json
// @Param voting_id path int true "Voting id"
// @Param voter query string false "Voter address, defaults to the caller"
// @Success 200 {object} httptransport.EligibilityResponse
// @Router /v1/votings/{voting_id}/eligibility [get]
func (h Handler) EligibilityHandler(ctx context.Context, votingID uint64, voter string) (httptransport.EligibilityResponse, error) {
	canVote, err := h.Registry.CanVote(ctx, votingID, voter)
	if err != nil {
		return httptransport.EligibilityResponse{}, err
	}
	return httptransport.EligibilityResponse{
		VotingID: votingID,
		Voter:    strings.TrimSpace(voter),
		CanVote:  canVote,
	}, nil
}

// CastVoteHandler godoc
// @Summary Cast a ballot
// @Tags ballot-engine
// @Accept json
// @Param X-Caller-Address header string true "Voter account address"
// @Param voting_id path int true "Voting id"
// @Param request body httptransport.CastVoteRequest true "Chosen candidate"
// @Success 204
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /v1/votings/{voting_id}/votes [post]
func (h Handler) CastVoteHandler(ctx context.Context, votingID uint64, caller string, req httptransport.CastVoteRequest) error {
	return h.Votes.Vote(ctx, commands.VoteCommand{
		VotingID:  votingID,
		Caller:    caller,
		Candidate: req.Candidate,
	})
}

// OwnerHandler godoc
// @Summary Current owner
// @Tags ballot-engine
// @Produce json
// @Success 200 {object} httptransport.OwnershipResponse
// @Router /v1/ownership [get]
func (h Handler) OwnerHandler(ctx context.Context) (httptransport.OwnershipResponse, error) {
	owner, err := h.Registry.Owner(ctx)
	if err != nil {
		return httptransport.OwnershipResponse{}, err
	}
	return httptransport.OwnershipResponse{Owner: owner.String()}, nil
}

// TransferOwnershipHandler godoc
// @Summary Transfer ownership
// @Tags ballot-engine
// @Accept json
// @Param X-Caller-Address header string true "Current owner address"
// @Param request body httptransport.TransferOwnershipRequest true "New owner"
// @Success 204
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/ownership/transfer [post]
func (h Handler) TransferOwnershipHandler(ctx context.Context, caller string, req httptransport.TransferOwnershipRequest) error {
	return h.Ownership.TransferOwnership(ctx, commands.TransferOwnershipCommand{
		Caller:   caller,
		NewOwner: req.NewOwner,
	})
}

// parseWei returns nil for anything that is not a base-10 integer; the host
// command reports a nil payment as an incorrect payment.
func parseWei(value string) *big.Int {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil
	}
	return amount
}

func mapSummary(view queries.VotingView) httptransport.VotingSummaryResponse {
	return httptransport.VotingSummaryResponse{
		ID:        view.ID,
		Title:     view.Title,
		Hoster:    view.Hoster.String(),
		StartTime: view.StartTime.Unix(),
		EndTime:   view.EndTime.Unix(),
		Phase:     string(view.Phase),
	}
}

func mapTally(rows []entities.CandidateVotes) []httptransport.CandidateVotesItem {
	items := make([]httptransport.CandidateVotesItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, httptransport.CandidateVotesItem{
			Candidate: row.Candidate.String(),
			VoteCount: row.VoteCount,
		})
	}
	return items
}

func addressStrings(items []entities.Address) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
