package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	ballotengine "ballotbox/contexts/governance/ballot-engine"
	ballotdomainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	ballothttp "ballotbox/contexts/governance/ballot-engine/transport/http"

	_ "ballotbox/internal/platform/httpserver/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	callerHeader = "X-Caller-Address"
	maxBodyBytes = 1 << 20
)

type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	addr    string
	ballots ballotengine.Module
}

// New registers the ballot routes. metrics may be nil, in which case
// /metrics is not served.
func New(
	ballots ballotengine.Module,
	metrics http.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		ballots: ballots,
	}
	s.registerRoutes(metrics)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// NewMetricsServer serves only /metrics. Processes without the ballot API use
// it to expose their counters.
func NewMetricsServer(metrics http.Handler, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":9091"
	}
	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
	}
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes(metrics http.Handler) {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}

	s.mux.HandleFunc("POST /v1/votings", s.handleHostVoting)
	s.mux.HandleFunc("GET /v1/votings", s.handleListVotings)
	s.mux.HandleFunc("GET /v1/votings/{voting_id}", s.handleGetVoting)
	s.mux.HandleFunc("GET /v1/votings/{voting_id}/candidates", s.handleCandidateVotes)
	s.mux.HandleFunc("GET /v1/votings/{voting_id}/results", s.handleResult)
	s.mux.HandleFunc("GET /v1/votings/{voting_id}/eligibility", s.handleEligibility)
	s.mux.HandleFunc("POST /v1/votings/{voting_id}/votes", s.handleCastVote)

	s.mux.HandleFunc("GET /v1/ownership", s.handleOwner)
	s.mux.HandleFunc("POST /v1/ownership/transfer", s.handleTransferOwnership)
}

func (s *Server) handleHostVoting(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req ballothttp.HostVotingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ballots.Handler.HostVotingHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListVotings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.ListVotingsHandler(r.Context(), r.URL.Query().Get("phase"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoting(w http.ResponseWriter, r *http.Request) {
	votingID, ok := parseVotingID(w, r)
	if !ok {
		return
	}
	resp, err := s.ballots.Handler.GetVotingHandler(r.Context(), votingID)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCandidateVotes(w http.ResponseWriter, r *http.Request) {
	votingID, ok := parseVotingID(w, r)
	if !ok {
		return
	}
	resp, err := s.ballots.Handler.CandidateVotesHandler(r.Context(), votingID)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	votingID, ok := parseVotingID(w, r)
	if !ok {
		return
	}
	resp, err := s.ballots.Handler.ResultHandler(r.Context(), votingID)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	votingID, ok := parseVotingID(w, r)
	if !ok {
		return
	}
	voter := strings.TrimSpace(r.URL.Query().Get("voter"))
	if voter == "" {
		voter = strings.TrimSpace(r.Header.Get(callerHeader))
	}
	if voter == "" {
		writeBallotError(w, http.StatusBadRequest, "missing_voter", "voter query parameter or "+callerHeader+" header is required")
		return
	}
	resp, err := s.ballots.Handler.EligibilityHandler(r.Context(), votingID, voter)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	votingID, ok := parseVotingID(w, r)
	if !ok {
		return
	}
	var req ballothttp.CastVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ballots.Handler.CastVoteHandler(r.Context(), votingID, caller, req); err != nil {
		writeBallotDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.OwnerHandler(r.Context())
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req ballothttp.TransferOwnershipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ballots.Handler.TransferOwnershipHandler(r.Context(), caller, req); err != nil {
		writeBallotDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBallotError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body exceeds 1 MiB")
			return false
		}
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get(callerHeader))
	if caller == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_caller", callerHeader+" header is required")
		return "", false
	}
	return caller, true
}

func parseVotingID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	votingID, err := strconv.ParseUint(r.PathValue("voting_id"), 10, 64)
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_voting_id", "voting_id must be a non-negative integer")
		return 0, false
	}
	return votingID, true
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrEmptyTitle):
		writeBallotError(w, http.StatusBadRequest, "empty_title", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidTimeWindow):
		writeBallotError(w, http.StatusBadRequest, "invalid_time_window", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInsufficientCandidates):
		writeBallotError(w, http.StatusBadRequest, "insufficient_candidates", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrDuplicateCandidate):
		writeBallotError(w, http.StatusBadRequest, "duplicate_candidate", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidCandidateAddress):
		writeBallotError(w, http.StatusBadRequest, "invalid_candidate_address", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrEmptyVoterList):
		writeBallotError(w, http.StatusBadRequest, "empty_voter_list", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrDuplicateVoter):
		writeBallotError(w, http.StatusBadRequest, "duplicate_voter", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidVoterAddress):
		writeBallotError(w, http.StatusBadRequest, "invalid_voter_address", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidAddress):
		writeBallotError(w, http.StatusBadRequest, "invalid_address", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrIncorrectPayment):
		writeBallotError(w, http.StatusPaymentRequired, "incorrect_payment", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrNotFound):
		writeBallotError(w, http.StatusNotFound, "voting_not_found", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrUnauthorized):
		writeBallotError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrTooEarly):
		writeBallotError(w, http.StatusConflict, "voting_not_started", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrTooLate):
		writeBallotError(w, http.StatusConflict, "voting_ended", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrVotingNotActive):
		writeBallotError(w, http.StatusConflict, "voting_not_active", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyVoted):
		writeBallotError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidCandidate):
		writeBallotError(w, http.StatusUnprocessableEntity, "invalid_candidate", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrIdempotencyConflict):
		writeBallotError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
