package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ballotengine "ballotbox/contexts/governance/ballot-engine"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	ballothttp "ballotbox/contexts/governance/ballot-engine/transport/http"
	"ballotbox/internal/platform/metrics"
)

const (
	testOwner      = "0x1111111111111111111111111111111111111111"
	testCandidateA = "0x2222222222222222222222222222222222222222"
	testCandidateB = "0x3333333333333333333333333333333333333333"
	testVoterA     = "0x4444444444444444444444444444444444444444"
	testVoterB     = "0x5555555555555555555555555555555555555555"
	testStranger   = "0x6666666666666666666666666666666666666666"
)

func newTestServer() *Server {
	ballotMetrics := metrics.PromBallotMetrics()
	module := ballotengine.NewInMemoryModule(entities.MustParseAddress(testOwner), ballotMetrics, nil)
	return New(module, ballotMetrics.Handler(), nil, "")
}

func doRequest(server *Server, method string, path string, caller string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func openVotingRequest() ballothttp.HostVotingRequest {
	now := time.Now().UTC()
	return ballothttp.HostVotingRequest{
		Title:         "steering committee",
		StartTime:     now.Add(-time.Minute).Unix(),
		EndTime:       now.Add(time.Hour).Unix(),
		Candidates:    []string{testCandidateA, testCandidateB},
		AllowedVoters: []string{testVoterA, testVoterB},
		PaymentWei:    entities.HostingFeeWei.String(),
	}
}

func hostOpenVoting(t *testing.T, server *Server) uint64 {
	t.Helper()
	rr := doRequest(server, http.MethodPost, "/v1/votings", testOwner, openVotingRequest())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp ballothttp.HostVotingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode host response: %v", err)
	}
	return resp.VotingID
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ballothttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v body=%s", err, rr.Body.String())
	}
	return resp.Code
}

func TestHostVotingRequiresCaller(t *testing.T) {
	server := newTestServer()

	rr := doRequest(server, http.MethodPost, "/v1/votings", "", openVotingRequest())
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := errorCode(t, rr); code != "missing_caller" {
		t.Fatalf("expected missing_caller, got %s", code)
	}
}

func TestHostVotingMapsValidationErrors(t *testing.T) {
	server := newTestServer()

	cases := []struct {
		name   string
		mutate func(req *ballothttp.HostVotingRequest)
		status int
		code   string
	}{
		{"empty title", func(req *ballothttp.HostVotingRequest) { req.Title = "" }, http.StatusBadRequest, "empty_title"},
		{"window", func(req *ballothttp.HostVotingRequest) { req.EndTime = req.StartTime }, http.StatusBadRequest, "invalid_time_window"},
		{"one candidate", func(req *ballothttp.HostVotingRequest) { req.Candidates = req.Candidates[:1] }, http.StatusBadRequest, "insufficient_candidates"},
		{"duplicate voter", func(req *ballothttp.HostVotingRequest) {
			req.AllowedVoters = []string{testVoterA, testVoterA}
		}, http.StatusBadRequest, "duplicate_voter"},
		{"wrong fee", func(req *ballothttp.HostVotingRequest) { req.PaymentWei = "1" }, http.StatusPaymentRequired, "incorrect_payment"},
		{"unparsable fee", func(req *ballothttp.HostVotingRequest) { req.PaymentWei = "0.001" }, http.StatusPaymentRequired, "incorrect_payment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := openVotingRequest()
			tc.mutate(&req)
			rr := doRequest(server, http.MethodPost, "/v1/votings", testOwner, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if code := errorCode(t, rr); code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, code)
			}
		})
	}
}

func TestHostVotingReplaysIdempotencyKey(t *testing.T) {
	server := newTestServer()
	body, _ := json.Marshal(openVotingRequest())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/votings", bytes.NewReader(body))
		req.Header.Set(callerHeader, testOwner)
		req.Header.Set("Idempotency-Key", "idem-http-1")
		rr := httptest.NewRecorder()
		server.mux.ServeHTTP(rr, req)
		return rr
	}

	if rr := send(); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr := send()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp ballothttp.HostVotingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Replayed || resp.VotingID != 0 {
		t.Fatalf("expected replay of voting 0, got %+v", resp)
	}
}

func TestVotingLifecycleOverHTTP(t *testing.T) {
	server := newTestServer()
	votingID := hostOpenVoting(t, server)
	base := fmt.Sprintf("/v1/votings/%d", votingID)

	rr := doRequest(server, http.MethodGet, base+"/eligibility?voter="+testVoterA, "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"can_vote":true`) {
		t.Fatalf("expected eligible voter, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodPost, base+"/votes", testVoterA, ballothttp.CastVoteRequest{Candidate: testCandidateB})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodPost, base+"/votes", testVoterA, ballothttp.CastVoteRequest{Candidate: testCandidateA})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "already_voted" {
		t.Fatalf("expected already_voted, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodPost, base+"/votes", testStranger, ballothttp.CastVoteRequest{Candidate: testCandidateA})
	if rr.Code != http.StatusForbidden || errorCode(t, rr) != "unauthorized" {
		t.Fatalf("expected unauthorized, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodPost, base+"/votes", testVoterB, ballothttp.CastVoteRequest{Candidate: testStranger})
	if rr.Code != http.StatusUnprocessableEntity || errorCode(t, rr) != "invalid_candidate" {
		t.Fatalf("expected invalid_candidate, got %d body=%s", rr.Code, rr.Body.String())
	}

	// The eligibility endpoint falls back to the caller header.
	rr = doRequest(server, http.MethodGet, base+"/eligibility", testVoterA, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"can_vote":false`) {
		t.Fatalf("expected voter to be spent, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, base+"/candidates", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var votes ballothttp.CandidateVotesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &votes); err != nil {
		t.Fatalf("decode candidates: %v", err)
	}
	if len(votes.Items) != 2 || votes.Items[0].VoteCount != 0 || votes.Items[1].VoteCount != 1 {
		t.Fatalf("unexpected candidate votes: %+v", votes.Items)
	}

	rr = doRequest(server, http.MethodGet, base+"/results", "", nil)
	var result ballothttp.ResultResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if result.Final || result.Phase != "current" || result.TotalVotes != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Winners) != 1 || result.Winners[0] != testCandidateB {
		t.Fatalf("expected candidate B to lead, got %v", result.Winners)
	}

	rr = doRequest(server, http.MethodGet, base, "", nil)
	var detail ballothttp.VotingDetailResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.BallotCount != 1 || detail.Hoster != testOwner || detail.Phase != "current" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestVotingLookupErrors(t *testing.T) {
	server := newTestServer()

	rr := doRequest(server, http.MethodGet, "/v1/votings/7", "", nil)
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "voting_not_found" {
		t.Fatalf("expected voting_not_found, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/votings/-1/results", "", nil)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "invalid_voting_id" {
		t.Fatalf("expected invalid_voting_id, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/votings/7/eligibility", "", nil)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "missing_voter" {
		t.Fatalf("expected missing_voter, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/votings/7/eligibility?voter="+testVoterA, "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"can_vote":false`) {
		t.Fatalf("expected false eligibility for unknown voting, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListVotingsByPhase(t *testing.T) {
	server := newTestServer()
	hostOpenVoting(t, server)

	for query, want := range map[string]int{
		"":                1,
		"?phase=current":  1,
		"?phase=CURRENT":  1,
		"?phase=upcoming": 0,
		"?phase=bogus":    0,
	} {
		rr := doRequest(server, http.MethodGet, "/v1/votings"+query, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", query, rr.Code)
		}
		var list ballothttp.VotingListResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
			t.Fatalf("%q: decode: %v", query, err)
		}
		if len(list.Items) != want {
			t.Fatalf("%q: expected %d items, got %d", query, want, len(list.Items))
		}
	}
}

func TestOwnershipTransferOverHTTP(t *testing.T) {
	server := newTestServer()

	rr := doRequest(server, http.MethodPost, "/v1/ownership/transfer", testStranger, ballothttp.TransferOwnershipRequest{NewOwner: testStranger})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodPost, "/v1/ownership/transfer", testOwner, ballothttp.TransferOwnershipRequest{NewOwner: "0x00"})
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "invalid_address" {
		t.Fatalf("expected invalid_address, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodPost, "/v1/ownership/transfer", testOwner, ballothttp.TransferOwnershipRequest{NewOwner: testVoterA})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/v1/ownership", "", nil)
	var resp ballothttp.OwnershipResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode owner: %v", err)
	}
	if resp.Owner != testVoterA {
		t.Fatalf("expected owner %s, got %s", testVoterA, resp.Owner)
	}
}

func TestMetricsEndpointCountsCommands(t *testing.T) {
	server := newTestServer()
	hostOpenVoting(t, server)

	rr := doRequest(server, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `ballotbox_ballot_commands_total{command="host",outcome="accepted"} 1`) {
		t.Fatalf("expected host counter, body=%s", rr.Body.String())
	}
}

func TestRejectsMalformedJSON(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/votings", strings.NewReader("{"))
	req.Header.Set(callerHeader, testOwner)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "invalid_json" {
		t.Fatalf("expected invalid_json, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRejectsOversizedBodies(t *testing.T) {
	server := newTestServer()
	votingID := hostOpenVoting(t, server)
	huge := `{"title":"` + strings.Repeat("a", 2*maxBodyBytes) + `"}`

	for _, path := range []string{
		"/v1/votings",
		fmt.Sprintf("/v1/votings/%d/votes", votingID),
		"/v1/ownership/transfer",
	} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(huge))
		req.Header.Set(callerHeader, testOwner)
		rr := httptest.NewRecorder()
		server.mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestEntityTooLarge || errorCode(t, rr) != "request_too_large" {
			t.Fatalf("%s: expected request_too_large, got %d", path, rr.Code)
		}
	}

	rr := doRequest(server, http.MethodGet, "/v1/votings", "", nil)
	var list ballothttp.VotingListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected only the hosted voting, got %d", len(list.Items))
	}
}

func TestMetricsServerServesOnlyMetrics(t *testing.T) {
	ballotMetrics := metrics.PromBallotMetrics()
	ballotMetrics.ObserveCommand("outbox_publish", "published")
	server := NewMetricsServer(ballotMetrics.Handler(), nil, "")
	if server.addr != ":9091" {
		t.Fatalf("expected default metrics addr, got %s", server.addr)
	}

	rr := doRequest(server, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `ballotbox_ballot_commands_total{command="outbox_publish",outcome="published"} 1`) {
		t.Fatalf("expected relay counter, body=%s", rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/v1/votings", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected ballot routes to be absent, got %d", rr.Code)
	}
}
