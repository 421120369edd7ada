package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	votingworkflow "civitas/contexts/governance/voting-workflow"
	votingerrors "civitas/contexts/governance/voting-workflow/domain/errors"
	votinghttp "civitas/contexts/governance/voting-workflow/transport/http"
	"civitas/internal/platform/accountauth"

	"github.com/ethereum/go-ethereum/common"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "civitas/internal/platform/httpserver/docs"
)

// RequestObserver records request latency. *metrics.Voting implements it.
type RequestObserver interface {
	ObserveRequest(route string, code int, elapsed time.Duration)
}

type Options struct {
	Verifier    accountauth.Verifier
	Metrics     http.Handler
	Observer    RequestObserver
	HealthCheck func(ctx context.Context) error
}

type Server struct {
	mux     *http.ServeMux
	http    *http.Server
	logger  *slog.Logger
	addr    string
	voting  votingworkflow.Module
	options Options
}

func New(
	voting votingworkflow.Module,
	options Options,
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
		voting:  voting,
		options: options,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.options.Metrics != nil {
		s.mux.Handle("GET /metrics", s.options.Metrics)
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.handle("POST /v1/elections", s.handleDeployElection)
	s.handle("GET /v1/elections/{election_id}", s.handleGetElection)
	s.handle("GET /v1/elections/{election_id}/workflow-status", s.handleWorkflowStatus)
	s.handle("POST /v1/elections/{election_id}/workflow/{action}", s.handleAdvanceWorkflow)
	s.handle("POST /v1/elections/{election_id}/voters", s.handleAddVoter)
	s.handle("GET /v1/elections/{election_id}/voters/{address}", s.handleGetVoter)
	s.handle("POST /v1/elections/{election_id}/proposals", s.handleAddProposal)
	s.handle("GET /v1/elections/{election_id}/proposals", s.handleListProposals)
	s.handle("GET /v1/elections/{election_id}/proposals/{proposal_id}", s.handleGetProposal)
	s.handle("POST /v1/elections/{election_id}/votes", s.handleSetVote)
	s.handle("GET /v1/elections/{election_id}/winner", s.handleWinner)
	s.handle("GET /v1/elections/{election_id}/events", s.handleListEvents)
}

// handle registers fn under pattern and records its latency with the
// pattern as the route label.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if s.options.Observer == nil {
			fn(w, r)
			return
		}
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		fn(recorder, r)
		s.options.Observer.ObserveRequest(pattern, recorder.status, time.Since(started))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.options.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.options.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed",
				"event", "http_health_check_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"error", err.Error(),
			)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeployElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.DeployElectionHandler(r.Context(), caller)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.GetElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.WorkflowStatusHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdvanceWorkflow(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.AdvanceWorkflowHandler(
		r.Context(),
		r.PathValue("election_id"),
		caller,
		r.PathValue("action"),
		r.Header.Get("Idempotency-Key"),
	)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddVoter(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req votinghttp.AddVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.AddVoterHandler(
		r.Context(),
		r.PathValue("election_id"),
		caller,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.GetVoterHandler(r.Context(), r.PathValue("election_id"), r.PathValue("address"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req votinghttp.AddProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.AddProposalHandler(
		r.Context(),
		r.PathValue("election_id"),
		caller,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListProposalsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, err := strconv.ParseUint(r.PathValue("proposal_id"), 10, 64)
	if err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be an unsigned integer")
		return
	}
	resp, err := s.voting.Handler.GetProposalHandler(r.Context(), r.PathValue("election_id"), proposalID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req votinghttp.SetVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.SetVoteHandler(
		r.Context(),
		r.PathValue("election_id"),
		caller,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.WinnerHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListEventsHandler(
		r.Context(),
		r.PathValue("election_id"),
		r.URL.Query().Get("kind"),
	)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	caller, err := s.options.Verifier.Authenticate(r)
	if err != nil {
		s.logger.Warn("caller authentication failed",
			"event", "http_caller_authentication_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		if errors.Is(err, accountauth.ErrBodyTooLarge) {
			writeVotingError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return common.Address{}, false
		}
		writeVotingError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return common.Address{}, false
	}
	return caller, true
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	var revert *votingerrors.Revert
	if errors.As(err, &revert) {
		writeVotingError(w, revertStatus(revert), string(revert.Class), revert.Reason)
		return
	}
	switch {
	case errors.Is(err, votingerrors.ErrElectionNotFound):
		writeVotingError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, votingerrors.ErrIdempotencyConflict):
		writeVotingError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, votingerrors.ErrConflict):
		writeVotingError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func revertStatus(revert *votingerrors.Revert) int {
	switch revert {
	case votingerrors.ErrNotVoter:
		return http.StatusForbidden
	case votingerrors.ErrProposalNotFound:
		return http.StatusNotFound
	}
	switch revert.Class {
	case votingerrors.ClassAuthorization:
		return http.StatusForbidden
	case votingerrors.ClassStage, votingerrors.ClassRegistry, votingerrors.ClassDuplicateAction:
		return http.StatusConflict
	case votingerrors.ClassValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
