package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/config"
	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the status of each dependency
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// SyncRequest scopes a triggered run. All fields are optional.
type SyncRequest struct {
	Entities    []string `json:"entities,omitempty" example:"batches,headers,lines"`
	CreatedFrom string   `json:"created_from,omitempty" example:"2024-01-01"`
	CreatedTo   string   `json:"created_to,omitempty" example:"2024-01-31"`
	LedgerID    *int64   `json:"ledger_id,omitempty"`
	Status      string   `json:"status,omitempty" example:"POSTED"`
	PageSize    int      `json:"page_size,omitempty" example:"25"`
}

// RunOptions converts the request into orchestrator run options.
func (r SyncRequest) RunOptions() (domain.RunOptions, error) {
	return config.SyncConfig{
		PageSize:    r.PageSize,
		Entities:    r.Entities,
		CreatedFrom: r.CreatedFrom,
		CreatedTo:   r.CreatedTo,
		LedgerID:    r.LedgerID,
		Status:      r.Status,
	}.RunOptions()
}

// SyncAcceptedResponse represents the response when sync is triggered
type SyncAcceptedResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status" example:"accepted"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the run store and lock backends
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Sync endpoints

// handleStartSync godoc
// @Summary      Trigger a sync run
// @Description  Starts a run in the background. Only one run may be active.
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      SyncRequest  false  "Run scope"
// @Success      202      {object}  SyncAcceptedResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse  "Sync already in progress"
// @Router       /sync [post]
func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts, err := req.RunOptions()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts.TriggeredBy = "api"
	if claims := GetClaims(r.Context()); claims != nil && claims.Subject != "" {
		opts.TriggeredBy = "api:" + claims.Subject
	}

	runID, err := s.syncService.Start(r.Context(), opts)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("failed to start sync", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to start sync")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, SyncAcceptedResponse{RunID: runID, Status: "accepted"})
}

// handleSyncStatus godoc
// @Summary      Current sync progress
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.RunProgress
// @Router       /sync/status [get]
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.syncService.Progress(r.Context()))
}

// handleCancelSync godoc
// @Summary      Cancel the active run
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  StatusResponse
// @Failure      409  {object}  ErrorResponse  "No sync running"
// @Router       /sync/cancel [post]
func (s *Server) handleCancelSync(w http.ResponseWriter, r *http.Request) {
	if err := s.syncService.Cancel(r.Context()); err != nil {
		if errors.Is(err, domain.ErrSyncNotRunning) {
			writeError(w, http.StatusConflict, "no sync running")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to cancel sync")
		return
	}

	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "cancelling"})
}

// handleListRuns godoc
// @Summary      Run history
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum runs to return"
// @Success      200    {array}   domain.SyncLogEntry
// @Router       /sync/runs [get]
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.syncService.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*domain.SyncLogEntry{}
	}

	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun godoc
// @Summary      Get one run
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  domain.SyncLogEntry
// @Failure      404  {object}  ErrorResponse
// @Router       /sync/runs/{id} [get]
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	entry, err := s.syncService.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// handleTestConnection godoc
// @Summary      Test the source connection
// @Description  Issues a minimal authenticated request against the source system
// @Tags         Connection
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ConnectionResult
// @Router       /connection/test [post]
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.syncService.TestConnection(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
