package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"socanalyzer/app"
	"socanalyzer/core"
	"socanalyzer/internal/logger"
	"socanalyzer/store"
)

// analyzeRequest is shared by the local and oracle-backed endpoints.
type analyzeRequest struct {
	Payload string `json:"payload"`
	Prompt  string `json:"prompt,omitempty"`
	Tags    string `json:"tags,omitempty"`
	Status  string `json:"status,omitempty"`
}

// handleAnalyze runs the local pipeline: parse, normalize, template
// report. No oracle call, nothing persisted.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	writeJSON(w, http.StatusOK, s.analyzer.AnalyzeLocal(req.Payload))
}

// handleAnalyzeOracle runs the oracle-backed analysis and persists the
// result. An oracle outage is not an error: the response carries the
// degraded heuristic analysis instead.
func (s *Server) handleAnalyzeOracle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	rc := reqCtx(r)
	result, err := s.analyzer.AnalyzeWithOracle(r.Context(), app.OracleRequest{
		Payload:      req.Payload,
		CustomPrompt: req.Prompt,
		Tags:         req.Tags,
		Status:       req.Status,
		User:         rc.User,
		ClientIP:     rc.ClientIP,
		UserAgent:    rc.UserAgent,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store analysis: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type savePatternRequest struct {
	Name        string `json:"name"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Feedback    string `json:"feedback,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

// handleSavePattern upserts a pattern from an explicit analyst action.
func (s *Server) handleSavePattern(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req savePatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	rc := reqCtx(r)
	var userID int64
	if rc.User != nil {
		userID = rc.User.ID
	}

	id, err := s.analyzer.Store.SavePattern(r.Context(), core.Pattern{
		Name:        req.Name,
		Summary:     req.Summary,
		Description: req.Description,
		Status:      req.Status,
		Feedback:    req.Feedback,
		Tags:        req.Tags,
		UserID:      userID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save pattern: %v", err)
		return
	}
	s.audit(r, "save_pattern", "pattern="+req.Name)

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": "saved"})
}

// handlePatternsHistory returns all patterns and the analysis history.
func (s *Server) handlePatternsHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	patterns, err := s.analyzer.Store.ListPatterns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list patterns: %v", err)
		return
	}
	analyses, err := s.analyzer.Store.ListAnalyses(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list analyses: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patterns": patterns,
		"analyses": analyses,
	})
}

// handleDeletePattern removes a pattern by id. Analyses keep their
// denormalized history.
func (s *Server) handleDeletePattern(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	if err := s.analyzer.Store.DeletePattern(r.Context(), id); err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "pattern not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete pattern: %v", err)
		return
	}
	s.audit(r, "delete_pattern", "id="+strconv.FormatInt(id, 10))

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type updatePatternRequest struct {
	ID          int64  `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Feedback    string `json:"feedback"`
	Tags        string `json:"tags"`
}

// handleUpdatePattern overwrites a pattern's mutable fields.
func (s *Server) handleUpdatePattern(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req updatePatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	err := s.analyzer.Store.UpdatePattern(r.Context(), req.ID,
		req.Summary, req.Description, req.Status, req.Feedback, req.Tags)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "pattern not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update pattern: %v", err)
		return
	}
	s.audit(r, "update_pattern", "id="+strconv.FormatInt(req.ID, 10))

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleClearHistory bulk-deletes the analysis history.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	deleted, err := s.analyzer.Store.ClearHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear history: %v", err)
		return
	}
	s.audit(r, "clear_history", "deleted="+strconv.FormatInt(deleted, 10))

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "cleared", "deleted": deleted})
}

// handleLogs returns the audit log, admin only.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	rc := reqCtx(r)
	if rc.User == nil || !rc.User.IsAdmin() {
		writeError(w, http.StatusUnauthorized, "admin access required")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.analyzer.Store.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list logs: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": entries})
}

type profileRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
	Photo  string `json:"photo"`
}

// handleProfile reads or updates the calling user's profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	rc := reqCtx(r)
	if rc.User == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"user":        rc.User,
			"has_api_key": rc.User.APIKey != "",
		})
	case http.MethodPost:
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.analyzer.Store.UpdateProfile(r.Context(), rc.User.ID,
			req.Email, req.APIKey, req.Photo); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update profile: %v", err)
			return
		}
		s.audit(r, "update_profile", "")
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// audit records an API action in the audit log; failures are logged, not
// surfaced.
func (s *Server) audit(r *http.Request, action, details string) {
	rc := reqCtx(r)
	var userID int64
	if rc.User != nil {
		userID = rc.User.ID
	}
	if err := s.analyzer.Store.AppendAudit(r.Context(), core.AuditEntry{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: rc.ClientIP,
		UserAgent: rc.UserAgent,
	}); err != nil {
		logger.Error("failed to write audit entry for %s: %v", action, err)
	}
}
