package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kioku/internal/memsync"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"go.uber.org/zap"
)

type identityRequest struct {
	DeviceID string `json:"device_id"`
}

type searchRequest struct {
	Query string `json:"query"`
	models.SearchOptions
}

type contextRequest struct {
	Query string `json:"query"`
	models.ContextOptions
}

type preferenceRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type sessionRequest struct {
	Title string `json:"title"`
}

type connectivityRequest struct {
	Online bool `json:"online"`
}

type writeResponse struct {
	Outcome memsync.Outcome `json:"outcome"`
	Data    interface{}     `json:"data,omitempty"`
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := s.memory.Initialize(r.Context(), req.DeviceID)
	if err != nil {
		s.respondErr(w, "initialize", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := models.ParseSearchMode(string(req.Mode))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Mode = mode
	if req.Collection != "" && !req.Collection.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown collection")
		return
	}
	userID, err := s.memory.Identity()
	if err != nil {
		s.respondErr(w, "search", err)
		return
	}
	if req.UserID != "" && req.UserID != userID {
		s.respondError(w, http.StatusForbidden, "user_id does not match the bound identity")
		return
	}
	req.UserID = userID
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.String("mode", string(req.Mode)),
		zap.Int("limit", req.Limit))
	s.respondJSON(w, http.StatusOK, s.engine.Search(r.Context(), req.Query, req.SearchOptions))
}

func (s *Server) handleSearchContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := s.memory.Identity()
	if err != nil {
		s.respondErr(w, "search context", err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.engine.SearchContext(r.Context(), req.Query, userID, req.ContextOptions))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.memory.GetProfile(r.Context())
	if err != nil {
		s.respondErr(w, "get profile", err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := s.memory.UpdateProfile(r.Context(), &p)
	s.respondWrite(w, "update profile", outcome, &p, err)
}

func (s *Server) handleGetFacts(w http.ResponseWriter, r *http.Request) {
	facts, err := s.memory.GetFacts(r.Context())
	if err != nil {
		s.respondErr(w, "get facts", err)
		return
	}
	if facts == nil {
		facts = []*models.Fact{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"facts": facts})
}

func (s *Server) handleSetFact(w http.ResponseWriter, r *http.Request) {
	var f models.Fact
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := s.memory.SetFact(r.Context(), &f)
	s.respondWrite(w, "set fact", outcome, &f, err)
}

func (s *Server) handleDeleteFact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete fact request", zap.String("id", id))
	outcome, err := s.memory.DeleteFact(r.Context(), id)
	s.respondWrite(w, "delete fact", outcome, nil, err)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.memory.GetPreferences(r.Context())
	if err != nil {
		s.respondErr(w, "get preferences", err)
		return
	}
	if prefs == nil {
		prefs = []*models.Preference{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"preferences": prefs})
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := s.memory.SetPreference(r.Context(), req.Key, req.Value)
	s.respondWrite(w, "set preference", outcome, nil, err)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	sess, outcome, err := s.memory.StartSession(r.Context(), req.Title)
	s.respondWrite(w, "start session", outcome, sess, err)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	msgs, err := s.memory.GetRecentMessages(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondErr(w, "get messages", err)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m.SessionID = chi.URLParam(r, "id")
	outcome, err := s.memory.AddMessage(r.Context(), &m)
	s.respondWrite(w, "add message", outcome, &m, err)
}

func (s *Server) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	c, err := s.memory.GetConsent(r.Context())
	if err != nil {
		s.respondErr(w, "get consent", err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateConsent(w http.ResponseWriter, r *http.Request) {
	var c models.Consent
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := s.memory.UpdateConsent(r.Context(), c)
	s.respondWrite(w, "update consent", outcome, nil, err)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.memory.GetSyncStatus())
}

func (s *Server) handleForceSync(w http.ResponseWriter, r *http.Request) {
	if err := s.memory.ForceSync(r.Context()); err != nil {
		s.respondErr(w, "sync", err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.memory.GetSyncStatus())
}

func (s *Server) handleSetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.monitor == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no connectivity monitor")
		return
	}
	s.monitor.SetOnline(req.Online)
	s.respondJSON(w, http.StatusOK, map[string]bool{"online": s.monitor.IsOnline()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"sync": s.memory.GetSyncStatus(),
	}
	if s.index != nil {
		resp["index"] = s.index.Stats()
		if corrupt := s.index.CorruptKeys(); len(corrupt) > 0 {
			resp["corrupt_index_keys"] = corrupt
		}
	}
	if s.embedder != nil {
		resp["embedding_cache"] = s.embedder.Stats()
	}
	if userID, err := s.memory.Identity(); err == nil {
		resp["user_id"] = userID
	}

	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"remote_provider":      s.config.Remote.Provider,
			"database_path":        s.config.Storage.DatabasePath,
			"index_dir":            s.config.Storage.IndexDir,
		}
		diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.IndexDir)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var exhausted *memsync.QueueExhaustedError
	var fallback *memsync.FallbackError
	switch {
	case errors.Is(err, memsync.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, memsync.ErrConsentDenied):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, memsync.ErrNotInitialized), errors.Is(err, memsync.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, memsync.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.As(err, &exhausted), errors.As(err, &fallback):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondWrite(w http.ResponseWriter, op string, outcome memsync.Outcome, data interface{}, err error) {
	if err != nil {
		s.respondErr(w, op, err)
		return
	}
	s.respondJSON(w, http.StatusOK, writeResponse{Outcome: outcome, Data: data})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
