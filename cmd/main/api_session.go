package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CTAG07/Dissociated/pkg/ngram"
)

// SessionAPI holds the dependencies for the manual session handlers.
type SessionAPI struct {
	sessions *SessionStore
	registry *ModelRegistry
	metrics  *Metrics
	logger   *slog.Logger
}

// NewSessionAPI creates a new instance of the SessionAPI.
func NewSessionAPI(sessions *SessionStore, registry *ModelRegistry, metrics *Metrics, logger *slog.Logger) *SessionAPI {
	return &SessionAPI{
		sessions: sessions,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all /api/sessions endpoints.
func (s *SessionAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", s.handleCreateSession)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
}

type CreateSessionRequest struct {
	Corpus   string  `json:"corpus"`
	StartKey string  `json:"start_key"`
	Seed     *uint64 `json:"seed"`
}

type StepRequest struct {
	Choice string `json:"choice"`
}

// SessionResponse is the state of a manual session as returned by the API.
type SessionResponse struct {
	ID      string    `json:"id"`
	Corpus  string    `json:"corpus"`
	Created time.Time `json:"created"`
	Display string    `json:"display"`
	Token   string    `json:"token,omitempty"` // the token accepted by a step
	ngram.SessionView
}

func (s *SessionAPI) view(ms *manualSession, token string) SessionResponse {
	v := ms.session.View()
	return SessionResponse{
		ID:          ms.id,
		Corpus:      ms.corpus,
		Created:     ms.created,
		Display:     ngram.Detokenize(v.Tokens),
		Token:       token,
		SessionView: v,
	}
}

func (s *SessionAPI) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "session:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'session:write' scope")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	model, ok := s.registry.Model(req.Corpus)
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Corpus '%s' not found", req.Corpus))
		return
	}

	var sampler *ngram.Sampler
	if req.Seed != nil {
		sampler = ngram.NewSeededSampler(*req.Seed)
	}
	session := ngram.NewSession(model, sampler)
	session.SetLogger(s.logger)
	if req.StartKey != "" {
		if err := session.Start(req.StartKey); err != nil {
			respondWithModelError(w, s.logger, err)
			return
		}
	} else {
		session.Reset()
	}

	ms, err := s.sessions.Create(req.Corpus, session)
	if err != nil {
		respondWithModelError(w, s.logger, err)
		return
	}
	s.metrics.SetSessions(s.sessions.Len())

	s.logger.Debug("Manual session created", "session_id", ms.id, "corpus", req.Corpus)
	respondWithJSON(w, http.StatusCreated, s.view(ms, ""))
}

// handleSessionByID routes actions for a specific session.
func (s *SessionAPI) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		respondWithError(w, http.StatusNotFound, "Not found")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		if !hasScope(r, "session:read") && !hasScope(r, "session:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'session:read' scope")
			return
		}
		s.withSession(w, id, func(ms *manualSession) {
			respondWithJSON(w, http.StatusOK, s.view(ms, ""))
		})
	case action == "" && r.Method == http.MethodDelete:
		if !hasScope(r, "session:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'session:write' scope")
			return
		}
		if !s.sessions.Delete(id) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Session '%s' not found", id))
			return
		}
		s.metrics.SetSessions(s.sessions.Len())
		w.WriteHeader(http.StatusNoContent)
	case action == "step" && r.Method == http.MethodPost:
		s.step(w, r, id)
	case action == "reset" && r.Method == http.MethodPost:
		s.reset(w, r, id)
	case action == "" || action == "step" || action == "reset":
		if action == "" {
			w.Header().Set("Allow", "GET, DELETE")
		} else {
			w.Header().Set("Allow", "POST")
		}
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		respondWithError(w, http.StatusNotFound, "Not found")
	}
}

// withSession runs fn with the session locked, or responds 404.
func (s *SessionAPI) withSession(w http.ResponseWriter, id string, fn func(ms *manualSession)) {
	ms, ok := s.sessions.Get(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Session '%s' not found", id))
		return
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	fn(ms)
}

func (s *SessionAPI) step(w http.ResponseWriter, r *http.Request, id string) {
	if !hasScope(r, "session:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'session:write' scope")
		return
	}
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if strings.TrimSpace(req.Choice) == "" {
		respondWithError(w, http.StatusBadRequest, "A choice is required: one of the options or \"random\"")
		return
	}

	s.withSession(w, id, func(ms *manualSession) {
		tok, err := ms.session.Step(req.Choice)
		if err != nil {
			respondWithModelError(w, s.logger, err)
			return
		}
		s.metrics.ObserveStep(req.Choice == ngram.RandomChoice)
		respondWithJSON(w, http.StatusOK, s.view(ms, tok))
	})
}

// reset restarts a session from a random key. A corpus that has been rebuilt
// since the session started is picked up here.
func (s *SessionAPI) reset(w http.ResponseWriter, r *http.Request, id string) {
	if !hasScope(r, "session:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'session:write' scope")
		return
	}
	s.withSession(w, id, func(ms *manualSession) {
		if model, ok := s.registry.Model(ms.corpus); ok && model != ms.session.Model() {
			fresh := ngram.NewSession(model, ms.session.Sampler())
			fresh.SetLogger(s.logger)
			ms.session = fresh
		}
		ms.session.Reset()
		respondWithJSON(w, http.StatusOK, s.view(ms, ""))
	})
}
