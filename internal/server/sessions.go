package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/server/middleware"
	"github.com/jonathan/spanisami/internal/session"
)

// keyCapabilities records the browser capabilities of a session so that it
// can be rebuilt after eviction or a restart.
const keyCapabilities = "spaniCapabilities"

// Capabilities are the browser features a UI session reported.
type Capabilities struct {
	SpeechRecognition bool `json:"speech_recognition"`
	SpeechSynthesis   bool `json:"speech_synthesis"`
	Maps              bool `json:"maps"`
}

type sessionEntry struct {
	app      *app.App
	lastSeen time.Time
}

// registry holds the live UI sessions. Each session's data lives in its own
// namespace of the shared store.
type registry struct {
	store    session.NamespacedBackend
	template app.Deps
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
}

func newRegistry(store session.NamespacedBackend, template app.Deps, idleTTL time.Duration) *registry {
	return &registry{
		store:    store,
		template: template,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
}

func (r *registry) build(ctx context.Context, id uuid.UUID, caps Capabilities) (*app.App, error) {
	deps := r.template
	deps.Store = session.Namespaced(r.store, id.String())
	deps.CanRecognize = caps.SpeechRecognition
	deps.CanSpeak = caps.SpeechSynthesis
	deps.MapAvailable = caps.Maps
	return app.New(context.WithoutCancel(ctx), deps)
}

func (r *registry) create(ctx context.Context, caps Capabilities) (uuid.UUID, *app.App, error) {
	id := uuid.New()
	raw, err := json.Marshal(caps)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("encode capabilities: %w", err)
	}
	if err := session.Namespaced(r.store, id.String()).Set(ctx, keyCapabilities, string(raw)); err != nil {
		return uuid.Nil, nil, fmt.Errorf("save session: %w", err)
	}

	a, err := r.build(ctx, id, caps)
	if err != nil {
		return uuid.Nil, nil, err
	}

	r.mu.Lock()
	r.sessions[id] = &sessionEntry{app: a, lastSeen: r.now()}
	r.mu.Unlock()
	return id, a, nil
}

// get returns the live session, rebuilding it from the store when it was
// evicted.
func (r *registry) get(ctx context.Context, id uuid.UUID) (*app.App, error) {
	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.app, nil
	}
	r.mu.Unlock()

	raw, ok, err := r.store.GetNS(ctx, id.String(), keyCapabilities)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	var caps Capabilities
	if err := json.Unmarshal([]byte(raw), &caps); err != nil {
		return nil, fmt.Errorf("decode capabilities: %w", err)
	}

	a, err := r.build(ctx, id, caps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		a.Close()
		e.lastSeen = r.now()
		return e.app, nil
	}
	r.sessions[id] = &sessionEntry{app: a, lastSeen: r.now()}
	log.Printf("[server] restored session %s", id)
	return a, nil
}

// remove closes a session and forgets it, including its stored capabilities.
func (r *registry) remove(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		e.app.Close()
	}
	return r.store.RemoveNS(ctx, id.String(), keyCapabilities)
}

// sweep closes sessions idle longer than the TTL. Their data stays in the store.
func (r *registry) sweep() int {
	cutoff := r.now().Add(-r.idleTTL)
	var idle []*app.App

	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && e.app.Subscribers() == 0 {
			idle = append(idle, e.app)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, a := range idle {
		a.Close()
	}
	return len(idle)
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*sessionEntry)
	r.mu.Unlock()
	for _, e := range sessions {
		e.app.Close()
	}
}

type appHandler func(w http.ResponseWriter, r *http.Request, a *app.App)

// withApp resolves the request's session before calling h.
func (s *Server) withApp(h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := middleware.SessionID(r)
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		a, err := s.sessions.get(r.Context(), id)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				log.Printf("[server] session %s: %v", id, err)
			}
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		h(w, r, a)
	}
}

// CreateSessionRequest reports the browser's capabilities. Omitted fields
// default to supported.
type CreateSessionRequest struct {
	SpeechRecognition *bool `json:"speech_recognition,omitempty"`
	SpeechSynthesis   *bool `json:"speech_synthesis,omitempty"`
	Maps              *bool `json:"maps,omitempty"`
}

func (req CreateSessionRequest) capabilities() Capabilities {
	flag := func(b *bool) bool { return b == nil || *b }
	return Capabilities{
		SpeechRecognition: flag(req.SpeechRecognition),
		SpeechSynthesis:   flag(req.SpeechSynthesis),
		Maps:              flag(req.Maps),
	}
}

// CreateSessionResponse carries the session token and the initial state.
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	State     app.View  `json:"state"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	id, a, err := s.sessions.create(r.Context(), req.capabilities())
	if err != nil {
		log.Printf("[server] create session failed: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "could not create session")
		return
	}
	token, expiresAt, err := s.jwtService.IssueToken(id)
	if err != nil {
		log.Printf("[server] issue token failed: %v", err)
		_ = s.sessions.remove(r.Context(), id)
		s.errorResponse(w, http.StatusInternalServerError, "could not create session")
		return
	}
	s.stats.sessionsCreated.Add(1)

	s.jsonResponse(w, http.StatusCreated, CreateSessionResponse{
		SessionID: id.String(),
		Token:     token,
		ExpiresAt: expiresAt,
		State:     a.View(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, _ *app.App) {
	id, err := middleware.SessionID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.sessions.remove(r.Context(), id); err != nil {
		log.Printf("[server] delete session %s: %v", id, err)
		s.errorResponse(w, http.StatusInternalServerError, "could not delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
