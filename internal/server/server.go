package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/config"
	"github.com/jonathan/spanisami/internal/server/middleware"
	"github.com/jonathan/spanisami/internal/server/ratelimit"
	"github.com/jonathan/spanisami/internal/session"
)

// Default timings.
const (
	DefaultSessionIdleTTL = 12 * time.Hour
	sessionSweepInterval  = 10 * time.Minute
	maxUploadBytes        = 10 << 20
)

// Config holds server configuration.
type Config struct {
	Port           int
	JWT            *config.JWTConfig
	RateLimit      *ratelimit.Config // nil loads RATE_LIMIT_* from the environment
	SessionIdleTTL time.Duration
}

// Deps are the collaborators shared by every UI session.
type Deps struct {
	Store session.NamespacedBackend
	// App is the template for each session's app.Deps. Store and the
	// capability flags are filled in per session.
	App app.Deps
}

// Server serves the SpaniSami UI API.
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	sessions    *registry
	stats       *Stats
}

// New creates a server.
func New(cfg Config, deps Deps) (*Server, error) {
	if cfg.JWT == nil {
		return nil, fmt.Errorf("JWT config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	if cfg.SessionIdleTTL <= 0 {
		cfg.SessionIdleTTL = DefaultSessionIdleTTL
	}

	s := &Server{
		jwtService:  NewJWTService(cfg.JWT),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		stats:       &Stats{},
	}
	s.sessions = newRegistry(deps.Store, deps.App, cfg.SessionIdleTTL)

	api := http.NewServeMux()
	api.HandleFunc("DELETE /api/sessions", s.withApp(s.handleDeleteSession))
	api.HandleFunc("GET /api/state", s.withApp(s.handleState))
	api.HandleFunc("GET /api/alerts", s.withApp(s.handleAlerts))
	api.HandleFunc("GET /api/events", s.withApp(s.handleEvents))
	api.HandleFunc("GET /api/stats", s.handleStats)

	// Profile and CV
	api.HandleFunc("POST /api/profile", s.withApp(s.handleCreateProfile))
	api.HandleFunc("POST /api/profile/document", s.withApp(s.handleCreateProfileFromDocument))
	api.HandleFunc("POST /api/cv", s.withApp(s.handleGenerateCV))
	api.HandleFunc("GET /api/cv/pdf", s.withApp(s.handleExportPDF))

	// Voice assistant
	api.HandleFunc("POST /api/voice/language", s.withApp(s.handleVoiceLanguage))
	api.HandleFunc("POST /api/voice/toggle", s.withApp(s.handleVoiceToggle))
	api.HandleFunc("POST /api/voice/events", s.withApp(s.handleVoiceEvent))

	// Job scanner
	api.HandleFunc("POST /api/jobs/radius", s.withApp(s.handleJobsRadius))
	api.HandleFunc("POST /api/jobs/center", s.withApp(s.handleJobsCenter))
	api.HandleFunc("POST /api/jobs/city", s.withApp(s.handleJobsCity))
	api.HandleFunc("POST /api/jobs/locate", s.withApp(s.handleJobsLocate))
	api.HandleFunc("POST /api/jobs/select/{id}", s.withApp(s.handleJobsSelect))
	api.HandleFunc("POST /api/jobs/close", s.withApp(s.handleJobsClose))
	api.HandleFunc("POST /api/jobs/apply", s.withApp(s.handleJobsApply))
	api.HandleFunc("POST /api/jobs/build-cv", s.withApp(s.handleJobsBuildCV))
	api.HandleFunc("POST /api/jobs/train", s.withApp(s.handleJobsTrain))

	// Sections
	api.HandleFunc("POST /api/view/{section}", s.withApp(s.handleShowSection))
	api.HandleFunc("POST /api/maps/ready", s.withApp(s.handleMapsReady))
	api.HandleFunc("POST /api/hero/select/{index}", s.withApp(s.handleHeroSelect))

	// Auth
	api.HandleFunc("POST /api/auth/signup", s.withApp(s.handleSignup))
	api.HandleFunc("POST /api/auth/verify", s.withApp(s.handleVerify))
	api.HandleFunc("POST /api/auth/back", s.withApp(s.handleAuthBack))
	api.HandleFunc("POST /api/auth/password", s.withApp(s.handleSetPassword))
	api.HandleFunc("POST /api/auth/goto-login", s.withApp(s.handleGotoLogin))
	api.HandleFunc("POST /api/auth/login", s.withApp(s.handleLogin))
	api.HandleFunc("POST /api/auth/guest", s.withApp(s.handleGuest))
	api.HandleFunc("POST /api/auth/logout", s.withApp(s.handleLogout))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.Handle("/api/", middleware.RequireSession(s.jwtService)(api))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // CV generation waits on the backend
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Stats returns the server's counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := s.sessions.sweep(); n > 0 {
					log.Printf("[server] evicted %d idle sessions", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("[server] shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.Close()
	log.Println("[server] stopped")
	return err
}

// Close releases every session and stops background work.
func (s *Server) Close() {
	s.rateLimiter.Stop()
	s.sessions.closeAll()
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientIP(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
		}
		if !allowed {
			body := map[string]any{
				"error":    "rate_limit_exceeded",
				"message":  "Rate limit exceeded. Please try again later.",
				"limit":    info.Limit,
				"reset_at": info.ResetTime.Format(time.RFC3339),
			}
			if secs := int(info.RetryAfter.Seconds()); secs > 0 {
				body["retry_after"] = secs
				w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
			}
			log.Printf("[rate-limit] %s %s rejected for %s", r.Method, r.URL.Path, clientIP(r))
			s.jsonResponse(w, http.StatusTooManyRequests, body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP uses RemoteAddr only; X-Forwarded-For is not trusted.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}
