package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mostlycached/grain/internal/insight"
	"github.com/mostlycached/grain/internal/lifecycle"
	"github.com/mostlycached/grain/internal/store"
)

// Server is the grain engine HTTP API server. It keeps one lifecycle
// machine per user; each machine serializes its own mutations, so
// concurrent triggers for the same user apply in order.
type Server struct {
	db       *store.DB
	analyzer *insight.Analyzer
	router   chi.Router
	version  string
	started  time.Time

	mu       sync.Mutex
	machines map[string]*lifecycle.Machine
}

// New creates a new Server with the given database, analyzer, and
// version string.
func New(db *store.DB, analyzer *insight.Analyzer, version string) *Server {
	s := &Server{
		db:       db,
		analyzer: analyzer,
		version:  version,
		started:  time.Now(),
		machines: make(map[string]*lifecycle.Machine),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// machine returns the lifecycle machine for a user, creating it on first
// use.
func (s *Server) machine(userID string) *lifecycle.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[userID]
	if !ok {
		m = lifecycle.NewMachine(s.db, userID)
		s.machines[userID] = m
	}
	return m
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/sessions/start", s.handleStartSession)
		r.Post("/sessions/transition", s.handleTransition)
		r.Post("/sessions/activate", s.handleActivate)
		r.Post("/sessions/deactivate", s.handleDeactivate)
		r.Post("/sessions/end", s.handleEndSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/similar", s.handleSimilarSessions)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Get("/state", s.handleState)

		r.Get("/insights/comparison", s.handleComparison)
		r.Post("/insights/weekly", s.handleWeekly)
		r.Get("/insights/suggestion", s.handleSuggestion)
		r.Get("/insights/map", s.handleMap)

		r.Post("/profile/traits", s.handleTraits)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
