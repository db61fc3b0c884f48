package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/insight"
	"github.com/mostlycached/grain/internal/lifecycle"
	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
	"github.com/mostlycached/grain/internal/vectorspace"
)

// candidateWindow caps how much history the similarity and map queries
// pull per request.
const candidateWindow = 100

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeLifecycleError maps the engine's typed failures onto status
// codes; anything else is a 500.
func writeLifecycleError(w http.ResponseWriter, err error) {
	var invalid *lifecycle.InvalidTransitionError
	switch {
	case errors.Is(err, lifecycle.ErrSessionActive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrNoSession):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": invalid.Error(),
			"from":  string(invalid.From),
			"to":    string(invalid.To),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}

	sess, err := s.machine(req.UserID).StartSession(r.Context())
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	target := session.State(req.Target)
	if req.UserID == "" || !session.ValidState(target) {
		http.Error(w, `{"error":"user_id and a valid target state required"}`, http.StatusBadRequest)
		return
	}

	m := s.machine(req.UserID)
	if err := m.Transition(target); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   m.State(),
		"history": m.History(),
	})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.handleAccumulator(w, r, true)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.handleAccumulator(w, r, false)
}

func (s *Server) handleAccumulator(w http.ResponseWriter, r *http.Request, activate bool) {
	var req struct {
		UserID    string `json:"user_id"`
		Dimension string `json:"dimension"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	d, ok := dimension.FromName(req.Dimension)
	if req.UserID == "" || !ok {
		http.Error(w, `{"error":"user_id and a known dimension required"}`, http.StatusBadRequest)
		return
	}

	m := s.machine(req.UserID)
	var err error
	if activate {
		err = m.ActivateDimension(d)
	} else {
		err = m.DeactivateDimension(d)
	}
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activated": m.Activated()})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}

	m := s.machine(req.UserID)
	// Snapshot before ending — EndSession clears the active session.
	ended := m.Active()

	if err := m.EndSession(r.Context()); err != nil {
		writeLifecycleError(w, err)
		return
	}
	if ended == nil {
		// Already idle; ending is a no-op.
		writeJSON(w, http.StatusOK, map[string]string{"status": "idle"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ended",
		"session_id": ended.ID,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}

	m := s.machine(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     m.State(),
		"allowed":   session.AllowedFrom(m.State()),
		"history":   m.History(),
		"activated": m.Activated(),
		"session":   m.Active(),
	})
}

// handleSimilarSessions embeds the requested target dimensions as a
// one-hot mission vector and ranks the user's history against it.
func (s *Server) handleSimilarSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	raw := r.URL.Query().Get("dimensions")
	if userID == "" || raw == "" {
		http.Error(w, `{"error":"user_id and dimensions required"}`, http.StatusBadRequest)
		return
	}

	var targets []dimension.Dimension
	for _, name := range strings.Split(raw, ",") {
		d, ok := dimension.FromName(strings.TrimSpace(name))
		if !ok {
			http.Error(w, `{"error":"unknown dimension `+name+`"}`, http.StatusBadRequest)
			return
		}
		targets = append(targets, d)
	}

	limit := 5
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	sessions, err := s.db.FetchSessions(r.Context(), userID, candidateWindow)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	query := vector.EmbedMission(targets)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   targets,
		"results": vectorspace.FindSimilar(query, sessions, limit),
	})
}

// handleMap projects the user's sessions onto the legacy two-bucket
// chart coordinates.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}

	sessions, err := s.db.FetchSessions(r.Context(), userID, candidateWindow)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type point struct {
		ID string  `json:"id"`
		X  float64 `json:"x"`
		Y  float64 `json:"y"`
	}
	var points []point
	for i := range sessions {
		emb := sessions[i].Embedding()
		if len(emb) != dimension.Count {
			continue
		}
		p := vector.LegacyProjection2D(emb)
		points = append(points, point{ID: sessions[i].ID, X: p[0], Y: p[1]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// handleTraits reports the trait-level dominant dimensions of a dense
// profile vector, plus its normalized embedding.
func (s *Server) handleTraits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vector []float64 `json:"vector"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if len(req.Vector) != dimension.Count {
		http.Error(w, `{"error":"vector must have 16 entries"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"traits":    insight.Traits(req.Vector),
		"embedding": vector.EmbedProfile(req.Vector),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := s.db.FetchSessions(r.Context(), userID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.db.GetSession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, `{"error":"session_id required"}`, http.StatusBadRequest)
		return
	}

	sess, err := s.db.GetSession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	finding, err := s.analyzer.CompareSession(r.Context(), sess)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, finding)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Limit  int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}

	sessions, err := s.db.FetchSessions(r.Context(), req.UserID, req.Limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	finding, err := s.analyzer.Weekly(r.Context(), sessions)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, finding)
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}

	finding, err := s.analyzer.NextSuggestion(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, finding)
}
