// Package session defines the session model shared by the lifecycle
// engine, the analytics layer, and the storage collaborator.
package session

import (
	"context"

	"github.com/mostlycached/grain/internal/vector"
)

// Session is one bounded user activity instance. The lifecycle engine
// owns the active session's mutable fields; historical sessions returned
// by a Store are read-only inputs to analytics and are never mutated.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	State     State                  `json:"state"`
	History   []State                `json:"history"`
	StartedAt int64                  `json:"started_at"`
	EndedAt   *int64                 `json:"ended_at,omitempty"`
	Vector    *vector.PleasureVector `json:"vector,omitempty"`
}

// Embedding returns the session's dense embedding, or nil if the session
// has no finalized vector. Analytics callers treat nil or wrong-length
// embeddings as skip conditions, never as errors.
func (s *Session) Embedding() []float64 {
	if s.Vector == nil {
		return nil
	}
	return s.Vector.Embedding
}

// Store is the persistence collaborator. Implementations own all schema,
// transport, and retry concerns; the engine propagates their failures
// unchanged except where a calling flow documents a degraded fallback.
type Store interface {
	// CreateSession inserts a new session record for the user and
	// returns it in its initial state.
	CreateSession(ctx context.Context, userID string) (*Session, error)

	// UpdateSession persists the session's current state, history,
	// timestamps, and vector.
	UpdateSession(ctx context.Context, s *Session) error

	// FetchSessions returns up to limit sessions for the user, newest
	// first by start time.
	FetchSessions(ctx context.Context, userID string, limit int) ([]Session, error)

	// FindNeighbors returns up to limit sessions nearest to the given
	// embedding by cosine similarity, best first.
	FindNeighbors(ctx context.Context, embedding []float64, limit int) ([]Session, error)
}
