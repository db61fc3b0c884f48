package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
)

// DB implements the engine's storage collaborator contract.
var _ session.Store = (*DB)(nil)

const sessionColumns = `id, user_id, state, history, started_at, ended_at, activations, primary_dims, secondary_dims, embedding`

// CreateSession inserts a new idle session record for the user.
func (db *DB) CreateSession(ctx context.Context, userID string) (*session.Session, error) {
	now := time.Now().UnixMilli()
	s := &session.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		State:     session.Idle,
		StartedAt: now,
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, state, history, started_at, created_at)
		VALUES (?, ?, ?, '[]', ?, ?)
	`, s.ID, s.UserID, string(s.State), s.StartedAt, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// UpdateSession persists the session's state, history, timestamps, and
// finalized vector.
func (db *DB) UpdateSession(ctx context.Context, s *session.Session) error {
	history, err := encodeHistory(s.History)
	if err != nil {
		return err
	}
	activations, primary, secondary, embedding, err := encodeVector(s.Vector)
	if err != nil {
		return err
	}

	var actCol, priCol, secCol any
	if s.Vector != nil {
		actCol, priCol, secCol = activations, primary, secondary
	}

	result, err := db.ExecContext(ctx, `
		UPDATE sessions
		SET state = ?, history = ?, started_at = ?, ended_at = ?,
		    activations = ?, primary_dims = ?, secondary_dims = ?, embedding = ?
		WHERE id = ?
	`, string(s.State), history, s.StartedAt, s.EndedAt, actCol, priCol, secCol, embedding, s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no session found for %s", s.ID)
	}
	return nil
}

// GetSession returns a session by id, or nil if not found.
func (db *DB) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = ?
	`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// FetchSessions returns up to limit sessions for the user, newest first.
func (db *DB) FetchSessions(ctx context.Context, userID string, limit int) ([]session.Session, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ?
		ORDER BY started_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// FindNeighbors scores every ended session with a stored embedding by
// cosine similarity to the query and returns the top limit, best first.
// Brute force over the full table; session counts here are per-user and
// small enough that an ANN index would be overhead.
func (db *DB) FindNeighbors(ctx context.Context, embedding []float64, limit int) ([]session.Session, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE embedding IS NOT NULL AND ended_at IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}
	defer rows.Close()

	type scored struct {
		sess session.Session
		sim  float64
	}
	var candidates []scored
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		emb := s.Embedding()
		if len(emb) == 0 {
			continue
		}
		candidates = append(candidates, scored{sess: *s, sim: vector.CosineSimilarity(embedding, emb)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	neighbors := make([]session.Session, len(candidates))
	for i, c := range candidates {
		neighbors[i] = c.sess
	}
	return neighbors, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.Session, error) {
	var s session.Session
	var state, history string
	var activations, primary, secondary *string
	var embedding []byte

	err := row.Scan(&s.ID, &s.UserID, &state, &history, &s.StartedAt, &s.EndedAt,
		&activations, &primary, &secondary, &embedding)
	if err != nil {
		return nil, err
	}

	s.State = session.State(state)
	if s.History, err = decodeHistory(history); err != nil {
		return nil, err
	}
	if s.Vector, err = decodeVector(activations, primary, secondary, embedding); err != nil {
		return nil, err
	}
	return &s, nil
}
