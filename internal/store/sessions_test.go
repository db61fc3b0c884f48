package store

import (
	"context"
	"testing"
	"time"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// endedSession persists a finished session built from the given
// activations, spacing start times so newest-first ordering is testable.
func endedSession(t *testing.T, db *DB, userID string, startedAt int64, activations map[dimension.Dimension]float64) *session.Session {
	t.Helper()
	ctx := context.Background()

	s, err := db.CreateSession(ctx, userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	end := startedAt + int64(30*time.Minute/time.Millisecond)
	s.State = session.Reflection
	s.History = []session.State{session.Idle, session.Drift}
	s.StartedAt = startedAt
	s.EndedAt = &end
	s.Vector = &vector.PleasureVector{
		Activations: activations,
		Embedding:   vector.EmbedActivations(activations),
	}
	if err := db.UpdateSession(ctx, s); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	return s
}

func TestCreateSession(t *testing.T) {
	db := testDB(t)

	s, err := db.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID == "" {
		t.Error("session ID empty")
	}
	if s.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", s.UserID)
	}
	if s.State != session.Idle {
		t.Errorf("State = %q, want idle", s.State)
	}
	if s.StartedAt == 0 {
		t.Error("StartedAt not set")
	}
}

func TestUpdateAndGetSessionRoundTrip(t *testing.T) {
	db := testDB(t)
	activations := map[dimension.Dimension]float64{
		dimension.Order:    1.0,
		dimension.Mobility: 0.9,
	}
	s := endedSession(t, db, "user-1", 1000, activations)
	s.Vector.Primary = []dimension.Dimension{dimension.Order, dimension.Mobility}
	if err := db.UpdateSession(context.Background(), s); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	got, err := db.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("session not found after update")
	}

	if got.State != session.Reflection {
		t.Errorf("State = %q, want reflection", got.State)
	}
	if len(got.History) != 2 || got.History[0] != session.Idle || got.History[1] != session.Drift {
		t.Errorf("History = %v, want [idle drift]", got.History)
	}
	if got.EndedAt == nil {
		t.Fatal("EndedAt lost")
	}
	if got.Vector == nil {
		t.Fatal("vector lost")
	}
	for d, want := range activations {
		if v := got.Vector.Activations[d]; v != want {
			t.Errorf("activation[%s] = %f, want %f", d, v, want)
		}
	}
	if len(got.Vector.Embedding) != dimension.Count {
		t.Errorf("embedding length = %d, want %d", len(got.Vector.Embedding), dimension.Count)
	}
	for i, v := range s.Vector.Embedding {
		if got.Vector.Embedding[i] != v {
			t.Errorf("embedding[%d] = %v, want %v (blob codec must be exact)", i, got.Vector.Embedding[i], v)
		}
	}
	if len(got.Vector.Primary) != 2 || got.Vector.Primary[0] != dimension.Order {
		t.Errorf("Primary = %v, want [order mobility]", got.Vector.Primary)
	}
}

func TestGetSessionMissing(t *testing.T) {
	db := testDB(t)
	got, err := db.GetSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing session", got)
	}
}

func TestUpdateSessionMissing(t *testing.T) {
	db := testDB(t)
	err := db.UpdateSession(context.Background(), &session.Session{ID: "nope", State: session.Idle})
	if err == nil {
		t.Error("expected error updating missing session")
	}
}

func TestFetchSessionsNewestFirst(t *testing.T) {
	db := testDB(t)
	endedSession(t, db, "user-1", 1000, map[dimension.Dimension]float64{dimension.Order: 1.0})
	endedSession(t, db, "user-1", 3000, map[dimension.Dimension]float64{dimension.Food: 1.0})
	endedSession(t, db, "user-1", 2000, map[dimension.Dimension]float64{dimension.Path: 1.0})
	endedSession(t, db, "user-2", 9000, map[dimension.Dimension]float64{dimension.Power: 1.0})

	got, err := db.FetchSessions(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("FetchSessions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d sessions, want 3", len(got))
	}
	if got[0].StartedAt != 3000 || got[1].StartedAt != 2000 || got[2].StartedAt != 1000 {
		t.Errorf("order = %d,%d,%d, want 3000,2000,1000 (newest first)",
			got[0].StartedAt, got[1].StartedAt, got[2].StartedAt)
	}

	limited, err := db.FetchSessions(context.Background(), "user-1", 2)
	if err != nil {
		t.Fatalf("FetchSessions limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d sessions with limit 2, want 2", len(limited))
	}
}

func TestFindNeighborsRanking(t *testing.T) {
	db := testDB(t)
	near := endedSession(t, db, "user-1", 1000, map[dimension.Dimension]float64{dimension.Order: 1.0})
	mid := endedSession(t, db, "user-1", 2000, map[dimension.Dimension]float64{dimension.Order: 0.5, dimension.Food: 0.5})
	endedSession(t, db, "user-1", 3000, map[dimension.Dimension]float64{dimension.Food: 1.0})

	// An unfinished session must not appear in neighbor results.
	if _, err := db.CreateSession(context.Background(), "user-1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	query := vector.EmbedMission([]dimension.Dimension{dimension.Order})
	got, err := db.FindNeighbors(context.Background(), query, 2)
	if err != nil {
		t.Fatalf("FindNeighbors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(got))
	}
	if got[0].ID != near.ID {
		t.Errorf("best neighbor = %s, want %s", got[0].ID, near.ID)
	}
	if got[1].ID != mid.ID {
		t.Errorf("second neighbor = %s, want %s", got[1].ID, mid.ID)
	}
}

func TestDecodeActivationsDropsUnknownNames(t *testing.T) {
	got, err := decodeActivations(`{"order": 0.8, "bliss": 0.9}`)
	if err != nil {
		t.Fatalf("decodeActivations: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d activations, want 1 (unknown names dropped)", len(got))
	}
	if got[dimension.Order] != 0.8 {
		t.Errorf("activation[order] = %f, want 0.8", got[dimension.Order])
	}
}

func TestEmbeddingBlobRoundTrip(t *testing.T) {
	vec := []float64{0.0, -1.5, 0.25, 1e-12}
	got := decodeEmbedding(encodeEmbedding(vec))
	if len(got) != len(vec) {
		t.Fatalf("length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}
