package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/session"
)

// fakeStore records collaborator calls and can be told to fail.
type fakeStore struct {
	createErr error
	updateErr error
	created   int
	updated   []session.Session
}

func (f *fakeStore) CreateSession(ctx context.Context, userID string) (*session.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &session.Session{
		ID:     fmt.Sprintf("sess-%03d", f.created),
		UserID: userID,
		State:  session.Idle,
	}, nil
}

func (f *fakeStore) UpdateSession(ctx context.Context, s *session.Session) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	snap := *s
	f.updated = append(f.updated, snap)
	return nil
}

func (f *fakeStore) FetchSessions(ctx context.Context, userID string, limit int) ([]session.Session, error) {
	return nil, nil
}

func (f *fakeStore) FindNeighbors(ctx context.Context, embedding []float64, limit int) ([]session.Session, error) {
	return nil, nil
}

func startedMachine(t *testing.T) (*Machine, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	m := NewMachine(store, "user-1")
	if _, err := m.StartSession(context.Background()); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return m, store
}

func TestInitialState(t *testing.T) {
	m := NewMachine(&fakeStore{}, "user-1")
	if m.State() != session.Idle {
		t.Errorf("initial state = %s, want idle", m.State())
	}
}

func TestTransitionLegality(t *testing.T) {
	m, _ := startedMachine(t)
	if m.State() != session.Drift {
		t.Fatalf("state after start = %s, want drift", m.State())
	}

	// idle only reaches drift; drift cannot go back to idle directly.
	if err := m.Transition(session.Idle); err == nil {
		t.Error("drift -> idle succeeded, want InvalidTransitionError")
	}

	steps := []session.State{session.Mastery, session.SocialSync, session.Drift, session.Reflection}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
	}

	// reflection only reaches idle.
	if err := m.Transition(session.Mastery); err == nil {
		t.Error("reflection -> mastery succeeded, want InvalidTransitionError")
	}
	if err := m.Transition(session.Idle); err != nil {
		t.Errorf("reflection -> idle: %v", err)
	}
}

func TestIdleToMasteryFails(t *testing.T) {
	m := NewMachine(&fakeStore{}, "user-1")

	err := m.Transition(session.Mastery)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("idle -> mastery error = %v, want InvalidTransitionError", err)
	}
	if invalid.From != session.Idle || invalid.To != session.Mastery {
		t.Errorf("error edge = %s -> %s, want idle -> mastery", invalid.From, invalid.To)
	}
}

func TestTransitionAppendsHistory(t *testing.T) {
	m, _ := startedMachine(t)
	if err := m.Transition(session.Mastery); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	history := m.History()
	want := []session.State{session.Idle, session.Drift}
	if len(history) != len(want) {
		t.Fatalf("history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, history[i], want[i])
		}
	}
}

func TestStartSessionTwice(t *testing.T) {
	m, _ := startedMachine(t)

	if _, err := m.StartSession(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second StartSession error = %v, want ErrSessionActive", err)
	}
}

func TestStartSessionAtomicOnStoreFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("backend down")}
	m := NewMachine(store, "user-1")

	if _, err := m.StartSession(context.Background()); err == nil {
		t.Fatal("StartSession succeeded with failing store")
	}
	if m.State() != session.Idle {
		t.Errorf("state after failed start = %s, want idle (nothing changed)", m.State())
	}
	if m.Active() != nil {
		t.Error("active session set after failed start")
	}
}

func TestActivateRequiresSession(t *testing.T) {
	m := NewMachine(&fakeStore{}, "user-1")
	if err := m.ActivateDimension(dimension.Order); !errors.Is(err, ErrNoSession) {
		t.Errorf("ActivateDimension while idle = %v, want ErrNoSession", err)
	}
}

func TestActivationOrderAndDedup(t *testing.T) {
	m, _ := startedMachine(t)

	for _, d := range []dimension.Dimension{dimension.Power, dimension.Order, dimension.Power, dimension.Food} {
		if err := m.ActivateDimension(d); err != nil {
			t.Fatalf("ActivateDimension(%s): %v", d, err)
		}
	}

	got := m.Activated()
	want := []dimension.Dimension{dimension.Power, dimension.Order, dimension.Food}
	if len(got) != len(want) {
		t.Fatalf("accumulator = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("accumulator[%d] = %s, want %s (first-activation order)", i, got[i], want[i])
		}
	}

	if err := m.DeactivateDimension(dimension.Order); err != nil {
		t.Fatalf("DeactivateDimension: %v", err)
	}
	got = m.Activated()
	if len(got) != 2 || got[0] != dimension.Power || got[1] != dimension.Food {
		t.Errorf("after deactivate = %v, want [power food]", got)
	}
	// Deactivating an absent dimension is a no-op.
	if err := m.DeactivateDimension(dimension.Anxiety); err != nil {
		t.Errorf("deactivate absent dimension: %v", err)
	}
}

func TestFinalizationRule(t *testing.T) {
	m, store := startedMachine(t)

	order := []dimension.Dimension{dimension.Order, dimension.Mobility, dimension.Power, dimension.Ignorance}
	for _, d := range order {
		if err := m.ActivateDimension(d); err != nil {
			t.Fatalf("ActivateDimension(%s): %v", d, err)
		}
	}

	if err := m.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if len(store.updated) != 1 {
		t.Fatalf("persisted %d sessions, want 1", len(store.updated))
	}

	pv := store.updated[0].Vector
	if pv == nil {
		t.Fatal("persisted session has no vector")
	}

	wantIntensity := map[dimension.Dimension]float64{
		dimension.Order:     1.0,
		dimension.Mobility:  0.9,
		dimension.Power:     0.8,
		dimension.Ignorance: 0.7,
	}
	for d, want := range wantIntensity {
		if got := pv.Activations[d]; math.Abs(got-want) > 1e-9 {
			t.Errorf("intensity[%s] = %f, want %f", d, got, want)
		}
	}

	wantPrimary := []dimension.Dimension{dimension.Order, dimension.Mobility, dimension.Power}
	if len(pv.Primary) != len(wantPrimary) {
		t.Fatalf("primary = %v, want %v", pv.Primary, wantPrimary)
	}
	for i := range wantPrimary {
		if pv.Primary[i] != wantPrimary[i] {
			t.Errorf("primary[%d] = %s, want %s", i, pv.Primary[i], wantPrimary[i])
		}
	}
	if len(pv.Secondary) != 1 || pv.Secondary[0] != dimension.Ignorance {
		t.Errorf("secondary = %v, want [ignorance]", pv.Secondary)
	}
}

func TestFinalizationIntensityFloor(t *testing.T) {
	m, store := startedMachine(t)

	// Ten activations: positions 7+ would decay below 0.3 without the floor.
	dims := []dimension.Dimension{
		dimension.Order, dimension.Enclosure, dimension.Path, dimension.Horizon,
		dimension.Anxiety, dimension.Ignorance, dimension.Repetition, dimension.Post,
		dimension.Food, dimension.Mobility,
	}
	for _, d := range dims {
		if err := m.ActivateDimension(d); err != nil {
			t.Fatalf("ActivateDimension(%s): %v", d, err)
		}
	}
	if err := m.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	pv := store.updated[0].Vector
	if got := pv.Activations[dimension.Post]; math.Abs(got-0.3) > 1e-9 {
		t.Errorf("intensity at position 7 = %f, want floor 0.3", got)
	}
	if got := pv.Activations[dimension.Mobility]; math.Abs(got-0.3) > 1e-9 {
		t.Errorf("intensity at position 9 = %f, want floor 0.3", got)
	}
}

func TestEndSessionFullCycle(t *testing.T) {
	m, store := startedMachine(t)

	for _, d := range []dimension.Dimension{dimension.SerendipityFollowing, dimension.Mobility, dimension.NatureMirror} {
		if err := m.ActivateDimension(d); err != nil {
			t.Fatalf("ActivateDimension(%s): %v", d, err)
		}
	}

	if err := m.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	if m.State() != session.Idle {
		t.Errorf("state after end = %s, want idle", m.State())
	}
	if len(m.History()) != 0 {
		t.Errorf("history after end = %v, want empty", m.History())
	}
	if m.Active() != nil {
		t.Error("active session survives end")
	}
	if len(m.Activated()) != 0 {
		t.Error("accumulator survives end")
	}

	pv := store.updated[0].Vector
	wantPrimary := []dimension.Dimension{dimension.SerendipityFollowing, dimension.Mobility, dimension.NatureMirror}
	for i, d := range wantPrimary {
		if pv.Primary[i] != d {
			t.Errorf("primary[%d] = %s, want %s", i, pv.Primary[i], d)
		}
	}
	wantIntensity := []float64{1.0, 0.9, 0.8}
	for i, d := range wantPrimary {
		if got := pv.Activations[d]; math.Abs(got-wantIntensity[i]) > 1e-9 {
			t.Errorf("intensity[%s] = %f, want %f", d, got, wantIntensity[i])
		}
	}
	if store.updated[0].EndedAt == nil {
		t.Error("persisted session has no end timestamp")
	}
	// The persisted record passed through reflection on its way down.
	finalHistory := store.updated[0].History
	if len(finalHistory) == 0 || finalHistory[len(finalHistory)-1] != session.Drift {
		t.Errorf("persisted history = %v, want [... drift] before reflection", finalHistory)
	}
	if store.updated[0].State != session.Reflection {
		t.Errorf("persisted state = %s, want reflection", store.updated[0].State)
	}
}

func TestManualIdleTransitionClearsSessionScope(t *testing.T) {
	m, store := startedMachine(t)
	if err := m.ActivateDimension(dimension.Power); err != nil {
		t.Fatalf("ActivateDimension: %v", err)
	}

	// Walk the session down by hand instead of calling EndSession.
	if err := m.Transition(session.Reflection); err != nil {
		t.Fatalf("Transition(reflection): %v", err)
	}
	if err := m.Transition(session.Idle); err != nil {
		t.Fatalf("Transition(idle): %v", err)
	}

	if m.State() != session.Idle {
		t.Fatalf("state = %s, want idle", m.State())
	}
	if len(m.History()) != 0 {
		t.Errorf("history after idle = %v, want empty", m.History())
	}
	if m.Active() != nil {
		t.Error("active session survives idle")
	}
	if len(m.Activated()) != 0 {
		t.Errorf("accumulator after idle = %v, want empty", m.Activated())
	}

	// The next session must start from a clean scope.
	if _, err := m.StartSession(context.Background()); err != nil {
		t.Fatalf("StartSession after manual idle: %v", err)
	}
	if m.Active().StartedAt == 0 {
		t.Error("start time not recorded for the new session")
	}
	if err := m.ActivateDimension(dimension.Food); err != nil {
		t.Fatalf("ActivateDimension: %v", err)
	}
	if err := m.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	pv := store.updated[len(store.updated)-1].Vector
	if _, leaked := pv.Activations[dimension.Power]; leaked {
		t.Errorf("previous session's activation leaked into new vector: %v", pv.Activations)
	}
	if got := pv.Activations[dimension.Food]; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("intensity[food] = %f, want 1.0", got)
	}
}

func TestEndFromManualReflectionFinalizes(t *testing.T) {
	m, store := startedMachine(t)
	if err := m.ActivateDimension(dimension.Order); err != nil {
		t.Fatalf("ActivateDimension: %v", err)
	}

	if err := m.Transition(session.Reflection); err != nil {
		t.Fatalf("Transition(reflection): %v", err)
	}
	if err := m.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession from reflection: %v", err)
	}

	if len(store.updated) != 1 {
		t.Fatalf("persisted %d sessions, want 1", len(store.updated))
	}
	got := store.updated[0]
	if got.Vector == nil {
		t.Fatal("session ended from reflection persisted with no vector")
	}
	if v := got.Vector.Activations[dimension.Order]; math.Abs(v-1.0) > 1e-9 {
		t.Errorf("intensity[order] = %f, want 1.0", v)
	}
	if got.EndedAt == nil {
		t.Error("persisted session has no end timestamp")
	}
	if m.State() != session.Idle {
		t.Errorf("state after end = %s, want idle", m.State())
	}
}

func TestEndSessionIdleNoOp(t *testing.T) {
	store := &fakeStore{}
	m := NewMachine(store, "user-1")

	if err := m.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession while idle: %v", err)
	}
	if len(store.updated) != 0 {
		t.Error("idle EndSession touched the store")
	}
}

func TestEndSessionRetryAfterPersistFailure(t *testing.T) {
	m, store := startedMachine(t)
	if err := m.ActivateDimension(dimension.Order); err != nil {
		t.Fatalf("ActivateDimension: %v", err)
	}

	store.updateErr = errors.New("backend down")
	if err := m.EndSession(context.Background()); err == nil {
		t.Fatal("EndSession succeeded with failing store")
	}
	if m.State() != session.Reflection {
		t.Fatalf("state after failed persist = %s, want reflection", m.State())
	}

	store.updateErr = nil
	if err := m.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession retry: %v", err)
	}
	if m.State() != session.Idle {
		t.Errorf("state after retry = %s, want idle", m.State())
	}
	if len(store.updated) != 1 {
		t.Errorf("persisted %d sessions, want 1", len(store.updated))
	}
}

func TestDriftStartTimeIdempotent(t *testing.T) {
	m, _ := startedMachine(t)

	first := m.Active().StartedAt
	if first == 0 {
		t.Fatal("start time not recorded on first drift entry")
	}

	if err := m.Transition(session.Mastery); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := m.Transition(session.Drift); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if got := m.Active().StartedAt; got != first {
		t.Errorf("start time reset on drift re-entry: %d -> %d", first, got)
	}
}
