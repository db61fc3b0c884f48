// Package lifecycle implements the session state machine: one active
// session per user, a directed transition table, and the activation
// accumulator that becomes the session's pleasure vector on end.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
)

// Machine drives one user's session lifecycle. All mutating operations
// take the same mutex, so concurrent triggers (voice, vision, UI) are
// applied as an ordered sequence rather than interleaved.
type Machine struct {
	mu    sync.Mutex
	store session.Store

	userID  string
	state   session.State
	history []session.State
	active  *session.Session

	// accumulator records dimensions in order of first activation,
	// duplicate-free. Activation order drives finalization intensity.
	accumulator []dimension.Dimension

	startRecorded bool

	// now is swappable for tests.
	now func() time.Time
}

// NewMachine creates a machine for one user, starting in Idle.
func NewMachine(store session.Store, userID string) *Machine {
	return &Machine{
		store:  store,
		userID: userID,
		state:  session.Idle,
		now:    time.Now,
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() session.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns a copy of the states occupied so far this session,
// oldest first.
func (m *Machine) History() []session.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]session.State, len(m.history))
	copy(out, m.history)
	return out
}

// Active returns a snapshot of the active session, or nil when idle.
func (m *Machine) Active() *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	snap := *m.active
	snap.History = make([]session.State, len(m.active.History))
	copy(snap.History, m.active.History)
	return &snap
}

// Activated returns the accumulator contents in first-activation order.
func (m *Machine) Activated() []dimension.Dimension {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dimension.Dimension, len(m.accumulator))
	copy(out, m.accumulator)
	return out
}

// Transition moves the machine to target if the transition table allows
// it, appending the prior state to history. Entering Drift for the first
// time in a session records the start time; re-entering later does not
// reset it. Entering Idle ends the session scope: history, the active
// session reference, and the accumulator are cleared on that edge, no
// matter how it was reached.
func (m *Machine) Transition(target session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(target)
}

func (m *Machine) transitionLocked(target session.State) error {
	if !session.CanTransition(m.state, target) {
		return &InvalidTransitionError{From: m.state, To: target}
	}

	m.history = append(m.history, m.state)
	m.state = target

	if m.active != nil {
		m.active.History = append(m.active.History, m.active.State)
		m.active.State = target
	}

	if target == session.Drift && !m.startRecorded {
		m.startRecorded = true
		if m.active != nil {
			m.active.StartedAt = m.now().UnixMilli()
		}
	}

	if target == session.Idle {
		m.history = nil
		m.active = nil
		m.accumulator = nil
		m.startRecorded = false
	}
	return nil
}

// StartSession creates a session record for the user and enters Drift.
// Atomic from the caller's perspective: either the store created a
// session and the state is Drift, or nothing changed.
func (m *Machine) StartSession(ctx context.Context) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != session.Idle {
		return nil, ErrSessionActive
	}

	sess, err := m.store.CreateSession(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.State = session.Idle
	m.active = sess

	if err := m.transitionLocked(session.Drift); err != nil {
		// Unreachable with the fixed table (idle -> drift is always
		// legal) but the session must not leak if it ever happens.
		m.active = nil
		return nil, err
	}

	snap := *sess
	return &snap, nil
}

// EndSession finalizes the active session: passes through Reflection,
// computes the pleasure vector from the activation accumulator, persists
// the finalized record, and transitions to Idle, which clears the
// session scope. Calling it while already Idle is a no-op. If
// persistence fails the machine stays in Reflection and the call can be
// retried.
func (m *Machine) EndSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == session.Idle {
		return nil
	}

	if m.state != session.Reflection {
		if err := m.transitionLocked(session.Reflection); err != nil {
			return err
		}
	}

	// Finalize once. A retry after a failed persist keeps the vector and
	// end time from the first attempt; a session that reached Reflection
	// by a manual transition is finalized here.
	if m.active != nil && m.active.Vector == nil {
		m.active.Vector = finalizeVector(m.accumulator)
		end := m.now().UnixMilli()
		m.active.EndedAt = &end
	}

	if m.active != nil {
		if err := m.store.UpdateSession(ctx, m.active); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}

	return m.transitionLocked(session.Idle)
}

// ActivateDimension appends d to the accumulator if not already present.
// First-activation order is preserved.
func (m *Machine) ActivateDimension(d dimension.Dimension) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ErrNoSession
	}
	for _, have := range m.accumulator {
		if have == d {
			return nil
		}
	}
	m.accumulator = append(m.accumulator, d)
	return nil
}

// DeactivateDimension removes d from the accumulator. Removing a
// dimension that was never activated is a no-op.
func (m *Machine) DeactivateDimension(d dimension.Dimension) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ErrNoSession
	}
	for i, have := range m.accumulator {
		if have == d {
			m.accumulator = append(m.accumulator[:i], m.accumulator[i+1:]...)
			return nil
		}
	}
	return nil
}

// primaryCount is how many leading activations count as primary
// dimensions in the finalized vector.
const primaryCount = 3

// finalizeVector converts the ordered accumulator into a PleasureVector.
// Intensity for the dimension at position i is max(0.3, 1.0 - i*0.1):
// activation order is a decaying-intensity heuristic with a floor. The
// rule is load-bearing for historical data and must not change.
func finalizeVector(ordered []dimension.Dimension) *vector.PleasureVector {
	activations := make(map[dimension.Dimension]float64, len(ordered))
	var primary, secondary []dimension.Dimension

	for i, d := range ordered {
		intensity := 1.0 - float64(i)*0.1
		if intensity < 0.3 {
			intensity = 0.3
		}
		activations[d] = intensity
		if i < primaryCount {
			primary = append(primary, d)
		} else {
			secondary = append(secondary, d)
		}
	}

	return &vector.PleasureVector{
		Activations: activations,
		Embedding:   vector.EmbedActivations(activations),
		Primary:     primary,
		Secondary:   secondary,
	}
}
