package session

// State is one of the five lifecycle states. Idle is both the initial
// state and the state every ended session returns to; Reflection is
// transient and always advances to Idle.
type State string

const (
	Idle       State = "idle"
	Drift      State = "drift"
	Mastery    State = "mastery"
	SocialSync State = "social_sync"
	Reflection State = "reflection"
)

// transitions is the directed legality table. It is asymmetric: Idle can
// only open into Drift, and Reflection can only close into Idle.
var transitions = map[State][]State{
	Idle:       {Drift},
	Drift:      {Mastery, SocialSync, Reflection},
	Mastery:    {Drift, SocialSync, Reflection},
	SocialSync: {Drift, Mastery, Reflection},
	Reflection: {Idle},
}

// CanTransition reports whether the directed edge from→to is legal.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns the legal targets from a state, in table order.
func AllowedFrom(from State) []State {
	out := make([]State, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// ValidState reports whether s names a defined lifecycle state.
func ValidState(s State) bool {
	_, ok := transitions[s]
	return ok
}
