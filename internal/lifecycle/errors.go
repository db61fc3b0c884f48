package lifecycle

import (
	"errors"
	"fmt"

	"github.com/mostlycached/grain/internal/session"
)

// The engine surfaces exactly three failure kinds. All are local and
// recoverable; none is ever swallowed.
var (
	// ErrSessionActive is returned by StartSession while another
	// session is still in flight.
	ErrSessionActive = errors.New("session already active")

	// ErrNoSession is returned by operations that require an active
	// session but find none.
	ErrNoSession = errors.New("no active session")
)

// InvalidTransitionError reports an attempted move along an edge the
// transition table does not allow.
type InvalidTransitionError struct {
	From session.State
	To   session.State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}
