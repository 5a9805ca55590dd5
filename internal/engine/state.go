package engine

import "fmt"

// StateKind tags the lifecycle state of a pending-sync entry. Only
// queued entries are persisted; delivered and abandoned are terminal and
// exist only as transition outcomes.
type StateKind int

const (
	StateQueued StateKind = iota
	StateDelivered
	StateAbandoned
)

// State is the explicit lifecycle state of a pending-sync entry.
type State struct {
	Kind     StateKind
	Attempts int
}

// Queued returns the state of an entry still waiting for delivery.
func Queued(attempts int) State {
	return State{Kind: StateQueued, Attempts: attempts}
}

// Delivered is the terminal state of a confirmed delivery.
func Delivered(attempts int) State {
	return State{Kind: StateDelivered, Attempts: attempts}
}

// Abandoned is the terminal state of an entry dropped at the attempt cap.
func Abandoned(attempts int) State {
	return State{Kind: StateAbandoned, Attempts: attempts}
}

func (s State) String() string {
	switch s.Kind {
	case StateQueued:
		return fmt.Sprintf("queued(attempts=%d)", s.Attempts)
	case StateDelivered:
		return fmt.Sprintf("delivered(attempts=%d)", s.Attempts)
	case StateAbandoned:
		return fmt.Sprintf("abandoned(attempts=%d)", s.Attempts)
	default:
		return "unknown"
	}
}

// nextState applies one delivery outcome to a queued entry. attempts is
// the counter value after the attempt was recorded.
func nextState(attempts int, delivered bool, attemptCap int) State {
	if delivered {
		return Delivered(attempts)
	}
	if attempts >= attemptCap {
		return Abandoned(attempts)
	}
	return Queued(attempts)
}
