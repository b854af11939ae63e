package relay

import (
	"sync"
	"time"

	apperrors "vertex-relay/internal/errors"
)

// State is the lifecycle position of one relay invocation.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Outcome is the terminal result of Relay.Run.
type Outcome struct {
	State State
	// Kind is empty only for StateCompleted.
	Kind   apperrors.Kind
	Detail string
	// Streamed is true once the first pull was issued.
	Streamed bool
	Chunks   int
	Bytes    int64
	Duration time.Duration
}

// stateMachine allows Idle -> Streaming -> terminal, and Idle -> terminal.
// The first terminal transition wins; later ones are ignored.
type stateMachine struct {
	mu       sync.Mutex
	state    State
	streamed bool
	kind     apperrors.Kind
	detail   string
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *stateMachine) startStreaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return false
	}
	m.state = StateStreaming
	m.streamed = true
	return true
}

func (m *stateMachine) finish(state State, kind apperrors.Kind, detail string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() || !state.Terminal() {
		return false
	}
	m.state = state
	m.kind = kind
	m.detail = detail
	return true
}

func (m *stateMachine) snapshot() (State, apperrors.Kind, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.kind, m.detail, m.streamed
}
