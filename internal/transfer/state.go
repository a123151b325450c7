package transfer

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type State uint8

const (
	StateConnecting State = iota
	StateTransferring
	StateCompleted
	StateCanceled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateTransferring:
		return "transferring"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s >= StateCompleted
}

type Direction uint8

const (
	DirectionSend Direction = iota
	DirectionReceive
)

func (d Direction) String() string {
	if d == DirectionSend {
		return "send"
	}
	return "receive"
}

// Session tracks one transfer. Counters may be read from any goroutine.
type Session struct {
	ID    uuid.UUID
	token *CancelToken

	mu          sync.Mutex
	state       atomic.Uint32
	transferred atomic.Uint64
	total       atomic.Uint64
}

type Snapshot struct {
	ID               uuid.UUID
	State            State
	BytesTransferred uint64
	TotalBytes       uint64
}

func newSession() *Session {
	return &Session{ID: uuid.New(), token: NewCancelToken()}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:               s.ID,
		State:            s.State(),
		BytesTransferred: s.transferred.Load(),
		TotalBytes:       s.total.Load(),
	}
}

// Cancel is a no-op once the session reached a terminal state.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State().Terminal() {
		return
	}
	s.token.Cancel()
}

func (s *Session) IsCanceled() bool {
	return s.token.IsCanceled()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.State().Terminal() {
		s.state.Store(uint32(state))
	}
}

// complete marks the session completed unless it was canceled first.
func (s *Session) complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.IsCanceled() {
		return false
	}
	s.state.Store(uint32(StateCompleted))
	return true
}
