package transfer

import (
	"sync"
	"sync/atomic"
)

// CancelToken is set once and never cleared. Aborts registered with OnCancel
// run on the goroutine that calls Cancel.
type CancelToken struct {
	canceled atomic.Bool

	mu     sync.Mutex
	next   int
	aborts map[int]func()
}

func NewCancelToken() *CancelToken {
	return &CancelToken{aborts: make(map[int]func())}
}

func (t *CancelToken) Cancel() {
	t.mu.Lock()
	if t.canceled.Load() {
		t.mu.Unlock()
		return
	}
	t.canceled.Store(true)
	aborts := make([]func(), 0, len(t.aborts))
	for _, f := range t.aborts {
		aborts = append(aborts, f)
	}
	t.aborts = nil
	t.mu.Unlock()

	for _, f := range aborts {
		f()
	}
}

func (t *CancelToken) IsCanceled() bool {
	return t.canceled.Load()
}

// OnCancel registers f to run on cancellation, or runs it right away if the
// token is already canceled. The returned func unregisters f.
func (t *CancelToken) OnCancel(f func()) (stop func()) {
	t.mu.Lock()
	if t.canceled.Load() {
		t.mu.Unlock()
		f()
		return func() {}
	}
	id := t.next
	t.next++
	t.aborts[id] = f
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.aborts, id)
		t.mu.Unlock()
	}
}
