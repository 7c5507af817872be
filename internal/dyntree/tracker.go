package dyntree

import (
	"context"
	"sync"
)

// tracker counts background goroutines. Unlike sync.WaitGroup it allows new
// work to start while another goroutine is waiting, and refuses new work once
// closed.
type tracker struct {
	mu     sync.Mutex
	n      int
	idle   chan struct{}
	closed bool
}

func newTracker() *tracker {
	idle := make(chan struct{})
	close(idle)
	return &tracker{idle: idle}
}

// add registers one goroutine. It returns false after close.
func (t *tracker) add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
	return true
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

// pending returns the number of running goroutines.
func (t *tracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// wait blocks until no goroutine is registered or ctx is done. Work added
// while waiting extends the wait.
func (t *tracker) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		idle := t.idle
		n := t.n
		t.mu.Unlock()
		if n == 0 {
			return nil
		}

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close stops accepting work. Running goroutines are not affected.
func (t *tracker) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}
