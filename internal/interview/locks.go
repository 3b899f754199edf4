package interview

import (
	"context"
	"sync"
	"time"
)

// lockTable serializes mutating operations per session id. Each session maps
// to a one-slot semaphore; acquisition is bounded so a stuck operation turns
// into a busy error instead of an unbounded queue.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]chan struct{})}
}

func (t *lockTable) sem(id string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	sem, ok := t.locks[id]
	if !ok {
		sem = make(chan struct{}, 1)
		t.locks[id] = sem
	}
	return sem
}

// acquire takes the session's lock, waiting at most timeout. It returns
// ErrSessionBusy on timeout and the context error if ctx is done first.
func (t *lockTable) acquire(ctx context.Context, id string, timeout time.Duration) error {
	sem := t.sem(id)

	select {
	case sem <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrSessionBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *lockTable) release(id string) {
	sem := t.sem(id)
	select {
	case <-sem:
	default:
	}
}
