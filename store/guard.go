package store

import "context"

// Guard is an exclusive lock that is safe to hold across blocking calls
// (roster lookups, chat-history fetches, persistence I/O). Unlike a
// sync.Mutex it supports context-aware acquisition, so a caller abandoning
// the wait does not leak the slot.
//
// There is no read/write distinction: all access to guild state is
// exclusive.
type Guard struct {
	sem chan struct{}
}

// NewGuard creates an unheld guard.
func NewGuard() *Guard {
	return &Guard{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the guard is held or ctx is done.
func (g *Guard) Acquire(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the guard. Releasing an unheld guard panics: it means a
// critical section was unbalanced.
func (g *Guard) Release() {
	select {
	case <-g.sem:
	default:
		panic("store: release of unheld guard")
	}
}
