package store

import (
	"context"

	"meritbot/domain/entities"
)

// Store is the single owned handle to the mutable guild state. Every
// read-modify-write sequence runs inside RunExclusive so interleaved
// asynchronous operations cannot observe partial updates. Components receive
// the store by injection; there is no package-level singleton.
type Store struct {
	guard *Guard
	state entities.GuildState
}

// New creates a store with empty state.
func New() *Store {
	return NewWithState(make(entities.GuildState))
}

// NewWithState creates a store around previously loaded state.
func NewWithState(state entities.GuildState) *Store {
	if state == nil {
		state = make(entities.GuildState)
	}
	return &Store{
		guard: NewGuard(),
		state: state,
	}
}

// RunExclusive runs fn while holding the guard. The guard stays held across
// every suspension point inside fn: acquire happens before the first read,
// release only after fn returns.
func (s *Store) RunExclusive(ctx context.Context, fn func(state entities.GuildState) error) error {
	if err := s.guard.Acquire(ctx); err != nil {
		return err
	}
	defer s.guard.Release()
	return fn(s.state)
}
