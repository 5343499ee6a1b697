// Package memory implements types.Store in process memory. Update runs on
// a private copy of the state and swaps it in only when the callback
// succeeds, so every transaction is all-or-nothing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/gridbook/internal/grid"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// Store is an in-memory types.Store.
type Store struct {
	mu       sync.RWMutex
	attached bool
	state    *state
	now      func() time.Time
}

type state struct {
	nextID int64
	sheets map[int64]*sheetEntry
}

type sheetEntry struct {
	meta types.Sheet
	grid *grid.Grid
}

// NewStore creates a detached Store.
func NewStore() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

// Attach initializes an empty state. The config's DataDir and DSN are
// ignored.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	s.state = &state{nextID: 1, sheets: make(map[int64]*sheetEntry)}
	s.attached = true
	return nil
}

// Detach drops all data. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attached = false
	s.state = nil
	return nil
}

// View runs fn against the current state under a read lock.
func (s *Store) View(ctx context.Context, fn func(tx types.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return types.ErrStoreDetached
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{state: s.state, readOnly: true, now: s.now})
}

// Update runs fn against a copy of the state and commits the copy if fn
// returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx types.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStoreDetached
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.state.clone()
	if err := fn(&tx{state: working, now: s.now}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (st *state) clone() *state {
	c := &state{nextID: st.nextID, sheets: make(map[int64]*sheetEntry, len(st.sheets))}
	for id, e := range st.sheets {
		c.sheets[id] = &sheetEntry{meta: e.meta, grid: e.grid.Clone()}
	}
	return c
}

// ordered returns sheets by creation time, then id.
func (st *state) ordered() []*sheetEntry {
	out := make([]*sheetEntry, 0, len(st.sheets))
	for _, e := range st.sheets {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].meta, out[j].meta
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}
