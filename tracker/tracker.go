// Package tracker associates outstanding cancelable operations with the
// cache group they serve, so deleting a group can cancel all work still in
// flight for it. Purely in-memory bookkeeping; nothing here is persisted.
package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Tracker is a registry of cancel handles keyed by group key. Safe for
// concurrent use; track/untrack arrive from many fetch-completion goroutines
// at once.
type Tracker struct {
	mu     sync.Mutex
	groups map[string]map[uuid.UUID]context.CancelFunc
}

func New() *Tracker {
	return &Tracker{groups: make(map[string]map[uuid.UUID]context.CancelFunc)}
}

// Track records a cancel handle for groupKey under id.
func (t *Tracker) Track(id uuid.UUID, cancel context.CancelFunc, groupKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[groupKey]
	if !ok {
		g = make(map[uuid.UUID]context.CancelFunc)
		t.groups[groupKey] = g
	}
	g[id] = cancel
}

// Untrack removes one handle. Idempotent: unknown ids and unknown groups are
// no-ops, which lets completions race freely with CancelAll.
func (t *Tracker) Untrack(id uuid.UUID, groupKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[groupKey]
	if !ok {
		return
	}
	delete(g, id)
	if len(g) == 0 {
		delete(t.groups, groupKey)
	}
}

// CancelAll invokes every tracked handle for groupKey and clears the entry.
// Handles run outside the lock; a handle may be invoked concurrently with its
// own Untrack.
func (t *Tracker) CancelAll(groupKey string) {
	t.mu.Lock()
	g := t.groups[groupKey]
	delete(t.groups, groupKey)
	t.mu.Unlock()

	for _, cancel := range g {
		cancel()
	}
}

// Outstanding returns the number of tracked handles for groupKey.
func (t *Tracker) Outstanding(groupKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.groups[groupKey])
}
