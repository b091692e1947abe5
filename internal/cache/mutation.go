package cache

import (
	"sync"

	"github.com/google/uuid"
)

// Mutation is the handle for one optimistic change. Exactly one of
// Commit or Rollback resolves it; both are idempotent afterwards.
type Mutation[T Item] struct {
	Handle string

	c      *Collection[T]
	itemID string
	once   sync.Once
}

// Mutate applies fn to the cached item and records the prior value for
// rollback. fn receives a value copy and must return the changed item;
// it must not modify reference fields of the input in place.
//
// Returns ErrMutationPending while a previous mutation on the same
// item is unresolved, and false when the item is not cached.
func (c *Collection[T]) Mutate(itemID string, fn func(T) T) (*Mutation[T], bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[itemID]; exists {
		return nil, true, ErrMutationPending
	}
	current, ok := c.items[itemID]
	if !ok {
		return nil, false, nil
	}

	snapshot := current
	c.items[itemID] = fn(current)
	m := &Mutation[T]{Handle: uuid.NewString(), c: c, itemID: itemID}
	c.pending[itemID] = &pending[T]{handle: m.Handle, snapshot: &snapshot}
	return m, true, nil
}

// Insert adds a locally created item that the server has not
// acknowledged yet. Rollback removes it; Commit keeps it (replaced by
// the server's authoritative copy when one is supplied).
func (c *Collection[T]) Insert(item T) (*Mutation[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := item.ItemID()
	if _, exists := c.pending[id]; exists {
		return nil, ErrMutationPending
	}
	c.items[id] = item
	m := &Mutation[T]{Handle: uuid.NewString(), c: c, itemID: id}
	c.pending[id] = &pending[T]{handle: m.Handle}
	return m, nil
}

// Commit resolves the mutation as accepted. When the server returned
// the authoritative item, pass it so the cache converges on server
// truth immediately instead of waiting for the next push.
func (m *Mutation[T]) Commit(server *T) {
	m.once.Do(func() {
		c := m.c
		c.mu.Lock()
		defer c.mu.Unlock()
		p, ok := c.pending[m.itemID]
		if !ok || p.handle != m.Handle {
			return
		}
		delete(c.pending, m.itemID)
		if server != nil {
			c.mergeLocked(*server)
		}
	})
}

// Rollback resolves the mutation as rejected and restores the exact
// pre-mutation state: the recorded snapshot for an update, removal for
// an insert.
func (m *Mutation[T]) Rollback() {
	m.once.Do(func() {
		c := m.c
		c.mu.Lock()
		defer c.mu.Unlock()
		p, ok := c.pending[m.itemID]
		if !ok || p.handle != m.Handle {
			return
		}
		delete(c.pending, m.itemID)
		if p.snapshot == nil {
			delete(c.items, m.itemID)
			return
		}
		c.items[m.itemID] = *p.snapshot
		c.log.Debug().Str("item_id", m.itemID).Msg("optimistic mutation rolled back")
	})
}
