// Package cache keeps the client-side mirror of server resources:
// paged fetch results, real-time pushes, and optimistic mutations with
// exact rollback.
package cache

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/pitchside-go/internal/types"
)

// Item is anything the cache can hold. Implementations are plain value
// structs; the cache copies them by value for snapshots.
type Item interface {
	ItemID() string
	ItemUpdatedAt() time.Time
}

// ErrMutationPending is returned when an item already has an
// unresolved optimistic mutation. One in-flight mutation per item.
var ErrMutationPending = errors.New("cache: item has a pending mutation")

type pending[T Item] struct {
	handle   string
	snapshot *T // nil when the mutation inserted the item
}

// Collection mirrors one server resource. All methods are safe for
// concurrent use.
type Collection[T Item] struct {
	resource types.Resource
	log      zerolog.Logger

	mu           sync.Mutex
	items        map[string]T
	pending      map[string]*pending[T]
	page         int
	hasMore      bool
	lastSyncedAt time.Time

	now func() time.Time
}

// NewCollection returns an empty mirror for resource.
func NewCollection[T Item](resource types.Resource, log zerolog.Logger) *Collection[T] {
	return &Collection[T]{
		resource: resource,
		log:      log.With().Str("component", "cache").Str("resource", string(resource)).Logger(),
		items:    make(map[string]T),
		pending:  make(map[string]*pending[T]),
		hasMore:  true,
		now:      time.Now,
	}
}

// Resource names the server resource this collection mirrors.
func (c *Collection[T]) Resource() types.Resource { return c.resource }

// ApplyPage merges one fetched page. Items merge last-write-wins by
// server timestamp, so a page raced by a fresher push never moves an
// item backwards. A failed fetch must simply not call ApplyPage; the
// cache keeps serving what it has.
//
// The has-more flag comes from the server when it sent one, otherwise
// from the full-page heuristic: a page shorter than requested is the
// last page.
func (c *Collection[T]) ApplyPage(page types.Page[T], requestedSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range page.Items {
		c.mergeLocked(item)
	}
	c.page = page.Page
	c.lastSyncedAt = c.now()
	if page.HasMore != nil {
		c.hasMore = *page.HasMore
	} else {
		c.hasMore = requestedSize > 0 && len(page.Items) == requestedSize
	}
}

// ApplyRemote merges one pushed item. Returns false when the cached
// copy is already fresher and the push was discarded.
func (c *Collection[T]) ApplyRemote(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mergeLocked(item)
}

// mergeLocked is the single LWW merge point. An item under a pending
// mutation keeps its optimistic value on screen; the incoming server
// state replaces the rollback snapshot instead, so a later rollback
// restores current server truth rather than a stale copy.
func (c *Collection[T]) mergeLocked(item T) bool {
	id := item.ItemID()
	if p, ok := c.pending[id]; ok {
		if p.snapshot == nil || !(*p.snapshot).ItemUpdatedAt().After(item.ItemUpdatedAt()) {
			p.snapshot = &item
		}
		return false
	}
	if existing, ok := c.items[id]; ok && existing.ItemUpdatedAt().After(item.ItemUpdatedAt()) {
		return false
	}
	c.items[id] = item
	return true
}

// Get returns the cached item, optimistic value included.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	return item, ok
}

// Items returns a snapshot ordered newest-first, ties broken by ID for
// a stable result.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].ItemUpdatedAt(), out[j].ItemUpdatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ItemID() < out[j].ItemID()
	})
	return out
}

// Len reports the number of cached items.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Page returns the last merged page number.
func (c *Collection[T]) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// HasMore reports whether another page is believed to exist.
func (c *Collection[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// LastSyncedAt returns when the collection last merged a fetched page.
// Zero until the first successful fetch.
func (c *Collection[T]) LastSyncedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSyncedAt
}

// Clear drops every item and pending mutation. Used on logout so the
// next account never sees the previous account's data.
func (c *Collection[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]T)
	c.pending = make(map[string]*pending[T])
	c.page = 0
	c.hasMore = true
	c.lastSyncedAt = time.Time{}
}
