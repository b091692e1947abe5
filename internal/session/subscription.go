package session

import (
	"sort"
	"sync"
)

// Subscription is a scoped listener registration. Cancel is idempotent
// and guarantees the listener is released, so teardown paths cannot
// leak handlers.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel removes the listener.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// subscribers fans snapshots out to registered listeners. Notification
// is synchronous and ordered per listener; a listener panic is
// contained so the remaining listeners still hear the change.
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Snapshot)
}

func newSubscribers() *subscribers {
	return &subscribers{fns: make(map[int]func(Snapshot))}
}

func (s *subscribers) add(fn func(Snapshot)) *Subscription {
	s.mu.Lock()
	id := s.next
	s.next++
	s.fns[id] = fn
	s.mu.Unlock()

	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}}
}

func (s *subscribers) notify(snap Snapshot) {
	s.mu.Lock()
	ordered := make([]func(Snapshot), 0, len(s.fns))
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		ordered = append(ordered, s.fns[id])
	}
	s.mu.Unlock()

	for _, fn := range ordered {
		func() {
			defer func() { _ = recover() }()
			fn(snap)
		}()
	}
}
