// Package pagecount aggregates the page counts reported by individual cards.
//
// Cards report through a keyed Store: Set adds or updates an entry, Delete
// removes it. The total is always the sum over the entries currently
// present, so a card that goes away must be deleted explicitly.
package pagecount

import (
	"sort"
	"sync"
)

// Signal holds a value and notifies subscribers whenever it changes.
type Signal[T comparable] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)
}

// NewSignal returns a signal holding initial.
func NewSignal[T comparable](initial T) *Signal[T] {
	return &Signal[T]{value: initial, subs: map[int]func(T){}}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and publishes it if it differs from the current value.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	if v == s.value {
		s.mu.Unlock()
		return
	}
	s.value = v
	subs := s.snapshot()
	s.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn and returns the function that removes it.
// fn is not called with the current value.
func (s *Signal[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	if s.subs == nil {
		s.subs = map[int]func(T){}
	}
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// snapshot copies the subscribers in registration order. Callers hold mu.
func (s *Signal[T]) snapshot() []func(T) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(T), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

// Store maps a card id to its page count.
type Store struct {
	// pub orders updates with their publication; mu guards counts only.
	pub    sync.Mutex
	mu     sync.Mutex
	counts map[string]int
	total  *Signal[int]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{counts: map[string]int{}, total: NewSignal(0)}
}

// Set records count pages for id. Negative counts are treated as zero.
func (s *Store) Set(id string, count int) {
	if count < 0 {
		count = 0
	}
	s.update(func(counts map[string]int) { counts[id] = count })
}

// Delete removes id. Deleting a missing id is a no-op.
func (s *Store) Delete(id string) {
	s.update(func(counts map[string]int) { delete(counts, id) })
}

// update applies change under mu and publishes the new total after releasing it.
func (s *Store) update(change func(map[string]int)) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	change(s.counts)
	sum := s.sumLocked()
	s.mu.Unlock()
	s.total.Set(sum)
}

// Get returns the count for id.
func (s *Store) Get(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.counts[id]
	return n, ok
}

// Len returns the number of cards currently tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counts)
}

// IDs returns the tracked ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.counts))
	for id := range s.counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sum returns the total page count.
func (s *Store) Sum() int { return s.total.Get() }

// Subscribe is notified with the new total whenever it changes. Totals are
// published in update order. fn may read the store (Len, Get, IDs, Sum) but
// must not call Set or Delete.
func (s *Store) Subscribe(fn func(total int)) (unsubscribe func()) {
	return s.total.Subscribe(fn)
}

// Reporter returns a page-count callback bound to id: a known count sets
// the entry, an unknown count deletes it.
func (s *Store) Reporter(id string) func(count int, known bool) {
	return func(count int, known bool) {
		if !known {
			s.Delete(id)
			return
		}
		s.Set(id, count)
	}
}

func (s *Store) sumLocked() int {
	sum := 0
	for _, n := range s.counts {
		sum += n
	}
	return sum
}
