// Package filters owns the dashboard's single current filter selection.
package filters

import (
	"sync"

	"sales-dashboard/internal/models"
)

// Store holds the current FilterSelection and broadcasts every update.
//
// Values are cloned on the way in and out, so publishing is always
// replace-then-notify and nobody can mutate the stored selection in place.
// No validation happens here; inverted ranges pass through unchanged.
type Store struct {
	// publishMu orders publishes and subscriptions; mu guards the fields.
	publishMu sync.Mutex
	mu        sync.RWMutex
	current   models.FilterSelection
	nextID    int
	observers map[int]func(models.FilterSelection)
	order     []int
	published uint64
}

func NewStore(initial models.FilterSelection) *Store {
	return &Store{
		current:   initial.Clone(),
		observers: make(map[int]func(models.FilterSelection)),
	}
}

// Current returns a copy of the current selection.
func (s *Store) Current() models.FilterSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Published is the number of updates since the store was created.
func (s *Store) Published() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// Update replaces the selection and notifies subscribers in subscription
// order. Subscribers must not call Update from inside their callback.
func (s *Store) Update(next models.FilterSelection) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.current = next.Clone()
	s.published++
	fns := s.snapshotObservers()
	value := s.current
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value.Clone())
	}
}

// Republish notifies subscribers of the current selection again. The read
// and the notify happen under the publish lock, so a concurrent Update is
// never overwritten.
func (s *Store) Republish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.published++
	fns := s.snapshotObservers()
	value := s.current
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value.Clone())
	}
}

// Subscribe delivers the current selection immediately, then every update.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(models.FilterSelection)) (unsubscribe func()) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)
	value := s.current.Clone()
	s.mu.Unlock()

	fn(value)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
			for i, oid := range s.order {
				if oid == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) snapshotObservers() []func(models.FilterSelection) {
	fns := make([]func(models.FilterSelection), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.observers[id])
	}
	return fns
}
