package core

import (
	"sync"

	"lifeline/pkg/domain"
)

// EventKind names what happened to the list.
type EventKind string

const (
	EventLoaded  EventKind = "loaded"
	EventAdded   EventKind = "added"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is delivered to subscribers after the list changed.
type Event struct {
	Kind EventKind
	// Contacts is a copy of the list after the change.
	Contacts []domain.Contact
	Changes  []domain.Change
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// subscribers keeps registration order so notifications are deterministic.
// Events are queued in mutation order and delivered by one goroutine at a time,
// so every subscriber sees them in that order.
type subscribers struct {
	mu         sync.Mutex
	next       uint64
	subs       []subscriber
	pending    []Event
	delivering bool
}

func (s *subscribers) add(fn func(Event)) func() {
	s.mu.Lock()
	s.next++
	id := s.next
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// enqueue must be called while the repository lock is held.
func (s *subscribers) enqueue(evt Event) {
	s.mu.Lock()
	s.pending = append(s.pending, evt)
	s.mu.Unlock()
}

// deliver drains queued events. When another goroutine is already delivering
// it returns at once and that goroutine delivers the queued events too.
func (s *subscribers) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		evt := s.pending[0]
		s.pending[0] = Event{}
		s.pending = s.pending[1:]
		subs := make([]subscriber, len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()
		for _, sub := range subs {
			e := evt
			e.Contacts = cloneContacts(evt.Contacts)
			sub.fn(e)
		}
		s.mu.Lock()
	}
	// Cleared under the same lock that saw the queue empty, so an event
	// enqueued meanwhile is never left undelivered.
	s.delivering = false
	s.mu.Unlock()
}
