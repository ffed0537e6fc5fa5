package vars

import (
	"sort"
	"sync"
)

// EventType describes a store mutation.
type EventType string

const (
	EventSet    EventType = "set"
	EventDelete EventType = "delete"
	EventClear  EventType = "clear"
)

// Event is delivered to change listeners after every store mutation.
type Event struct {
	Type  EventType
	Name  string
	Value any
}

// Listener receives store change events. Listeners run synchronously on the
// mutating goroutine and must not mutate the store.
type Listener func(Event)

// Store is the single source of truth for name->value bindings during a run.
// It is safe for concurrent use, though a flow run itself is sequential.
type Store struct {
	mu        sync.RWMutex
	values    map[string]any
	listeners []Listener
}

func NewStore() *Store {
	return &Store{
		values: make(map[string]any),
	}
}

// OnChange registers a listener fired after every Set, Delete and Clear.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Set binds name to value, silently overwriting any earlier binding.
// Empty names are ignored.
func (s *Store) Set(name string, value any) {
	if name == "" {
		return
	}
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
	s.notify(Event{Type: EventSet, Name: name, Value: value})
}

// SetAll binds every entry of values. Notification fires once per entry.
func (s *Store) SetAll(values map[string]any) {
	for k, v := range values {
		s.Set(k, v)
	}
}

// Get returns the bound value and whether the name is bound.
func (s *Store) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Delete removes a binding. Deleting an absent name is a no-op and fires
// no event.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	_, ok := s.values[name]
	if ok {
		delete(s.values, name)
	}
	s.mu.Unlock()
	if ok {
		s.notify(Event{Type: EventDelete, Name: name})
	}
}

// Clear removes every binding.
func (s *Store) Clear() {
	s.mu.Lock()
	s.values = make(map[string]any)
	s.mu.Unlock()
	s.notify(Event{Type: EventClear})
}

// Len returns the number of bindings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Names returns all bound names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Snapshot returns a shallow copy of the current bindings.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent store seeded with the current bindings.
// Listeners are not carried over.
func (s *Store) Clone() *Store {
	clone := NewStore()
	clone.values = s.Snapshot()
	return clone
}
