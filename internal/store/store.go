package store

import "sync"

// Listener runs after every dispatch, outside the store lock.
type Listener func(prev, next State, a Action)

type Store struct {
	mu        sync.Mutex
	state     State
	listeners []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Listener
}

func New(initial State) *Store {
	return &Store{state: initial}
}

// Dispatch applies a to the current state and returns the new state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, a)
	s.state = next
	ls := make([]subscription, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, l := range ls {
		l.fn(prev, next, a)
	}
	return next
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}
