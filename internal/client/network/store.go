// Package network tracks connectivity. A StatusStore holds the shared
// "is online" flag; a Monitor feeds it from a Source.
package network

import "sync"

// StatusStore is an observable connectivity flag. Reads never block on I/O.
// Construct one per process and pass it to every consumer.
type StatusStore struct {
	mu     sync.RWMutex
	online bool
	next   int
	subs   map[int]func(online bool)
}

func NewStatusStore(initial bool) *StatusStore {
	return &StatusStore{online: initial, subs: make(map[int]func(bool))}
}

func (s *StatusStore) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// Set stores the flag and notifies subscribers when it changed.
func (s *StatusStore) Set(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	subs := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for changes. The returned function unsubscribes and
// may be called any number of times.
func (s *StatusStore) Subscribe(fn func(online bool)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers reports how many subscriptions are active.
func (s *StatusStore) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
