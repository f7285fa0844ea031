package chat

import (
	"context"
	"sync"

	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
)

// StateStore owns the observable snapshot of one conversation. Each update
// replaces the snapshot as a whole and fans it out to subscribers.
type StateStore struct {
	mu     sync.Mutex
	state  chat.State
	subs   map[int]chan chat.State
	nextID int
}

// NewStateStore returns a store holding the empty state.
func NewStateStore() *StateStore {
	return &StateStore{
		state: chat.State{Messages: []chat.Turn{}},
		subs:  make(map[int]chan chat.State),
	}
}

// Snapshot returns the current state. Callers must not modify it.
func (s *StateStore) Snapshot() chat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to a private copy of the state and publishes the result.
func (s *StateStore) Update(fn func(*chat.State)) chat.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	fn(&next)
	next.Version = s.state.Version + 1
	s.state = next

	for _, ch := range s.subs {
		publish(ch, next)
	}
	return next
}

// Subscribe returns a channel that receives the current snapshot and every
// later one. Slow readers only see the newest snapshot. The channel is closed
// once ctx ends.
func (s *StateStore) Subscribe(ctx context.Context) <-chan chat.State {
	ch := make(chan chat.State, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.state
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// publish delivers st, replacing an unread older snapshot. Called with the
// store lock held, so there is a single sender per channel.
func publish(ch chan chat.State, st chat.State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}
