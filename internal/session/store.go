package session

import (
	"sync"
)

// Store owns the authoritative AppState. All writers funnel through
// Apply, which mutates the state synchronously under one lock: a writer
// that applies a transition and immediately reads the store observes its
// own write, so back-to-back correlation steps never act on stale state.
// Subscribers receive snapshots asynchronously and may observe coalesced
// updates.
type Store struct {
	mu    sync.Mutex
	state AppState

	subMu   sync.Mutex
	subs    map[int]chan AppState
	nextSub int
}

// NewStore creates a store in the initial (disconnected, empty) state.
func NewStore() *Store {
	return &Store{
		state: AppState{Connection: Disconnected},
		subs:  map[int]chan AppState{},
	}
}

// Apply runs the given transitions in order as one atomic step and then
// notifies subscribers with the resulting snapshot.
func (s *Store) Apply(transitions ...Transition) {
	s.mu.Lock()
	for _, t := range transitions {
		t.apply(&s.state)
	}
	snap := s.state.clone()
	s.mu.Unlock()

	s.publish(snap)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// LastMessage returns a copy of the trailing timeline message.
func (s *Store) LastMessage() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.Messages) == 0 {
		return Message{}, false
	}
	return s.state.Messages[len(s.state.Messages)-1].clone(), true
}

// MessageByID returns a copy of the message with the given id.
func (s *Store) MessageByID(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Messages {
		if s.state.Messages[i].ID == id {
			return s.state.Messages[i].clone(), true
		}
	}
	return Message{}, false
}

// Subscribe registers a read-only snapshot channel. A slow subscriber
// drops intermediate snapshots and keeps only the most recent one; the
// returned cancel func unregisters and closes the channel.
func (s *Store) Subscribe() (<-chan AppState, func()) {
	ch := make(chan AppState, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Store) publish(snap AppState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Replace the pending snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
