package bridge

import (
	"sync"

	"vmidi-bridge/midi"
)

// RepeatStore keeps the latest event per repeat key in insertion order.
// Re-inserting a key moves it to the end. It is written by the outbound
// forwarder and read by the repeat loop, so every access takes the lock.
type RepeatStore struct {
	mu     sync.Mutex
	events []midi.Event
}

func NewRepeatStore() *RepeatStore {
	return &RepeatStore{}
}

// Upsert records ev, replacing any entry with the same key. Untracked
// events are ignored and false is returned.
func (s *RepeatStore) Upsert(ev midi.Event) bool {
	key, ok := ev.Key()
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, old := range s.events {
		if k, _ := old.Key(); k == key {
			s.events = append(s.events[:i], s.events[i+1:]...)
			break
		}
	}
	s.events = append(s.events, ev)
	return true
}

// Snapshot returns a copy of the entries in order
func (s *RepeatStore) Snapshot() []midi.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]midi.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *RepeatStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *RepeatStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Flush sends every entry's short form to out, in order. A failed send is
// counted and skipped.
func (s *RepeatStore) Flush(out midi.Sender) (sent, failed int) {
	// Sends happen outside the lock
	for _, ev := range s.Snapshot() {
		if err := out.Send(ev.Short()); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}
