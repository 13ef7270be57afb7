// Package caption holds the text display fed by classifier and barcode
// passes: the current caption, a bounded history of distinct captions, and
// change events for surfaces.
package caption

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/camera-overlay/internal/detection"
)

// Entry is one displayed caption.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Variant    string    `json:"variant"`
}

// Event reports a caption change. Entry is nil when the caption was cleared.
type Event struct {
	Entry *Entry
}

// Store is an in-memory caption store.
type Store struct {
	mu       sync.RWMutex
	current  *Entry
	history  []Entry
	maxSize  int
	eventsCh chan Event
}

// NewStore creates a caption store.
func NewStore(maxEntries, eventBuffer int) *Store {
	return &Store{
		history:  make([]Entry, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan Event, eventBuffer),
	}
}

// Apply installs the caption from one pass. A nil caption clears the
// display. It reports whether the displayed label changed; confidence
// updates for the same label are recorded without an event.
func (s *Store) Apply(c *detection.Caption, variant detection.Variant) bool {
	if c == nil {
		return s.Clear()
	}

	s.mu.Lock()
	same := s.current != nil && s.current.Label == c.Label
	e := Entry{Timestamp: time.Now(), Label: c.Label, Confidence: c.Confidence, Variant: string(variant)}
	s.current = &e
	if !same {
		s.history = append(s.history, e)
		if len(s.history) > s.maxSize {
			s.history = s.history[len(s.history)-s.maxSize:]
		}
	}
	s.mu.Unlock()

	if same {
		return false
	}
	s.emit(Event{Entry: &e})
	return true
}

// Clear removes the current caption. It reports whether one was shown.
func (s *Store) Clear() bool {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if had {
		s.emit(Event{})
	}
	return had
}

// Current returns the displayed caption, if any.
func (s *Store) Current() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Entry{}, false
	}
	return *s.current, true
}

// History returns up to n most recent distinct captions, oldest first.
// n <= 0 returns all of them.
func (s *Store) History(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	result := make([]Entry, len(h))
	copy(result, h)
	return result
}

// Events returns the channel for caption events.
func (s *Store) Events() <-chan Event {
	return s.eventsCh
}

// emit sends an event (non-blocking).
func (s *Store) emit(event Event) {
	select {
	case s.eventsCh <- event:
	default:
	}
}
