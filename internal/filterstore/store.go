// Package filterstore holds the canonical filter state machine.
//
// Brushing is two-phase. Preview updates touch only a per-field draft and
// emit throttled events for visual feedback; they never mutate the committed
// envelope or advance the generation. Commit, clear, reset, and restore
// replace envelope state atomically, advance the generation exactly once,
// and emit a committed-change event. If multiple preview updates arrive
// before a commit, only the latest draft matters.
package filterstore

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/crossfilter/internal/filter"
)

// EventType discriminates preview feedback from committed changes.
type EventType uint8

const (
	// EventPreview is throttled draft feedback; non-canonical.
	EventPreview EventType = iota
	// EventCommit is a committed envelope change; canonical and never dropped.
	EventCommit
)

// Event is delivered to the coordinator for each state change.
type Event struct {
	Type  EventType
	Field string
	// Envelope is a clone of the effective envelope: the committed envelope
	// for commit events, or the committed envelope overlaid with the current
	// draft for preview events.
	Envelope   filter.Envelope
	Generation uint64
}

// DefaultPreviewInterval caps preview feedback at ~60 events/second.
const DefaultPreviewInterval = 16 * time.Millisecond

const eventBuffer = 128

// Store is the filter state machine. All methods are safe for concurrent
// use; committed mutations are atomic and totally ordered by generation.
type Store struct {
	mu           sync.Mutex
	env          filter.Envelope
	gen          uint64
	previewing   bool
	previewField string
	draft        filter.Filter
	limiter      *rate.Limiter
	events       chan Event
	closed       bool
}

// New creates a store with an empty committed envelope at generation zero.
// previewInterval throttles preview events; <= 0 uses DefaultPreviewInterval.
func New(previewInterval time.Duration) *Store {
	if previewInterval <= 0 {
		previewInterval = DefaultPreviewInterval
	}
	return &Store{
		env:     filter.Envelope{},
		limiter: rate.NewLimiter(rate.Every(previewInterval), 1),
		events:  make(chan Event, eventBuffer),
	}
}

// Events returns the stream consumed by the coordinator. It is closed by
// Close.
func (s *Store) Events() <-chan Event { return s.events }

// BeginBrush enters the previewing state for field, discarding any draft for
// a previously brushed field.
func (s *Store) BeginBrush(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewing = true
	s.previewField = field
	s.draft = nil
}

// UpdateBrush replaces the draft for f's field and emits a throttled preview
// event. The committed envelope and generation are untouched. Calling it
// outside a brush implicitly begins one.
func (s *Store) UpdateBrush(f filter.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.previewing = true
	s.previewField = f.Field()
	s.draft = f

	if !s.limiter.Allow() {
		return
	}

	ev := Event{
		Type:       EventPreview,
		Field:      f.Field(),
		Envelope:   s.env.With(f),
		Generation: s.gen,
	}
	// Previews are droppable by contract: a newer one supersedes anyway.
	select {
	case s.events <- ev:
	default:
	}
}

// CommitBrush replaces f's field in the envelope (overwrite, not union),
// advances the generation, emits a committed-change event, and returns to
// idle.
func (s *Store) CommitBrush(f filter.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(f.Field(), s.env.With(f))
}

// ClearFilter removes field's entry. Removal of an absent field is a no-op
// on the envelope but still a committed mutation: the generation advances
// and an event is emitted.
func (s *Store) ClearFilter(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(field, s.env.Without(field))
}

// ResetAll empties the envelope as a single committed mutation.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked("", filter.Envelope{})
}

// Restore reapplies a prior envelope as a new commit.
func (s *Store) Restore(env filter.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked("", env.Clone())
}

func (s *Store) commitLocked(field string, next filter.Envelope) {
	if s.closed {
		return
	}

	s.env = next
	s.gen++
	s.previewing = false
	s.previewField = ""
	s.draft = nil

	// Commit events are never dropped. The send stays under the lock so
	// concurrent committers cannot reorder events relative to generations;
	// the coordinator drains continuously, so the buffer absorbs bursts.
	s.events <- Event{
		Type:       EventCommit,
		Field:      field,
		Envelope:   s.env.Clone(),
		Generation: s.gen,
	}
}

// Snapshot returns a clone of the committed envelope and its generation.
func (s *Store) Snapshot() (filter.Envelope, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.Clone(), s.gen
}

// Generation returns the current committed generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Close closes the event stream. Further mutations are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
