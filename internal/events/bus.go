// Package events carries review progress to observers such as the CLI
// renderer and the HTTP API. Publishing never blocks the orchestrator.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is implemented by every event type.
type Event interface {
	EventType() string
	Timestamp() time.Time
	RunID() string
}

// BaseEvent provides the common fields.
type BaseEvent struct {
	Type string    `json:"type"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"run_id"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) RunID() string        { return e.Run }

// NewBaseEvent stamps a new event of eventType.
func NewBaseEvent(eventType, runID string) BaseEvent {
	return BaseEvent{Type: eventType, Time: time.Now(), Run: runID}
}

type subscriber struct {
	ch    chan Event
	types map[string]bool // empty means all types
}

func (s *subscriber) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// Bus is a fan-out publisher. Each subscriber has its own buffer; when it
// fills up the oldest queued event is dropped.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	bufferSize  int
	dropped     atomic.Int64
	closed      bool
}

// New creates a bus whose subscriptions buffer bufferSize events.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{bufferSize: bufferSize}
}

// Subscribe returns a channel receiving the given event types, or every
// event when types is empty.
func (b *Bus) Subscribe(types ...string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{
		ch:    make(chan Event, b.bufferSize),
		types: make(map[string]bool, len(types)),
	}
	for _, t := range types {
		sub.types[t] = true
	}
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	b.subscribers = append(b.subscribers, sub)
	return sub.ch
}

// Unsubscribe removes and closes a subscription.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.subscribers[:0]
	for _, sub := range b.subscribers {
		if sub.ch == ch {
			close(sub.ch)
			continue
		}
		kept = append(kept, sub)
	}
	b.subscribers = kept
}

// Publish delivers event to every matching subscriber without blocking.
// A nil bus discards the event.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		if !sub.wants(event.EventType()) {
			continue
		}
		select {
		case sub.ch <- event:
			continue
		default:
		}
		// Full: drop the oldest and retry once.
		select {
		case <-sub.ch:
			b.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// DroppedCount returns the number of events discarded so far.
func (b *Bus) DroppedCount() int64 {
	return b.dropped.Load()
}

// Close closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.subscribers = nil
}
