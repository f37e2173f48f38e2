// Package events provides a bounded in-memory feed of recently proxied
// requests, consumed by the web UI.
package events

import (
	"sync"
	"time"
)

// Kind classifies a feed entry.
type Kind string

const (
	KindManifest Kind = "manifest"
	KindBlob     Kind = "blob"
	KindUpload   Kind = "upload"
	KindHealth   Kind = "health"
)

// Event is one proxied-request record.
type Event struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Method   string    `json:"method"`
	Path     string    `json:"path"`
	Status   int       `json:"status"`
	Duration string    `json:"duration"`
	Time     time.Time `json:"time"`
}

// DefaultCapacity bounds the queue when no capacity is given.
const DefaultCapacity = 256

// Queue is a bounded FIFO of events. When full, the oldest event is dropped
// to make room. Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	capacity int
	items    []Event
	dropped  int64
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Enqueue appends the event, evicting the oldest entry when at capacity.
func (q *Queue) Enqueue(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.capacity {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
	}
	q.items = append(q.items, event)
}

// Drain removes and returns all queued events, oldest first.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many events were evicted before being drained.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
