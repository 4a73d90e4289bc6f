package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

// Event represents a generic event structure
type Event struct {
	Type      string
	Timestamp time.Time
	Data      interface{}
}

// AgentStoppedEvent is published when a site's simulation unit exits
type AgentStoppedEvent struct {
	SiteId string
	Reason string
	Ticks  int64
	Err    error
}

// RoundFinishedEvent is published after every aggregation attempt. Record is
// nil when the round aborted.
type RoundFinishedEvent struct {
	Record *model.AggregationRecord
	Err    error
}

// EventBus represents the event bus that handles event subscription and dispatching.
// It is safe for concurrent use; publishing never blocks on a slow subscriber.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan<- Event
	dropped     atomic.Int64
}

// NewEventBus creates a new instance of the event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan<- Event),
	}
}

// Subscribe adds a new subscriber for a given event type
func (eb *EventBus) Subscribe(eventType string, subscriber chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// Publish sends an event to all subscribers of a given event type. Subscribers
// whose channel is full miss the event.
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, subscriber := range eb.subscribers[event.Type] {
		select {
		case subscriber <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Dropped is the number of deliveries skipped because a subscriber was full
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}
