// Package events carries the engine's outward notifications: newly
// discovered resources and running-state transitions. The UI layer consumes
// these; the engine only publishes.
package events

import (
	"sync"
	"time"

	"github.com/adalundhe/curio/core/catalog"
)

// =============================================================================
// Event types
// =============================================================================

// EventType identifies an outward event kind.
type EventType int

const (
	// EventResourceDiscovered fires when ingestion creates or retitles a
	// catalog entry. Never fired for no-change upserts.
	EventResourceDiscovered EventType = iota

	// EventRunningChanged fires when a tracked session starts or stops.
	EventRunningChanged
)

func (t EventType) String() string {
	switch t {
	case EventResourceDiscovered:
		return "resource_discovered"
	case EventRunningChanged:
		return "running_changed"
	default:
		return "unknown"
	}
}

// Event is a single outward notification.
type Event struct {
	Type EventType
	Time time.Time

	// Resource is the catalog entry the event concerns.
	Resource *catalog.Resource

	// Running fields, set for EventRunningChanged only.
	Running        bool
	StartTime      time.Time
	ElapsedSeconds int64
}

// =============================================================================
// Subscriber
// =============================================================================

// Subscriber receives published events.
type Subscriber interface {
	// ID returns the unique subscriber identifier.
	ID() string

	// EventTypes returns the event types of interest. Empty means all.
	EventTypes() []EventType

	// OnEvent is called from the dispatch goroutine for each event.
	OnEvent(event *Event)
}

// =============================================================================
// Bus
// =============================================================================

// Bus fans events out to subscribers without ever blocking publishers: the
// buffer absorbs bursts and overflow is dropped. Discovery notifications are
// best-effort.
type Bus struct {
	subscribers map[EventType][]Subscriber
	wildcard    []Subscriber

	buffer chan *Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewBus creates an event bus with the given buffer size (default 256).
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
		buffer:      make(chan *Event, bufferSize),
		done:        make(chan struct{}),
	}
}

// Start launches the dispatch goroutine.
func (b *Bus) Start() {
	b.wg.Add(1)
	go b.dispatch()
}

// Publish enqueues an event. Never blocks; drops when the buffer is full or
// the bus is closed.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	select {
	case b.buffer <- event:
	default:
	}
}

// PublishDiscovered publishes a resource-discovered event.
func (b *Bus) PublishDiscovered(r *catalog.Resource) {
	b.Publish(&Event{Type: EventResourceDiscovered, Resource: r})
}

// PublishRunning publishes a running-state transition.
func (b *Bus) PublishRunning(r *catalog.Resource, running bool, startTime time.Time, elapsedSeconds int64) {
	b.Publish(&Event{
		Type:           EventRunningChanged,
		Resource:       r,
		Running:        running,
		StartTime:      startTime,
		ElapsedSeconds: elapsedSeconds,
	})
}

// Subscribe registers a subscriber.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	types := sub.EventTypes()
	if len(types) == 0 {
		b.wildcard = append(b.wildcard, sub)
		return
	}
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], sub)
	}
}

// Unsubscribe removes a subscriber by id.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wildcard = filterSubs(b.wildcard, id)
	for t, subs := range b.subscribers {
		b.subscribers[t] = filterSubs(subs, id)
	}
}

func filterSubs(subs []Subscriber, id string) []Subscriber {
	filtered := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.ID() != id {
			filtered = append(filtered, sub)
		}
	}
	return filtered
}

// Close stops dispatch after draining queued events.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}

func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.buffer:
			b.deliver(event)
		case <-b.done:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case event := <-b.buffer:
					b.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.wildcard {
		sub.OnEvent(event)
	}
	for _, sub := range b.subscribers[event.Type] {
		sub.OnEvent(event)
	}
}
