package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/curio/core/catalog"
)

// recordingSubscriber collects delivered events.
type recordingSubscriber struct {
	id    string
	types []EventType

	mu     sync.Mutex
	events []*Event
}

func (r *recordingSubscriber) ID() string              { return r.id }
func (r *recordingSubscriber) EventTypes() []EventType { return r.types }

func (r *recordingSubscriber) OnEvent(event *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSubscriber) collected() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Event(nil), r.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestBusDeliversToWildcardSubscriber(t *testing.T) {
	bus := NewBus(16)
	bus.Start()
	defer bus.Close()

	sub := &recordingSubscriber{id: "all"}
	bus.Subscribe(sub)

	bus.PublishDiscovered(&catalog.Resource{ID: "r1"})
	bus.PublishRunning(&catalog.Resource{ID: "r1"}, true, time.Now(), 0)

	waitFor(t, func() bool { return len(sub.collected()) == 2 })

	got := sub.collected()
	assert.Equal(t, EventResourceDiscovered, got[0].Type)
	assert.Equal(t, EventRunningChanged, got[1].Type)
	assert.True(t, got[1].Running)
}

func TestBusFiltersByEventType(t *testing.T) {
	bus := NewBus(16)
	bus.Start()
	defer bus.Close()

	runningOnly := &recordingSubscriber{id: "run", types: []EventType{EventRunningChanged}}
	bus.Subscribe(runningOnly)

	bus.PublishDiscovered(&catalog.Resource{ID: "r1"})
	bus.PublishRunning(&catalog.Resource{ID: "r1"}, false, time.Time{}, 7)

	waitFor(t, func() bool { return len(runningOnly.collected()) == 1 })

	got := runningOnly.collected()
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ElapsedSeconds)
	assert.False(t, got[0].Running)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(16)
	bus.Start()
	defer bus.Close()

	sub := &recordingSubscriber{id: "once"}
	bus.Subscribe(sub)

	bus.PublishDiscovered(&catalog.Resource{ID: "a"})
	waitFor(t, func() bool { return len(sub.collected()) == 1 })

	bus.Unsubscribe("once")
	bus.PublishDiscovered(&catalog.Resource{ID: "b"})

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sub.collected(), 1)
}

func TestBusCloseDrainsQueuedEvents(t *testing.T) {
	bus := NewBus(64)
	sub := &recordingSubscriber{id: "drain"}
	bus.Subscribe(sub)

	// Publish before starting dispatch so events sit in the buffer.
	for i := 0; i < 5; i++ {
		bus.PublishDiscovered(&catalog.Resource{ID: "r"})
	}

	bus.Start()
	bus.Close()

	assert.Len(t, sub.collected(), 5)
}

func TestBusPublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus(4)
	bus.Start()
	bus.Close()

	// Must not panic or block.
	bus.PublishDiscovered(&catalog.Resource{ID: "late"})
}
