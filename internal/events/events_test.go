package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribersOfType(t *testing.T) {
	bus := NewEventBus()
	stopped := make(chan Event, 1)
	rounds := make(chan Event, 1)
	bus.Subscribe("AgentStopped", stopped)
	bus.Subscribe("RoundFinished", rounds)

	bus.Publish(Event{Type: "AgentStopped", Data: AgentStoppedEvent{SiteId: "B1"}})

	require.Len(t, stopped, 1)
	assert.Len(t, rounds, 0)

	event := <-stopped
	assert.False(t, event.Timestamp.IsZero())
	data, ok := event.Data.(AgentStoppedEvent)
	require.True(t, ok)
	assert.Equal(t, "B1", data.SiteId)
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewEventBus()
	full := make(chan Event)
	bus.Subscribe("RoundFinished", full)

	bus.Publish(Event{Type: "RoundFinished"})
	bus.Publish(Event{Type: "RoundFinished"})

	assert.Equal(t, int64(2), bus.Dropped())
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewEventBus()
	sink := make(chan Event, 1000)
	bus.Subscribe("AgentStopped", sink)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(Event{Type: "AgentStopped"})
			}
		}()
		go func() {
			defer wg.Done()
			bus.Subscribe("Other", make(chan Event, 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, len(sink))
}
