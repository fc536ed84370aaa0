package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/types"
)

func receiveEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch, cleanup := bus.Subscribe(context.Background(), Filter{}, 10)
	defer cleanup()

	instanceID := types.NewID()
	require.NoError(t, bus.Publish(context.Background(), Event{
		Type:       EventInstanceCreated,
		Timestamp:  time.Now().UTC(),
		InstanceID: instanceID,
	}))

	ev := receiveEvent(t, ch)
	assert.Equal(t, EventInstanceCreated, ev.Type)
	assert.Equal(t, instanceID, ev.InstanceID)
}

func TestSubscribeFiltersByType(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch, cleanup := bus.Subscribe(context.Background(), Filter{
		Types: []EventType{EventInstanceCompleted},
	}, 10)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, Event{Type: EventInstanceMoved}))
	require.NoError(t, bus.Publish(ctx, Event{Type: EventInstanceCompleted}))

	ev := receiveEvent(t, ch)
	assert.Equal(t, EventInstanceCompleted, ev.Type)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected event %s", extra.Type)
	default:
	}
}

func TestSubscribeFiltersByInstance(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	wanted := types.NewID()
	ch, cleanup := bus.Subscribe(context.Background(), Filter{InstanceID: wanted}, 10)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, Event{Type: EventInstanceMoved, InstanceID: types.NewID()}))
	require.NoError(t, bus.Publish(ctx, Event{Type: EventInstanceMoved, InstanceID: wanted}))

	ev := receiveEvent(t, ch)
	assert.Equal(t, wanted, ev.InstanceID)
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	var mu sync.Mutex
	var dropped int
	bus := NewEventBus(WithErrorHandler(func(_ error, _ map[string]any) {
		mu.Lock()
		dropped++
		mu.Unlock()
	}))
	defer bus.Close()

	_, cleanup := bus.Subscribe(context.Background(), Filter{}, 1)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, Event{Type: EventInstanceMoved}))
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, dropped)
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	require.NoError(t, bus.Close())
	assert.Error(t, bus.Publish(context.Background(), Event{Type: EventInstanceMoved}))
	// Close is idempotent.
	assert.NoError(t, bus.Close())
}

func TestCleanupRemovesSubscriber(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	_, cleanup := bus.Subscribe(context.Background(), Filter{}, 1)
	assert.Equal(t, 1, bus.SubscriberCount())
	cleanup()
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	bus := NewEventBus()
	ch, _ := bus.Subscribe(context.Background(), Filter{}, 1)
	require.NoError(t, bus.Close())

	_, open := <-ch
	assert.False(t, open)
}

func TestFilterMatches(t *testing.T) {
	instanceID := types.NewID()
	definitionID := types.NewID()
	ev := Event{Type: EventInstanceMoved, InstanceID: instanceID, DefinitionID: definitionID}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"matching type", Filter{Types: []EventType{EventInstanceMoved}}, true},
		{"non-matching type", Filter{Types: []EventType{EventInstanceExpired}}, false},
		{"matching instance", Filter{InstanceID: instanceID}, true},
		{"non-matching instance", Filter{InstanceID: types.NewID()}, false},
		{"matching definition", Filter{DefinitionID: definitionID}, true},
		{"type and instance both match", Filter{Types: []EventType{EventInstanceMoved}, InstanceID: instanceID}, true},
		{"type matches but instance does not", Filter{Types: []EventType{EventInstanceMoved}, InstanceID: types.NewID()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(ev))
		})
	}
}
