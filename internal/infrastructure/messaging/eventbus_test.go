package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/domain/shared"
)

type countingObserver struct {
	mu        sync.Mutex
	published int
	failed    int
}

func (o *countingObserver) EventPublished(shared.EventType) {
	o.mu.Lock()
	o.published++
	o.mu.Unlock()
}

func (o *countingObserver) HandlerFinished(_ shared.EventType, _ time.Duration, err error) {
	o.mu.Lock()
	if err != nil {
		o.failed++
	}
	o.mu.Unlock()
}

func TestInMemoryEventBus_Sync(t *testing.T) {
	obs := &countingObserver{}
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Observer: obs})

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventUserBlocked, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return errors.New("audit down")
	}))

	require.NoError(t, bus.Publish(shared.NewUserStatusChangedEvent("2", "blocked", "fp")))
	require.NoError(t, bus.Publish(shared.NewUserStatusChangedEvent("2", "active", "fp")))

	assert.Equal(t, []shared.EventType{shared.EventUserBlocked}, typed)
	assert.Equal(t, []shared.EventType{shared.EventUserBlocked, shared.EventUserUnblocked}, all)
	assert.Equal(t, 2, obs.published)
	assert.Equal(t, 2, obs.failed)
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})

	var called bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		called = true
		return nil
	}))

	assert.NotPanics(t, func() {
		_ = bus.Publish(shared.NewInfluencerDeletedEvent("1", "Ann", "fp"))
	})
	assert.True(t, called)
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var mu sync.Mutex
	seen := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		seen++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewSessionEvent(shared.EventSignedIn, "s", "admin", "fp")))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	assert.LessOrEqual(t, seen, 5)
	mu.Unlock()

	assert.ErrorIs(t, bus.Publish(shared.NewSessionEvent(shared.EventSignedOut, "s", "admin", "fp")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventSignedIn, func(shared.Event) error { return nil }), ErrEventBusClosed)
}
