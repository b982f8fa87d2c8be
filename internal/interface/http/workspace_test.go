package http

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/application/page"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/internal/infrastructure/messaging"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/memory"
)

func TestWorkspaces_DroppedWhenStoreForgetsSession(t *testing.T) {
	ctx := context.Background()
	current := testNow
	clock := func() time.Time { return current }

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{})
	t.Cleanup(func() { _ = bus.Close() })

	owner := session.NewOwner(memory.NewSessionStore(clock), session.NewTokenDecoder(""), session.Policy{}, clock, bus)
	gw := newGateway(t)
	ws := NewWorkspaces(func(string) Gateway { return gw }, page.Options{Now: clock}, 0)
	require.NoError(t, ws.Subscribe(bus))

	s, err := owner.Set(ctx, "s1", token(t, "admin"), session.RoleAdmin, "")
	require.NoError(t, err)
	ws.For(s)
	require.Equal(t, 1, ws.Len())

	current = testNow.Add(48 * time.Hour)
	_, err = owner.Authorize(ctx, "s1", session.RoleAdmin)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Equal(t, 0, ws.Len())
}

func TestWorkspaces_IdleEviction(t *testing.T) {
	current := testNow
	clock := func() time.Time { return current }
	gw := newGateway(t)
	ws := NewWorkspaces(func(string) Gateway { return gw }, page.Options{Now: clock}, 10*time.Minute)

	idle := &session.Session{ID: "idle", Token: token(t, "admin")}
	busy := &session.Session{ID: "busy", Token: token(t, "admin")}
	first := ws.For(idle)
	ws.For(busy)
	require.Equal(t, 2, ws.Len())

	current = current.Add(6 * time.Minute)
	ws.For(busy)
	assert.Equal(t, 2, ws.Len())

	current = current.Add(6 * time.Minute)
	ws.For(busy)
	assert.Equal(t, 1, ws.Len(), "idle workspace is evicted")

	assert.NotSame(t, first, ws.For(idle), "a returning session gets a fresh workspace")
	assert.Equal(t, 2, ws.Len())
}

func TestWorkspaces_AnonymousShared(t *testing.T) {
	ctx := context.Background()
	clock := func() time.Time { return testNow }
	owner := session.NewOwner(memory.NewSessionStore(clock), session.NewTokenDecoder(""), session.Policy{Disabled: true}, clock, nil)
	gw := newGateway(t)
	ws := NewWorkspaces(func(string) Gateway { return gw }, page.Options{Now: clock}, 0)

	var first *Workspace
	for _, id := range []string{"", "a", "b", "c"} {
		s, err := owner.Authorize(ctx, id, session.RoleAdmin)
		require.NoError(t, err)
		w := ws.For(s)
		if first == nil {
			first = w
		}
		assert.Same(t, first, w)
	}
	assert.Equal(t, 1, ws.Len())
}
