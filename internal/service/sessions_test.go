package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkfinder/internal/apperr"
	"parkfinder/internal/model"
)

// fakeClock is advanced by hand
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, ttl time.Duration) (*SessionStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	factory := func(device DeviceLocator) *Controller {
		return NewController(ControllerDeps{
			Catalog:      NewCatalogIndex(testCatalog()),
			Availability: staticAvailability(c1Snapshot),
			Origins:      NewLocationResolver(device, nil),
			Routes:       staticRoute(testPath),
			Log:          zap.NewNop(),
		})
	}
	store := NewSessionStore(factory, ttl, zap.NewNop())
	store.now = clock.Now
	return store, clock
}

func TestSessionStore_CreateGetDelete(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)

	a := store.Create()
	b := store.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, store.Len())

	got, ok := store.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, store.Delete(a.ID))
	assert.False(t, store.Delete(a.ID))
	_, ok = store.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_SessionsAreIndependent(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	a := store.Create()
	b := store.Create()

	a.Controller.Check(context.Background(), "123 Main St")
	a.Location.Report(model.Point{Lat: 1.35, Lng: 103.94})
	b.Controller.Check(context.Background(), "123 Main St")
	b.Location.Apply(model.DeviceReport{Error: "denied"})

	assert.Equal(t, model.RouteReady, a.Controller.RequestRoute(context.Background()).Route)

	state := b.Controller.RequestRoute(context.Background())
	assert.Equal(t, model.RouteFailed, state.Route)
	assert.Equal(t, apperr.UserMessage(ErrGeolocationDenied, ""), state.ErrorMessage)
}

func TestSessionStore_Sweep(t *testing.T) {
	store, clock := newTestStore(t, 10*time.Minute)
	idle := store.Create()
	active := store.Create()

	clock.Advance(6 * time.Minute)
	_, ok := store.Get(active.ID)
	require.True(t, ok)

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, ok = store.Get(idle.ID)
	assert.False(t, ok)
	_, ok = store.Get(active.ID)
	assert.True(t, ok)
}

func TestSessionStore_NoExpiry(t *testing.T) {
	store, clock := newTestStore(t, 0)
	store.Create()

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_RunStopsOnCancel(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
