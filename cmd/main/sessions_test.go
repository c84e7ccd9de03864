package main

import (
	"context"
	"testing"
	"time"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSession(t *testing.T) *ngram.Session {
	t.Helper()
	model, err := ngram.Build(catDogText, ngram.BigramLabel)
	require.NoError(t, err)
	return ngram.ResetSession(model, ngram.NewSeededSampler(1))
}

func TestSessionStoreExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewSessionStore(10*time.Minute, 10)
	store.now = clock.Now

	ms, err := store.Create("catdog", newTestSession(t))
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	_, ok := store.Get(ms.id)
	require.True(t, ok, "session should still be live")

	// Get refreshed the idle timer.
	clock.Advance(9 * time.Minute)
	_, ok = store.Get(ms.id)
	require.True(t, ok)

	clock.Advance(11 * time.Minute)
	_, ok = store.Get(ms.id)
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestSessionStoreCap(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewSessionStore(time.Minute, 2)
	store.now = clock.Now

	_, err := store.Create("a", newTestSession(t))
	require.NoError(t, err)
	_, err = store.Create("b", newTestSession(t))
	require.NoError(t, err)
	_, err = store.Create("c", newTestSession(t))
	assert.ErrorIs(t, err, ErrTooManySessions)

	// Expired sessions do not count against the cap.
	clock.Advance(2 * time.Minute)
	ms, err := store.Create("c", newTestSession(t))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Delete(ms.id))
	assert.False(t, store.Delete(ms.id))
}

func TestSessionStoreSweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewSessionStore(time.Minute, 10)
	store.now = clock.Now

	for range 3 {
		_, err := store.Create("catdog", newTestSession(t))
		require.NoError(t, err)
	}
	clock.Advance(30 * time.Second)
	_, err := store.Create("catdog", newTestSession(t))
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	assert.Equal(t, 3, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestSessionStoreRun(t *testing.T) {
	store := NewSessionStore(time.Nanosecond, 10)
	_, err := store.Create("catdog", newTestSession(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	swept := make(chan int, 1)
	go store.Run(ctx, time.Millisecond, func(live int) {
		select {
		case swept <- live:
		default:
		}
	})

	select {
	case live := <-swept:
		assert.Zero(t, live)
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not sweep")
	}
}
