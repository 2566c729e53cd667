package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaketSinghRajput/honeycomb/internal/intel"
)

func TestAcquire_CreatesSession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sess := store.Acquire(ctx, "call-001")
	assert.Equal(t, "call-001", sess.ID)
	assert.False(t, sess.CreatedAt.IsZero())
	assert.Equal(t, 0, sess.TurnCount)
	sess.Release()

	assert.Equal(t, 1, store.Len())
}

func TestAcquire_ReturnsExistingState(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sess := store.Acquire(ctx, "call-001")
	sess.TurnCount = 3
	sess.History = append(sess.History, Exchange{User: "hello", Assistant: "who is this?"})
	sess.Release()

	again := store.Acquire(ctx, "call-001")
	defer again.Release()
	assert.Equal(t, 3, again.TurnCount)
	require.Len(t, again.History, 1)
	assert.Equal(t, "hello", again.History[0].User)
	assert.Equal(t, 1, store.Len())
}

func TestAcquireExisting(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, ok := store.AcquireExisting("missing")
	assert.False(t, ok)

	created := store.Acquire(ctx, "call-002")
	created.Release()

	sess, ok := store.AcquireExisting("call-002")
	require.True(t, ok)
	assert.Equal(t, "call-002", sess.ID)
	sess.Release()
}

func TestView(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, ok := store.View("missing")
	assert.False(t, ok)

	sess := store.Acquire(ctx, "call-003")
	sess.TurnCount = 2
	sess.History = append(sess.History,
		Exchange{User: "pay now", Assistant: "which account?"},
		Exchange{User: "this one", Assistant: "let me check"},
	)
	sess.Items = append(sess.Items, intel.Item{Kind: intel.KindUPI, Value: "x@upi", Confidence: 0.9})
	sess.Terminated = true
	sess.Release()

	snap, ok := store.View("call-003")
	require.True(t, ok)
	assert.Equal(t, "call-003", snap.ID)
	assert.Equal(t, 2, snap.TurnCount)
	assert.Equal(t, 2, snap.HistoryLen)
	assert.Equal(t, 1, snap.ItemCount)
	assert.True(t, snap.Terminated)
}

func TestSweepExpired(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	stale := store.Acquire(ctx, "stale")
	stale.LastActive = time.Now().UTC().Add(-2 * time.Hour)
	stale.Release()

	fresh := store.Acquire(ctx, "fresh")
	fresh.Release()

	removed := store.SweepExpired(ctx, time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, ok := store.View("stale")
	assert.False(t, ok)
	_, ok = store.View("fresh")
	assert.True(t, ok)
}

func TestSweepExpired_ZeroMaxAgeRemovesAllIdle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		store.Acquire(ctx, id).Release()
	}

	removed := store.SweepExpired(ctx, 0)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 0, store.Len())
}

func TestSweepExpired_SkipsBusySession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	busy := store.Acquire(ctx, "busy")
	busy.LastActive = time.Now().UTC().Add(-2 * time.Hour)

	// Lock is held: the sweep must leave the session alone.
	removed := store.SweepExpired(ctx, time.Hour)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, store.Len())
	busy.Release()

	removed = store.SweepExpired(ctx, time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, store.Len())
}

func TestAcquire_AfterSweepCreatesFresh(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	old := store.Acquire(ctx, "call-004")
	old.TurnCount = 5
	old.LastActive = time.Now().UTC().Add(-2 * time.Hour)
	old.Release()

	require.Equal(t, 1, store.SweepExpired(ctx, time.Hour))

	fresh := store.Acquire(ctx, "call-004")
	defer fresh.Release()
	assert.Equal(t, 0, fresh.TurnCount)
}

func TestAcquire_SerializesTurns(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := store.Acquire(ctx, "contended")
			sess.TurnCount++
			sess.Touch()
			sess.Release()
		}()
	}
	wg.Wait()

	snap, ok := store.View("contended")
	require.True(t, ok)
	assert.Equal(t, turns, snap.TurnCount)
}

func TestTouch_UpdatesLastActive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sess := store.Acquire(ctx, "call-005")
	before := sess.LastActive
	time.Sleep(5 * time.Millisecond)
	sess.Touch()
	assert.True(t, sess.LastActive.After(before))
	sess.Release()
}
