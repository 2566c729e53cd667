package archive

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reports.db")
	store, err := NewStore(dbPath, strings.Repeat("k", 32))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndGetBySession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.Record(ctx, "sess-a", []byte(`{"sessionId":"sess-a","turn":1}`))
	require.NoError(t, err)
	second, err := store.Record(ctx, "sess-a", []byte(`{"sessionId":"sess-a","turn":2}`))
	require.NoError(t, err)
	_, err = store.Record(ctx, "sess-b", []byte(`{"sessionId":"sess-b"}`))
	require.NoError(t, err)
	assert.Greater(t, second, first)

	records, err := store.GetBySession(ctx, "sess-a")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, second, records[0].ID)
	assert.Equal(t, "sess-a", records[0].SessionID)
	assert.JSONEq(t, `{"sessionId":"sess-a","turn":2}`, string(records[0].Payload))
	assert.False(t, records[0].Delivered)
	assert.Nil(t, records[0].DeliveredAt)
	assert.True(t, strings.HasPrefix(records[0].Signature, "hmac-sha256:"))
	assert.False(t, records[0].CreatedAt.IsZero())

	records, err = store.GetBySession(ctx, "sess-unknown")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMarkDelivered(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Record(ctx, "sess-c", []byte(`{"sessionId":"sess-c"}`))
	require.NoError(t, err)
	require.NoError(t, store.MarkDelivered(ctx, id))

	records, err := store.GetBySession(ctx, "sess-c")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Delivered)
	require.NotNil(t, records[0].DeliveredAt)
	assert.False(t, records[0].DeliveredAt.IsZero())

	err = store.MarkDelivered(ctx, 9999)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var last int64
	for i := 0; i < 3; i++ {
		id, err := store.Record(ctx, "sess-d", []byte(`{"sessionId":"sess-d"}`))
		require.NoError(t, err)
		last = id
	}

	records, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, last, records[0].ID)

	// Non-positive limit falls back to the default.
	records, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Record(ctx, "sess-e", []byte(`{"sessionId":"sess-e"}`))
	require.NoError(t, err)

	ok, err := store.Verify(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.db.ExecContext(ctx,
		`UPDATE reports SET payload = ? WHERE id = ?`, `{"sessionId":"tampered"}`, id)
	require.NoError(t, err)

	ok, err = store.Verify(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Verify(ctx, 9999)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestNewStore_RejectsShortKey(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reports.db")
	_, err := NewStore(dbPath, "too-short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key")
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reports.db")
	key := strings.Repeat("k", 32)

	store, err := NewStore(dbPath, key)
	require.NoError(t, err)
	id, err := store.Record(ctx, "sess-f", []byte(`{"sessionId":"sess-f"}`))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath, key)
	require.NoError(t, err)
	defer reopened.Close()

	ok, err := reopened.Verify(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	records, err := reopened.GetBySession(ctx, "sess-f")
	require.NoError(t, err)
	require.Len(t, records, 1)
}
