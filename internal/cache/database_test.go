package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dealdesk/internal/database/testutil"
)

func newStore(t *testing.T) *DatabaseStore {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewDatabaseStore(db)
	require.NoError(t, err)
	return store
}

func TestIncrementWithTTLCountsWithinWindow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	count, remaining, err := store.IncrementWithTTL(ctx, "limit:ip", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, remaining, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "limit:ip", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, _, err = store.IncrementWithTTL(ctx, "limit:other", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestIncrementWithTTLRestartsExpiredWindow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, _, err := store.IncrementWithTTL(ctx, "limit:ip", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	count, _, err := store.IncrementWithTTL(ctx, "limit:ip", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestSetGetDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)

	// Overwrite keeps a single row.
	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))
	value, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetTreatsExpiredAsMiss(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPruneExpiredKeepsLiveAndPermanentRows(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("v"), time.Millisecond))
	require.NoError(t, store.Set(ctx, "live", []byte("v"), time.Hour))
	require.NoError(t, store.Set(ctx, "permanent", []byte("v"), 0))
	time.Sleep(5 * time.Millisecond)

	pruned, err := store.PruneExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)

	_, ok, err := store.Get(ctx, "live")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Get(ctx, "permanent")
	require.NoError(t, err)
	require.True(t, ok)
}
