package subscribers

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Both implementations must satisfy the same add/remove/snapshot behavior,
// including the subscribe-then-unsubscribe idempotence property.
func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snapshot)

	added, err := store.Add(ctx, 388546127)
	require.NoError(t, err)
	require.True(t, added)

	added, err = store.Add(ctx, 388546127)
	require.NoError(t, err)
	require.False(t, added, "re-subscribing must be a no-op")

	_, err = store.Add(ctx, 1182153)
	require.NoError(t, err)

	snapshot, err = store.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1182153, 388546127}, snapshot)

	removed, err := store.Remove(ctx, 1182153)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.Remove(ctx, 1182153)
	require.NoError(t, err)
	require.False(t, removed, "removing a missing subscriber must be a no-op")

	snapshot, err = store.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{388546127}, snapshot)

	// Net effect of subscribe then unsubscribe is the prior state.
	_, err = store.Add(ctx, 555)
	require.NoError(t, err)
	_, err = store.Remove(ctx, 555)
	require.NoError(t, err)

	snapshot, err = store.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{388546127}, snapshot)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribed_users.json")

	store, err := NewFileStore(path, testLog())
	require.NoError(t, err)

	runStoreSuite(t, store)
}

func TestFileStore_PersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "subscribed_users.json")

	store, err := NewFileStore(path, testLog())
	require.NoError(t, err)

	_, err = store.Add(ctx, 42)
	require.NoError(t, err)
	_, err = store.Add(ctx, 7)
	require.NoError(t, err)

	reloaded, err := NewFileStore(path, testLog())
	require.NoError(t, err)

	snapshot, err := reloaded.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 42}, snapshot)
}

func TestFileStore_ReplacesFileAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "subscribed_users.json")

	store, err := NewFileStore(path, testLog())
	require.NoError(t, err)

	_, err = store.Add(ctx, 42)
	require.NoError(t, err)
	_, err = store.Remove(ctx, 42)
	require.NoError(t, err)
	_, err = store.Add(ctx, 7)
	require.NoError(t, err)

	// Every persist renames a complete file into place and leaves no
	// scratch file behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "subscribed_users.json", entries[0].Name())

	reloaded, err := NewFileStore(path, testLog())
	require.NoError(t, err)

	snapshot, err := reloaded.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, snapshot)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribed_users.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileStore(path, testLog())
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	runStoreSuite(t, NewRedisStore(client, testLog()))
}

func TestRedisStore_SkipsMalformedEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	_, err := mr.SetAdd(subscribersKey, "42", "garbage")
	require.NoError(t, err)

	snapshot, err := NewRedisStore(client, testLog()).Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{42}, snapshot)
}
