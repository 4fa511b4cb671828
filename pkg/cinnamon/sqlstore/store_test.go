package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open("sqlite://" + filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	store, err := New(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open("mysql://localhost/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database scheme")
}

func TestStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	expires := time.Now().Add(time.Hour)

	require.NoError(t, store.Save(ctx, "abc", []byte(`{"values":{"user":"ana"}}`), expires))

	data, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":{"user":"ana"}}`, string(data))

	// upsert replaces the data
	require.NoError(t, store.Save(ctx, "abc", []byte(`{}`), expires))
	data, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	require.NoError(t, store.Delete(ctx, "abc"))
	data, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, data)

	assert.NoError(t, store.Delete(ctx, "unknown"))
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "old", []byte(`{}`), now.Add(-time.Second)))
	require.NoError(t, store.Save(ctx, "new", []byte(`{}`), now.Add(time.Minute)))

	data, err := store.Load(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, data, "expired sessions are not loaded")

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
