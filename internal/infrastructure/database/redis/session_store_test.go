package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(client), mr
}

func TestSessionStore_Lifecycle(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", 7, time.Hour))
	assert.Equal(t, "7", mustGet(t, mr, "session:abc"))

	ok, err := store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "abc"))
	ok, err = store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.Delete(ctx, "abc"))
}

func TestSessionStore_Expires(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", 1, time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := store.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer client.Close()

	assert.NoError(t, client.Health())
	mr.Close()
	assert.Error(t, client.Health())
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
