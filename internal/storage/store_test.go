package storage

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "permissions")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "permissions", []byte(`{"v":1}`)))
	v, err := store.Get(ctx, "permissions")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(v))

	// 整值替换
	require.NoError(t, store.Put(ctx, "permissions", []byte(`{"v":2}`)))
	v, err = store.Get(ctx, "permissions")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(v))

	require.NoError(t, store.Delete(ctx, "permissions"))
	_, err = store.Get(ctx, "permissions")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "missing"))
	require.NoError(t, store.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)

	// 返回值是副本
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", []byte("abc")))
	v, _ := store.Get(ctx, "k")
	v[0] = 'x'
	v2, _ := store.Get(ctx, "k")
	assert.Equal(t, "abc", string(v2))
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "networks", []byte("[]")))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "networks")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(v))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BRIDGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis tests - requires running Redis server (BRIDGE_TEST_REDIS_ADDR)")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	store := NewRedisStore(client)
	defer store.Close()

	exerciseStore(t, store)
}

func TestPostgreSQLStore(t *testing.T) {
	dsn := os.Getenv("BRIDGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL tests - requires running PostgreSQL server (BRIDGE_TEST_POSTGRES_DSN)")
	}

	store, err := NewPostgreSQLStore(context.Background(), dsn)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}
