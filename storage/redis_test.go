package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_SaveLoadRemove(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "canteen:cart:u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "canteen:cart:u1", []byte(`[{"item_id":"x","quantity":2}]`)))

	got, ok, err := store.Load(ctx, "canteen:cart:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"item_id":"x","quantity":2}]`, string(got))
	assert.Equal(t, time.Hour, mr.TTL("canteen:cart:u1"))

	require.NoError(t, store.Remove(ctx, "canteen:cart:u1"))
	assert.False(t, mr.Exists("canteen:cart:u1"))

	// removing an absent key is fine
	require.NoError(t, store.Remove(ctx, "canteen:cart:u1"))
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", []byte("v")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t, time.Minute)
	mr.Close()

	_, _, err := store.Load(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), "k", []byte("v")))
}

func TestRedisStore_EmptyKey(t *testing.T) {
	store, _ := setupTestRedis(t, time.Minute)

	_, _, err := store.Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
