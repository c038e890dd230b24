package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"cdrive/internal/storage"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	s := storage.NewRedisStore(client, storage.WithRedisPrefix("test:"))

	_, ok, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "token", "abc"))
	v, ok, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", v)

	raw, err := mr.Get("test:token")
	require.NoError(t, err)
	require.Equal(t, "abc", raw)

	require.NoError(t, s.Remove(ctx, "token"))
	require.False(t, mr.Exists("test:token"))
}

func TestRedisStore_PublishesChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, client := setupTestRedis(t)

	writer := storage.NewRedisStore(client)
	listener := storage.NewRedisStore(client)

	ch, err := listener.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, writer.Set(ctx, storage.KeyBookingPing, "1700000000000"))
	select {
	case e := <-ch:
		require.Equal(t, storage.KeyBookingPing, e.Key)
		require.Equal(t, "1700000000000", e.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	// identical value: no event
	require.NoError(t, writer.Set(ctx, storage.KeyBookingPing, "1700000000000"))
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, writer.Remove(ctx, storage.KeyBookingPing))
	select {
	case e := <-ch:
		require.True(t, e.Removed)
	case <-time.After(2 * time.Second):
		t.Fatal("no removal event")
	}
}

func TestOpenRedis_BadURL(t *testing.T) {
	_, err := storage.OpenRedis("://nope")
	require.Error(t, err)
}
