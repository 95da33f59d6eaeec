package generalqa

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisHistoryStore_CapsAndOrders(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisHistoryStore(client, 3, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "u1", Exchange{
			Query:    fmt.Sprintf("q%d", i),
			Response: fmt.Sprintf("a%d", i),
		}))
	}

	recent, err := store.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "q3", recent[0].Query)
	assert.Equal(t, "q5", recent[2].Query)

	limited, err := store.Recent(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "q4", limited[0].Query)

	assert.True(t, mr.Exists("general_chat:u1"))
	assert.Equal(t, time.Hour, mr.TTL("general_chat:u1"))

	mr.FastForward(2 * time.Hour)
	expired, err := store.Recent(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestRedisHistoryStore_UsersAreIsolated(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisHistoryStore(client, 5, 0)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "u1", Exchange{Query: "mine"}))

	other, err := store.Recent(ctx, "u2", 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRedisHistoryStore_CorruptEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisHistoryStore(client, 5, 0)

	_, err := mr.Lpush("general_chat:u1", "not json")
	require.NoError(t, err)

	_, err = store.Recent(context.Background(), "u1", 5)
	assert.ErrorContains(t, err, "decode history")
}
