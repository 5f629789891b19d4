package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewStateCache(client)

	value, err := c.Get(ctx, "alice:quiz_state")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, c.Set(ctx, "alice:quiz_state", []byte(`{"remainingTime":10}`)))
	stored, err := mr.Get("quiz:alice:quiz_state")
	require.NoError(t, err)
	assert.Equal(t, `{"remainingTime":10}`, stored)
	assert.Zero(t, mr.TTL("quiz:alice:quiz_state"))

	value, err = c.Get(ctx, "alice:quiz_state")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"remainingTime":10}`), value)

	require.NoError(t, c.Delete(ctx, "alice:quiz_state"))
	assert.False(t, mr.Exists("quiz:alice:quiz_state"))
}

func TestStateCacheUnreachable(t *testing.T) {
	t.Parallel()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err = NewStateCache(client).Get(context.Background(), "quiz_state")
	assert.Error(t, err)
}
