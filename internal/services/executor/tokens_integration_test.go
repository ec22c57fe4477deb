//go:build integration

package executor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// TestRedisTokenStore_Integration talks to a real Redis.
// To run this test, use: REDIS_ADDR=localhost:6379 go test -tags=integration ./...
func TestRedisTokenStore_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	store := NewRedisTokenStore(client, time.Minute)
	token := domain.IdempotencyToken("integration-" + time.Now().Format(time.RFC3339Nano))
	ctx := context.Background()

	ok, err := store.Reserve(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, token))
	ok, err = store.Reserve(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, store.Release(ctx, token))
}
