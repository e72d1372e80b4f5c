package rate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinramirez09/aiblog/internal/logging"
)

func TestRedisLimiter(t *testing.T) {
	url := os.Getenv("AIBLOG_TEST_REDIS_URL")
	if url == "" {
		t.Skip("AIBLOG_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	l, err := NewRedisFromURL(ctx, url, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	key := "test:" + uuid.NewString()
	for i := 0; i < 2; i++ {
		ok, _ := l.Allow(ctx, key, 2, time.Minute)
		assert.True(t, ok)
	}
	ok, retry := l.Allow(ctx, key, 2, time.Minute)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	l := NewRedis(client, "", logging.Discard())
	t.Cleanup(func() { _ = l.Close() })

	ok, retry := l.Allow(context.Background(), "k", 1, time.Minute)
	assert.True(t, ok)
	assert.Zero(t, retry)
}
