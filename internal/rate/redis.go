package rate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisLimiter shares counters between replicas. Redis failures let the
// request through.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	log    logrus.FieldLogger
}

func NewRedis(client redis.UniversalClient, prefix string, log logrus.FieldLogger) *RedisLimiter {
	if prefix == "" {
		prefix = "aiblog:rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, log: log}
}

// NewRedisFromURL parses a redis:// URL and checks the server is reachable.
func NewRedisFromURL(ctx context.Context, url string, log logrus.FieldLogger) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedis(client, "", log), nil
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 {
		return true, 0
	}
	k := r.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
		return true, 0
	}

	retry := ttl.Val()
	if retry < 0 {
		retry = window
	}
	return incr.Val() <= int64(limit), retry
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
