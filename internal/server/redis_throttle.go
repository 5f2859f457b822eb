package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisThrottle implements throttleStore on a shared Redis instance so login
// attempt counts survive restarts and apply across replicas. Each key holds a
// counter that expires after the configured window.
type redisThrottle struct {
	client  *redis.Client
	timeout time.Duration
}

func newRedisThrottle(addr, password string, timeout time.Duration) *redisThrottle {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	return &redisThrottle{client: client, timeout: timeout}
}

func (s *redisThrottle) Allow(key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("throttle incr %s: %w", key, err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("throttle expire %s: %w", key, err)
		}
	}
	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return false, window, nil
	}
	return false, ttl, nil
}

func (s *redisThrottle) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *redisThrottle) Close() error {
	return s.client.Close()
}
