package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per key in a fixed window.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxAttempts: maxAttempts, window: window}
}

func throttleKey(key string) string {
	return fmt.Sprintf("login:fail:%s", key)
}

// Allowed reports whether key may attempt another login.
func (t *LoginThrottle) Allowed(ctx context.Context, key string) (bool, error) {
	if t.maxAttempts <= 0 {
		return true, nil
	}
	count, err := t.client.Get(ctx, throttleKey(key)).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return count < t.maxAttempts, nil
}

func (t *LoginThrottle) Fail(ctx context.Context, key string) error {
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, throttleKey(key))
	pipe.ExpireNX(ctx, throttleKey(key), t.window)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, throttleKey(key)).Err()
}
