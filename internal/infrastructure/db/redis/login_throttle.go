package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxFailures = 5
	defaultWindow      = 15 * time.Minute
)

// LoginThrottle counts failed logins per account in Redis.
// Key format: login_fail:<sha256(email)>. The counter expires one window
// after the first failure, so a burst of failures locks the account for at
// most one window.
type LoginThrottle struct {
	client      redis.UniversalClient
	maxFailures int64
	window      time.Duration
}

// NewLoginThrottle wraps client. Non-positive limits fall back to 5 failures
// per 15 minutes.
func NewLoginThrottle(client redis.UniversalClient, maxFailures int, window time.Duration) *LoginThrottle {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &LoginThrottle{client: client, maxFailures: int64(maxFailures), window: window}
}

// Blocked reports whether key has reached the failure limit.
func (t *LoginThrottle) Blocked(ctx context.Context, key string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the counter and starts the window on first use.
// INCR and EXPIRE NX run in one MULTI so the counter never outlives a
// window, and a counter left without a TTL gets one on the next failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, key string) error {
	k := t.key(key)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, t.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.key(key)).Err(); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}

// key hashes the email so addresses never appear in Redis in clear text.
func (t *LoginThrottle) key(email string) string {
	sum := sha256.Sum256([]byte(email))
	return "login_fail:" + hex.EncodeToString(sum[:])
}
