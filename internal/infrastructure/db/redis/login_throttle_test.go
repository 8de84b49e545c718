package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 15 * time.Minute

func newThrottle(t *testing.T, maxFailures int) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginThrottle(client, maxFailures, testWindow), mr
}

func fail(t *testing.T, lt *LoginThrottle, email string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, lt.RecordFailure(context.Background(), email))
	}
}

func TestLoginThrottle_BlocksAtLimit(t *testing.T) {
	lt, _ := newThrottle(t, 3)
	ctx := context.Background()

	fail(t, lt, "a@x.com", 2)
	blocked, err := lt.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, blocked, "below the limit")

	fail(t, lt, "a@x.com", 1)
	blocked, err = lt.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, blocked, "at the limit")

	blocked, err = lt.Blocked(ctx, "b@x.com")
	require.NoError(t, err)
	assert.False(t, blocked, "counters are per account")
}

func TestLoginThrottle_Reset(t *testing.T) {
	lt, mr := newThrottle(t, 2)
	ctx := context.Background()

	fail(t, lt, "a@x.com", 2)
	require.NoError(t, lt.Reset(ctx, "a@x.com"))

	blocked, err := lt.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.False(t, mr.Exists(lt.key("a@x.com")))
}

func TestLoginThrottle_WindowExpires(t *testing.T) {
	lt, mr := newThrottle(t, 2)
	ctx := context.Background()

	fail(t, lt, "a@x.com", 1)
	assert.Equal(t, testWindow, mr.TTL(lt.key("a@x.com")), "window starts on first failure")

	mr.FastForward(time.Minute)
	fail(t, lt, "a@x.com", 1)
	assert.Equal(t, testWindow-time.Minute, mr.TTL(lt.key("a@x.com")), "later failures keep the window")

	blocked, err := lt.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, blocked)

	mr.FastForward(testWindow)
	blocked, err = lt.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, blocked, "lock lifts after the window")
}

func TestLoginThrottle_CounterWithoutTTLHeals(t *testing.T) {
	lt, mr := newThrottle(t, 5)
	k := lt.key("a@x.com")

	require.NoError(t, mr.Set(k, "7"))
	require.Zero(t, mr.TTL(k))

	fail(t, lt, "a@x.com", 1)
	assert.Equal(t, testWindow, mr.TTL(k))

	mr.FastForward(testWindow)
	blocked, err := lt.Blocked(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestLoginThrottle_ServerDown(t *testing.T) {
	lt, mr := newThrottle(t, 2)
	mr.Close()

	_, err := lt.Blocked(context.Background(), "a@x.com")
	assert.Error(t, err)
	assert.Error(t, lt.RecordFailure(context.Background(), "a@x.com"))
}

func TestLoginThrottle_HashesEmail(t *testing.T) {
	lt, mr := newThrottle(t, 2)
	fail(t, lt, "a@x.com", 1)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "a@x.com")
	assert.Contains(t, keys[0], "login_fail:")
}
