package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestWithSlotLockReleasesAfterRun(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)
	slotID := uuid.New()
	key := "lock:slot:" + slotID.String()

	ran := false
	err := locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(key), "lock key should exist while fn runs")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(key), "lock key should be released")
}

func TestWithSlotLockRejectsConcurrentHolder(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)
	slotID := uuid.New()

	err := locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, slotID, func(ctx context.Context) error {
			t.Fatal("inner critical section must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithNamedLockPropagatesError(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)

	boom := errors.New("boom")
	err := locker.WithNamedLock(context.Background(), "worker:expiry", func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:worker:expiry"))
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := &redisLocker{client: client, ttl: time.Second}

	require.NoError(t, mr.Set("lock:worker:expiry", "someone-else"))
	require.NoError(t, l.release(context.Background(), "lock:worker:expiry", "mine"))

	val, err := mr.Get("lock:worker:expiry")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestNotificationCounterPerDay(t *testing.T) {
	mr, client := setupTestRedis(t)
	counter := NewNotificationCounter(client)
	ctx := context.Background()
	patient := uuid.New()
	day := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for want := int64(1); want <= 3; want++ {
		got, err := counter.Increment(ctx, patient, day)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	next, err := counter.Increment(ctx, patient, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), next, "a new day starts a new counter")

	n, err := counter.Count(ctx, patient, day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ttl := mr.TTL(dailyKey(patient, day))
	assert.Equal(t, dailyCounterTTL, ttl)

	require.NoError(t, counter.Release(ctx, patient, day))
	n, err = counter.Count(ctx, patient, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	none, err := counter.Count(ctx, uuid.New(), day)
	require.NoError(t, err)
	assert.Zero(t, none)
}
