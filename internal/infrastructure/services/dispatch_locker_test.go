package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
)

func TestMemoryDispatchLocker(t *testing.T) {
	locker := NewMemoryDispatchLocker()
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return current }
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "dispatch:n1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "dispatch:n1", time.Minute)
	assert.ErrorIs(t, err, services.ErrLockHeld)

	other, err := locker.Acquire(ctx, "dispatch:n2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := locker.Acquire(ctx, "dispatch:n1", time.Minute)
	require.NoError(t, err)

	t.Run("expired lock can be taken over and the stale holder cannot release it", func(t *testing.T) {
		current = current.Add(2 * time.Minute)
		takeover, err := locker.Acquire(ctx, "dispatch:n1", time.Minute)
		require.NoError(t, err)

		again()
		_, err = locker.Acquire(ctx, "dispatch:n1", time.Minute)
		assert.ErrorIs(t, err, services.ErrLockHeld)
		takeover()
	})
}

func TestRedisDispatchLocker_Integration(t *testing.T) {
	addr := os.Getenv("PUSHNOTIFY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PUSHNOTIFY_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	locker := NewRedisDispatchLocker(client, "pushnotify-test:")
	key := "dispatch:" + uuid.New().String()

	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, services.ErrLockHeld)

	release()
	release2, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	release2()
}
