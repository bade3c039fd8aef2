package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailsync_errors "github.com/kotsworld/mailsync/internal/errors"
	"github.com/kotsworld/mailsync/internal/logger"
)

func TestLocalLock_ExcludesSameName(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "documents")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "documents")
	assert.ErrorIs(t, err, mailsync_errors.ErrRunInProgress)

	other, err := lock.Acquire(ctx, "tickets")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := lock.Acquire(ctx, "documents")
	require.NoError(t, err)
	again()
}

func TestNew_SelectsImplementation(t *testing.T) {
	appLogger := logger.NewAppLogger(nil)
	appLogger.InitLogger()

	local, err := New("", appLogger)
	require.NoError(t, err)
	assert.IsType(t, &LocalLock{}, local)

	redisLock, err := New("redis://localhost:6379/0", appLogger)
	require.NoError(t, err)
	assert.IsType(t, &RedisLock{}, redisLock)
	assert.NoError(t, redisLock.(*RedisLock).Close())

	_, err = New("not-a-url://", appLogger)
	assert.Error(t, err)
}

func newTestRedisLock(t *testing.T, server *miniredis.Miniredis, ttl time.Duration) *RedisLock {
	appLogger := logger.NewAppLogger(nil)
	appLogger.InitLogger()

	lock, err := NewRedisLock("redis://"+server.Addr(), appLogger, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lock.Close() })
	return lock
}

func TestRedisLock_ExcludesAcrossReplicas(t *testing.T) {
	// Arrange
	server := miniredis.RunT(t)
	first := newTestRedisLock(t, server, time.Minute)
	second := newTestRedisLock(t, server, time.Minute)
	ctx := context.Background()

	// Act
	release, err := first.Acquire(ctx, "documents")
	require.NoError(t, err)
	_, blocked := second.Acquire(ctx, "documents")

	// Assert
	assert.ErrorIs(t, blocked, mailsync_errors.ErrRunInProgress)
	assert.True(t, server.Exists(keyPrefix+"documents"))
	assert.Equal(t, time.Minute, server.TTL(keyPrefix+"documents"))

	release()
	release()
	assert.False(t, server.Exists(keyPrefix+"documents"))

	again, err := second.Acquire(ctx, "documents")
	require.NoError(t, err)
	again()
}

func TestRedisLock_ReleaseKeepsForeignLease(t *testing.T) {
	// Arrange
	server := miniredis.RunT(t)
	lock := newTestRedisLock(t, server, time.Minute)

	release, err := lock.Acquire(context.Background(), "tickets")
	require.NoError(t, err)

	// the lease expired and another replica took it
	server.FastForward(2 * time.Minute)
	require.NoError(t, server.Set(keyPrefix+"tickets", "lock_other"))

	// Act
	release()

	// Assert
	value, err := server.Get(keyPrefix + "tickets")
	require.NoError(t, err)
	assert.Equal(t, "lock_other", value)
}

func TestRedisLock_ExpiredLeaseCanBeTaken(t *testing.T) {
	// Arrange
	server := miniredis.RunT(t)
	crashed := newTestRedisLock(t, server, time.Minute)
	next := newTestRedisLock(t, server, time.Minute)
	ctx := context.Background()

	_, err := crashed.Acquire(ctx, "documents")
	require.NoError(t, err)

	// Act
	server.FastForward(61 * time.Second)
	release, err := next.Acquire(ctx, "documents")

	// Assert
	require.NoError(t, err)
	release()
}

func TestRedisLock_RenewOnlyOwnLease(t *testing.T) {
	// Arrange
	server := miniredis.RunT(t)
	lock := newTestRedisLock(t, server, 30*time.Second)
	ctx := context.Background()
	key := keyPrefix + "documents"

	release, err := lock.Acquire(ctx, "documents")
	require.NoError(t, err)
	defer release()
	token, err := server.Get(key)
	require.NoError(t, err)

	// Act
	server.FastForward(20 * time.Second)
	renewed, err := lock.renew(ctx, key, token)
	require.NoError(t, err)
	stale, staleErr := lock.renew(ctx, key, "lock_other")

	// Assert
	assert.True(t, renewed)
	assert.Equal(t, 30*time.Second, server.TTL(key))
	require.NoError(t, staleErr)
	assert.False(t, stale)
}
