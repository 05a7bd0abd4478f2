package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/application/asset"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The locker is exercised against a real Redis when LEDGER_TEST_REDIS_ADDR
// is set.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LEDGER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEDGER_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisJobLocker_SecondObtainFails(t *testing.T) {
	locker := NewRedisJobLocker(testClient(t), zap.NewNop())
	ctx := context.Background()
	key := "depreciation:" + uuid.NewString()

	release, err := locker.Obtain(ctx, key, 5*time.Second)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, key, 5*time.Second)
	assert.True(t, errors.Is(err, asset.ErrLockHeld))

	require.NoError(t, release(ctx))
	release, err = locker.Obtain(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedisJobLocker_ReleaseAfterExpiryIsQuiet(t *testing.T) {
	locker := NewRedisJobLocker(testClient(t), zap.NewNop())
	ctx := context.Background()

	release, err := locker.Obtain(ctx, "expiring:"+uuid.NewString(), 20*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, release(ctx))
}
