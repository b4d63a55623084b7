package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestTryLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	a := NewPaymentReviewLock(client, 7, "admin-a")
	b := NewPaymentReviewLock(client, 7, "admin-b")

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// 不同充值单互不影响
	ok, err = NewPaymentReviewLock(client, 8, "admin-b").TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlockOnlyReleasesOwnLock(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	a := NewPaymentReviewLock(client, 7, "admin-a")
	b := NewPaymentReviewLock(client, 7, "admin-b")

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, b.Unlock(ctx))
	assert.True(t, mr.Exists("payment:review:lock:7"))

	require.NoError(t, a.Unlock(ctx))
	assert.False(t, mr.Exists("payment:review:lock:7"))
}

func TestLockExpires(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	ok, err := NewPaymentReviewLock(client, 7, "admin-a").TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	ok, err = NewPaymentReviewLock(client, 7, "admin-b").TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockGivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	ok, err := NewPaymentReviewLock(client, 7, "admin-a").TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	err = NewPaymentReviewLock(client, 7, "admin-b").Lock(ctx, time.Millisecond, 3)
	assert.ErrorIs(t, err, ErrLockFailed)
}
