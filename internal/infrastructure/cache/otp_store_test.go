package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOTPStore(t *testing.T) (*OTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewOTPStore(client, 10*time.Minute), mr
}

func TestOTPStoreSaveGetConsume(t *testing.T) {
	ctx := context.Background()
	store, _ := newOTPStore(t)

	require.NoError(t, store.Save(ctx, &PendingSignup{Email: "a@b.c", Name: "A", PasswordHash: "h", Code: "123456"}))

	p, err := store.Get(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "123456", p.Code)
	assert.Equal(t, "h", p.PasswordHash)

	ok, err := store.Consume(ctx, "a@b.c")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, "a@b.c")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestOTPStoreExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newOTPStore(t)

	require.NoError(t, store.Save(ctx, &PendingSignup{Email: "a@b.c", Code: "111111"}))
	mr.FastForward(11 * time.Minute)

	_, err := store.Get(ctx, "a@b.c")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestOTPStoreOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	store, _ := newOTPStore(t)

	require.NoError(t, store.Save(ctx, &PendingSignup{Email: "a@b.c", Code: "111111"}))
	require.NoError(t, store.Save(ctx, &PendingSignup{Email: "a@b.c", Code: "222222"}))

	p, err := store.Get(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "222222", p.Code)
}
