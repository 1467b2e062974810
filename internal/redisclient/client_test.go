package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestLockIsExclusiveUntilReleased(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := client.AcquireLock(ctx, "submission:pay_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireLock(ctx, "submission:pay_1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, "submission:pay_1"))

	ok, err = client.AcquireLock(ctx, "submission:pay_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpires(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := client.AcquireLock(ctx, "submission:pay_2", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = client.AcquireLock(ctx, "submission:pay_2", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyValue(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := client.GetIdempotencyValue(ctx, "payment:pay_1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.SetIdempotencyKey(ctx, "payment:pay_1", `{"id":1}`, time.Hour))

	value, found, err := client.GetIdempotencyValue(ctx, "payment:pay_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"id":1}`, value)
}

func TestAccessTokenStore(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	token, err := client.AccessToken(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, client.SaveAccessToken(ctx, "demo.myshopify.com", "shpat_abc"))

	token, err = client.AccessToken(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", token)
}
