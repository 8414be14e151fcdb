package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*TokenDenylist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTokenDenylist(client), mr
}

func TestTokenDenylist_RevokeAndCheck(t *testing.T) {
	d, mr := setupTestRedis(t)
	ctx := context.Background()

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "jti-1", time.Hour))

	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists(keyPrefix+"jti-1"))
}

func TestTokenDenylist_EntryExpires(t *testing.T) {
	d, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "jti-2", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"jti-2"))

	mr.FastForward(2 * time.Minute)

	revoked, err := d.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenDenylist_ServerDown(t *testing.T) {
	d, mr := setupTestRedis(t)
	mr.Close()

	_, err := d.IsRevoked(context.Background(), "jti-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis exists revoked token")

	err = d.Revoke(context.Background(), "jti-3", time.Minute)
	require.Error(t, err)
}
