package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionCache(rdb), mr
}

func TestSessionCache_RememberAndLookup(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	sid, uid := uuid.New(), uuid.New()

	require.NoError(t, c.Remember(ctx, sid, uid, time.Minute))

	got, found, err := c.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uid, got)
	assert.True(t, mr.Exists("auth:session:"+sid.String()))
}

func TestSessionCache_EntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	sid := uuid.New()

	require.NoError(t, c.Remember(ctx, sid, uuid.New(), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := c.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionCache_NonPositiveTTLIsNoop(t *testing.T) {
	c, mr := newTestCache(t)
	sid := uuid.New()

	require.NoError(t, c.Remember(context.Background(), sid, uuid.New(), 0))
	assert.False(t, mr.Exists("auth:session:"+sid.String()))
}

func TestSessionCache_Forget(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	require.NoError(t, c.Remember(ctx, a, uuid.New(), time.Minute))
	require.NoError(t, c.Remember(ctx, b, uuid.New(), time.Minute))

	require.NoError(t, c.Forget(ctx, a, b))
	require.NoError(t, c.Forget(ctx))

	_, found, err := c.Lookup(ctx, a)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = c.Lookup(ctx, b)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	sid := uuid.New()
	require.NoError(t, mr.Set("auth:session:"+sid.String(), "not-a-uuid"))

	_, found, err := c.Lookup(context.Background(), sid)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("auth:session:"+sid.String()))
}

func TestSessionCache_RedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, _, err := c.Lookup(context.Background(), uuid.New())
	assert.Error(t, err)
}
