package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()

	c := New(store, time.Hour, nil)
	require.True(t, c.Connected(ctx))

	c.Store(ctx, "LIBRE", "es", "en", "hola", "hello", 0)

	key := Key("LIBRE", "es", "en", "hola")
	assert.Equal(t, time.Hour, mr.TTL(key))
	got, ok := c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	require.True(t, ok)
	assert.Equal(t, "hello", got)

	mr.FastForward(time.Hour)
	_, ok = c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.False(t, ok)
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	store, err := NewRedisStore("redis://" + addr)
	require.NoError(t, err)
	defer store.Close()

	c := New(store, time.Hour, nil)
	assert.False(t, c.Connected(ctx))

	c.Store(ctx, "LIBRE", "es", "en", "hola", "hello", 0)
	_, ok := c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.False(t, ok)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("not a url")
	assert.Error(t, err)
}
