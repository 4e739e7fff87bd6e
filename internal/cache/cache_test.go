package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) Get(context.Context, string) (string, bool, error) { return "", false, errDown }
func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errDown
}
func (failingStore) Ping(context.Context) error { return errDown }
func (failingStore) Close() error               { return nil }

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestKey(t *testing.T) {
	k := Key("LIBRE", "es", "en", "hola")
	assert.Regexp(t, regexp.MustCompile(`^mt:[0-9a-f]{16}$`), k)
	assert.Equal(t, k, Key("LIBRE", "es", "en", "hola"))

	assert.NotEqual(t, k, Key("MARIAN", "es", "en", "hola"))
	assert.NotEqual(t, k, Key("LIBRE", "fr", "en", "hola"))
	assert.NotEqual(t, k, Key("LIBRE", "es", "ar", "hola"))
	assert.NotEqual(t, k, Key("LIBRE", "es", "en", "hola "))
}

func TestCache_LookupStore(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(0), 0, zaptest.NewLogger(t))

	_, ok := c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.False(t, ok)

	c.Store(ctx, "LIBRE", "es", "en", "hola", "hello", 0)
	got, ok := c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	require.True(t, ok)
	assert.Equal(t, "hello", got)

	_, ok = c.Lookup(ctx, "MARIAN", "es", "en", "hola")
	assert.False(t, ok, "entries are scoped by provider")

	c.Store(ctx, "LIBRE", "es", "en", "hola", "hi", 0)
	got, _ = c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.Equal(t, "hi", got, "last write wins")
	assert.Equal(t, DefaultTTL, c.TTL())
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(0)
	store.now = clk.now
	c := New(store, time.Hour, nil)

	c.Store(ctx, "LIBRE", "es", "en", "hola", "hello", 0)

	clk.advance(59 * time.Minute)
	_, ok := c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.True(t, ok, "retrievable before expiry")

	clk.advance(time.Minute)
	_, ok = c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.False(t, ok, "absent at expiry")
	assert.Equal(t, 0, store.Len(), "expired entry dropped on lookup")
}

func TestCache_LookupDropsExpired(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(0)
	store.now = clk.now
	c := New(store, time.Hour, nil)

	for i := 0; i < 1000; i++ {
		c.Store(ctx, "LIBRE", "es", "en", fmt.Sprintf("texto %d", i), "text", 0)
	}
	clk.advance(2 * time.Hour)
	for i := 0; i < 1000; i++ {
		_, ok := c.Lookup(ctx, "LIBRE", "es", "en", fmt.Sprintf("texto %d", i))
		require.False(t, ok)
	}
	assert.Equal(t, 0, store.Len())
}

func TestCache_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(0)
	store.now = clk.now
	c := New(store, time.Hour, nil)

	for i := 0; i < 1000; i++ {
		c.Store(ctx, "LIBRE", "es", "en", fmt.Sprintf("texto %d", i), "text", 0)
	}
	c.Store(ctx, "LIBRE", "es", "en", "fresco", "fresh", 3*time.Hour)
	require.Equal(t, 1001, store.Len())

	clk.advance(2 * time.Hour)
	assert.Equal(t, int64(1000), c.Purge(ctx))
	assert.Equal(t, 1, store.Len())

	got, ok := c.Lookup(ctx, "LIBRE", "es", "en", "fresco")
	assert.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestCache_RunPurger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(0)
	store.now = clk.now
	c := New(store, time.Hour, nil)
	c.Store(ctx, "LIBRE", "es", "en", "hola", "hello", 0)
	clk.advance(2 * time.Hour)

	done := make(chan struct{})
	go func() {
		c.RunPurger(ctx, 5*time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	// nil store and non-purging stores return immediately
	New(nil, 0, nil).RunPurger(context.Background(), time.Millisecond)
	assert.Zero(t, New(failingStore{}, 0, nil).Purge(context.Background()))
}

func TestCache_DegradesWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	c := New(failingStore{}, 0, zaptest.NewLogger(t))

	assert.NotPanics(t, func() {
		c.Store(ctx, "LIBRE", "es", "en", "hola", "hello", 0)
	})
	_, ok := c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.False(t, ok)
	assert.False(t, c.Connected(ctx))
}

func TestCache_NilStore(t *testing.T) {
	ctx := context.Background()
	c := New(nil, 0, nil)

	c.Store(ctx, "LIBRE", "es", "en", "hola", "hello", 0)
	_, ok := c.Lookup(ctx, "LIBRE", "es", "en", "hola")
	assert.False(t, ok)
	assert.False(t, c.Connected(ctx))
	assert.NoError(t, c.Close())
}

func TestMemoryStore_Capacity(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(2)
	s.now = clk.now

	require.NoError(t, s.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, s.Set(ctx, "b", "2", time.Hour))
	require.NoError(t, s.Set(ctx, "c", "3", time.Hour))
	assert.Equal(t, 2, s.Len())

	_, found, _ := s.Get(ctx, "a")
	assert.False(t, found, "entry closest to expiry is evicted")

	require.NoError(t, s.Set(ctx, "b", "22", time.Hour))
	assert.Equal(t, 2, s.Len(), "overwriting does not evict")
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	require.NoError(t, s.Close())

	_, _, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "a", "1", time.Minute), ErrClosed)
	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
}
