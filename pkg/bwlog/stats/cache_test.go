package stats

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// counting answers every name except "ghost" and counts upstream calls.
type counting struct {
	calls atomic.Int32
	err   error
}

func (p *counting) Name() string { return "counting" }

func (p *counting) Fetch(_ context.Context, name string) (Stats, error) {
	p.calls.Add(1)
	if p.err != nil {
		return Stats{}, p.err
	}
	if key(name) == "ghost" {
		return Stats{}, ErrNotFound
	}
	return Stats{Name: name, Stars: len(name)}, nil
}

func newTestCache(p Provider, opts ...CacheOption) (*Cache, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 2, 22, 0, 0, 0, time.UTC)}
	return NewCache(p, append([]CacheOption{WithCacheClock(clk.Now)}, opts...)...), clk
}

func TestCache_HitAndExpiry(t *testing.T) {
	up := &counting{}
	c, clk := newTestCache(up, WithTTL(time.Minute))
	ctx := context.Background()

	s, err := c.Fetch(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Stars)

	_, err = c.Fetch(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, int32(1), up.calls.Load(), "names are case-insensitive")

	clk.Advance(time.Minute)
	_, err = c.Fetch(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestCache_NegativeCaching(t *testing.T) {
	up := &counting{}
	c, clk := newTestCache(up, WithNegativeTTL(10*time.Second))
	ctx := context.Background()

	_, err := c.Fetch(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Fetch(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), up.calls.Load())

	clk.Advance(10 * time.Second)
	_, _ = c.Fetch(ctx, "ghost")
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestCache_NegativeCachingDisabled(t *testing.T) {
	up := &counting{}
	c, _ := newTestCache(up, WithNegativeTTL(0))

	_, _ = c.Fetch(context.Background(), "ghost")
	_, _ = c.Fetch(context.Background(), "ghost")
	assert.Equal(t, int32(2), up.calls.Load())
	assert.Zero(t, c.Len())
}

func TestCache_TransientErrorsNotCached(t *testing.T) {
	up := &counting{err: errors.New("timeout")}
	c, _ := newTestCache(up)

	_, err := c.Fetch(context.Background(), "Alice")
	assert.Error(t, err)
	up.err = nil

	s, err := c.Fetch(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	up := &counting{}
	c, _ := newTestCache(up, WithCacheSize(2))
	ctx := context.Background()

	_, _ = c.Fetch(ctx, "Alice")
	_, _ = c.Fetch(ctx, "Bobby")
	_, _ = c.Fetch(ctx, "Alice") // Bobby is now oldest
	_, _ = c.Fetch(ctx, "Carol")
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int32(3), up.calls.Load())

	_, _ = c.Fetch(ctx, "Alice")
	assert.Equal(t, int32(3), up.calls.Load())

	_, _ = c.Fetch(ctx, "Bobby")
	assert.Equal(t, int32(4), up.calls.Load())
}

func TestCache_InvalidateAndPurge(t *testing.T) {
	up := &counting{}
	c, clk := newTestCache(up, WithTTL(time.Minute))
	ctx := context.Background()

	_, _ = c.Fetch(ctx, "Alice")
	_, _ = c.Fetch(ctx, "Bobby")
	c.Invalidate("alice")
	assert.Equal(t, 1, c.Len())

	clk.Advance(time.Minute)
	c.Purge()
	assert.Zero(t, c.Len())
}

func TestCache_ConcurrentLookupsShareOneCall(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	slow := ProviderFunc(func(_ context.Context, name string) (Stats, error) {
		calls.Add(1)
		<-release
		return Stats{Name: name}, nil
	})
	c := NewCache(slow)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), "Alice")
			errs <- err
		}()
	}

	// Let the callers pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_StartPurgeTicker(t *testing.T) {
	c := NewCache(&counting{}, WithTTL(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _ = c.Fetch(ctx, "Alice")
	c.StartPurgeTicker(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}
