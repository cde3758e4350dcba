package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingRecorder struct {
	mu      sync.Mutex
	hits    int
	misses  int
	retries int
	evicted map[string]int
}

func (r *countingRecorder) CacheHit(string) {
	r.mu.Lock()
	r.hits++
	r.mu.Unlock()
}

func (r *countingRecorder) CacheMiss(string) {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}

func (r *countingRecorder) CacheRetry(string) {
	r.mu.Lock()
	r.retries++
	r.mu.Unlock()
}

func (r *countingRecorder) CacheEvicted(op string, n int) {
	r.mu.Lock()
	if r.evicted == nil {
		r.evicted = map[string]int{}
	}
	r.evicted[op] += n
	r.mu.Unlock()
}

func newTestCache(rec Recorder) (*QueryCache, *clock) {
	clk := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewQueryCache(Options{
		Windows: map[string]time.Duration{
			weather.OpCurrent:  5 * time.Minute,
			weather.OpForecast: 10 * time.Minute,
		},
		DefaultWindow: time.Minute,
		Retries:       1,
		Recorder:      rec,
	})
	c.now = clk.Now
	return c, clk
}

func loader(calls *int, v any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		*calls++
		return v, nil
	}
}

func TestGetServesFreshEntries(t *testing.T) {
	rec := &countingRecorder{}
	c, clk := newTestCache(rec)
	ctx := context.Background()

	var calls int
	v, err := c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	clk.Advance(4 * time.Minute)
	v, err = c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, calls)

	clk.Advance(time.Minute)
	v, err = c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, calls)

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 2, rec.misses)
}

func TestWindowsArePerOperation(t *testing.T) {
	c, clk := newTestCache(nil)
	ctx := context.Background()

	var calls int
	_, _ = c.Get(ctx, weather.OpForecast, "k", loader(&calls, 1))
	_, _ = c.Get(ctx, weather.OpSearch, "k", loader(&calls, 1))

	clk.Advance(2 * time.Minute)
	_, _ = c.Get(ctx, weather.OpForecast, "k", loader(&calls, 1))
	_, _ = c.Get(ctx, weather.OpSearch, "k", loader(&calls, 1))

	// search falls back to the one-minute default window and was refetched.
	assert.Equal(t, 3, calls)
}

func TestRetryableFailureIsRetriedOnce(t *testing.T) {
	rec := &countingRecorder{}
	c, _ := newTestCache(rec)

	var calls int
	v, err := c.Get(context.Background(), weather.OpCurrent, "k", func(context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, &weather.FetchError{Op: "current", StatusCode: 503, Err: errors.New("unavailable")}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, rec.retries)

	calls = 0
	_, err = c.Get(context.Background(), weather.OpForecast, "k", func(context.Context) (any, error) {
		calls++
		return nil, &weather.FetchError{Op: "forecast", Err: errors.New("reset")}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestNonRetryableFailureIsNotRetried(t *testing.T) {
	c, _ := newTestCache(nil)

	var calls int
	notFound := &weather.FetchError{Op: "current", StatusCode: 404, Err: errors.New("missing")}
	_, err := c.Get(context.Background(), weather.OpCurrent, "k", func(context.Context) (any, error) {
		calls++
		return nil, notFound
	})
	assert.True(t, errors.Is(err, notFound))
	assert.Equal(t, 1, calls)

	// Failures are not cached.
	v, err := c.Get(context.Background(), weather.OpCurrent, "k", loader(&calls, "late"))
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestSupersededLoadDoesNotOverwrite(t *testing.T) {
	c, _ := newTestCache(nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan any)

	go func() {
		v, _ := c.Get(ctx, weather.OpCurrent, "k", func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- v
	}()
	<-started

	var calls int
	v, err := c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "new"))
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(release)
	assert.Equal(t, "old", <-done)

	v, err = c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "unused"))
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, calls)
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(nil)
	ctx := context.Background()

	var calls int
	_, _ = c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "a"))
	c.Invalidate(weather.OpCurrent, "k")
	c.Invalidate(weather.OpCurrent, "missing")

	v, err := c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, calls)
}

func TestInvalidateDuringLoadDropsResult(t *testing.T) {
	c, _ := newTestCache(nil)
	ctx := context.Background()

	var calls int
	v, err := c.Get(ctx, weather.OpCurrent, "k", func(context.Context) (any, error) {
		c.Invalidate(weather.OpCurrent, "k")
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)

	v, err = c.Get(ctx, weather.OpCurrent, "k", loader(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestPurge(t *testing.T) {
	rec := &countingRecorder{}
	c, clk := newTestCache(rec)
	ctx := context.Background()

	var calls int
	_, _ = c.Get(ctx, weather.OpCurrent, "a", loader(&calls, 1))
	_, _ = c.Get(ctx, weather.OpForecast, "b", loader(&calls, 2))
	_, _ = c.Get(ctx, weather.OpCurrent, "failed", func(context.Context) (any, error) {
		return nil, errors.New("bad request")
	})
	require.Equal(t, 3, c.Len())

	clk.Advance(6 * time.Minute)
	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, rec.evicted[weather.OpCurrent])

	clk.Advance(5 * time.Minute)
	assert.Equal(t, 1, c.Purge())
	assert.Zero(t, c.Len())
}
