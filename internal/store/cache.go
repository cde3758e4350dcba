package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Recorder receives cache events. The metrics package provides the Prometheus implementation.
type Recorder interface {
	CacheHit(op string)
	CacheMiss(op string)
	CacheRetry(op string)
	CacheEvicted(op string, n int)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(string)          {}
func (nopRecorder) CacheMiss(string)         {}
func (nopRecorder) CacheRetry(string)        {}
func (nopRecorder) CacheEvicted(string, int) {}

// Options configures a QueryCache.
type Options struct {
	// Windows maps an operation to its staleness window.
	Windows map[string]time.Duration
	// DefaultWindow applies to operations missing from Windows.
	DefaultWindow time.Duration
	// Retries is how many times a retryable load failure is retried.
	Retries    int
	RetryDelay time.Duration

	Recorder Recorder
	Logger   *zap.Logger
}

type entry struct {
	op       string
	value    any
	hasValue bool
	storedAt time.Time

	// storedGen is the generation of the stored value (or of the last invalidation);
	// nextGen is the last generation handed to a load.
	storedGen uint64
	nextGen   uint64
	inflight  int
}

// QueryCache is a concurrency-safe request/response cache keyed by (operation, key).
// Entries are replaced wholesale; a load started before a newer load or an
// invalidation never overwrites the newer state.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*entry

	windows       map[string]time.Duration
	defaultWindow time.Duration
	retries       int
	retryDelay    time.Duration

	rec Recorder
	log *zap.Logger
	now func() time.Time
}

// NewQueryCache creates a QueryCache.
func NewQueryCache(opts Options) *QueryCache {
	windows := make(map[string]time.Duration, len(opts.Windows))
	for op, w := range opts.Windows {
		windows[op] = w
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &QueryCache{
		entries:       make(map[string]*entry),
		windows:       windows,
		defaultWindow: opts.DefaultWindow,
		retries:       opts.Retries,
		retryDelay:    opts.RetryDelay,
		rec:           rec,
		log:           log,
		now:           time.Now,
	}
}

func cacheKey(op, key string) string {
	return op + "|" + key
}

func (c *QueryCache) window(op string) time.Duration {
	if w, ok := c.windows[op]; ok {
		return w
	}
	return c.defaultWindow
}

func (c *QueryCache) fresh(e *entry) bool {
	return e.hasValue && c.now().Sub(e.storedAt) < c.window(e.op)
}

// Get returns the cached value for (op, key) while it is fresh; otherwise it
// calls load, retrying retryable failures, and stores the result.
func (c *QueryCache) Get(ctx context.Context, op, key string, load func(ctx context.Context) (any, error)) (any, error) {
	k := cacheKey(op, key)

	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		e = &entry{op: op}
		c.entries[k] = e
	}
	if c.fresh(e) {
		v := e.value
		c.mu.Unlock()
		c.rec.CacheHit(op)
		return v, nil
	}
	e.nextGen++
	e.inflight++
	gen := e.nextGen
	c.mu.Unlock()

	c.rec.CacheMiss(op)

	v, err := c.loadWithRetry(ctx, op, load)

	c.mu.Lock()
	e.inflight--
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if gen > e.storedGen {
		e.value = v
		e.hasValue = true
		e.storedAt = c.now()
		e.storedGen = gen
	} else {
		c.log.Debug("discarding superseded load", zap.String("op", op), zap.String("key", key))
	}
	c.mu.Unlock()

	return v, nil
}

func (c *QueryCache) loadWithRetry(ctx context.Context, op string, load func(ctx context.Context) (any, error)) (any, error) {
	var attempt int
	for {
		v, err := load(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= c.retries || !weather.IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		attempt++
		c.rec.CacheRetry(op)
		c.log.Info("retrying failed load", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))

		if c.retryDelay > 0 {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// Invalidate drops the value for (op, key). Loads already in flight will not store their result.
func (c *QueryCache) Invalidate(op, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey(op, key)]
	if !ok {
		return
	}
	e.value = nil
	e.hasValue = false
	e.storedGen = e.nextGen
}

// Purge removes entries past their staleness window with no load in flight.
// It returns the number of removed entries.
func (c *QueryCache) Purge() int {
	c.mu.Lock()
	removed := make(map[string]int)
	for k, e := range c.entries {
		if e.inflight > 0 || c.fresh(e) {
			continue
		}
		delete(c.entries, k)
		removed[e.op]++
	}
	c.mu.Unlock()

	total := 0
	for op, n := range removed {
		c.rec.CacheEvicted(op, n)
		total += n
	}
	return total
}

// Len returns the number of tracked entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ weather.Cache = (*QueryCache)(nil)
