// Package geolocation resolves the device position through a pluggable source
// and tracks the lookup as a small state machine:
//
//	idle -> locating -> resolved | failed
//	resolved | failed -> locating (explicit request)
package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultMaxAge  = 5 * time.Minute
)

// State of the resolver.
type State string

const (
	StateIdle     State = "idle"
	StateLocating State = "locating"
	StateResolved State = "resolved"
	StateFailed   State = "failed"
)

// Options bound a single position request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaxAge is the oldest previously acquired position that may be reused.
	MaxAge time.Duration
}

// Position is a fix returned by a PositionSource.
type Position struct {
	Coordinates weather.Coordinates
	Accuracy    float64
	Timestamp   time.Time
}

// PositionSource acquires the device position.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// Snapshot is a copy of the resolver state.
type Snapshot struct {
	State       State                `json:"state"`
	Coordinates *weather.Coordinates `json:"coordinates,omitempty"`
	Error       *Error               `json:"error,omitempty"`
	RequestID   string               `json:"requestId,omitempty"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Resolver runs position requests. Only the most recent request may update the state.
type Resolver struct {
	mu     sync.Mutex
	source PositionSource
	opts   Options

	state     State
	coords    *weather.Coordinates
	err       *Error
	gen       uint64
	requestID string
	updatedAt time.Time
	lastFix   *Position

	now func() time.Time
	log *zap.Logger
}

// NewResolver creates an idle Resolver. Zero Timeout and MaxAge take the defaults.
func NewResolver(source PositionSource, opts Options, log *zap.Logger) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAge < 0 {
		opts.MaxAge = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		source: source,
		opts:   opts,
		state:  StateIdle,
		now:    time.Now,
		log:    log,
	}
}

// Snapshot returns the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resolver) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     r.state,
		RequestID: r.requestID,
		UpdatedAt: r.updatedAt,
	}
	if r.coords != nil {
		c := *r.coords
		s.Coordinates = &c
	}
	if r.err != nil {
		e := *r.err
		s.Error = &e
	}
	return s
}

// Start locates only if the resolver has never produced a result.
func (r *Resolver) Start(ctx context.Context) Snapshot {
	r.mu.Lock()
	idle := r.state == StateIdle
	r.mu.Unlock()
	if !idle {
		return r.Snapshot()
	}
	return r.Locate(ctx)
}

// Locate clears any previous result and requests a fresh position. It blocks
// until the source answers or the timeout elapses. A call superseded by a
// newer Locate leaves the state to the newer call.
func (r *Resolver) Locate(ctx context.Context) Snapshot {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state = StateLocating
	r.coords = nil
	r.err = nil
	r.requestID = uuid.NewString()
	r.updatedAt = r.now()
	reuse := r.reusableFixLocked()
	r.mu.Unlock()

	var (
		pos Position
		err error
	)
	if reuse != nil {
		pos = *reuse
	} else {
		pos, err = r.acquire(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		r.log.Debug("discarding superseded position result", zap.Uint64("generation", gen))
		return r.snapshotLocked()
	}

	r.updatedAt = r.now()
	if err != nil {
		r.state = StateFailed
		r.err = classify(err)
		r.log.Info("geolocation failed", zap.String("kind", string(r.err.Kind)), zap.Error(err))
		return r.snapshotLocked()
	}
	if verr := pos.Coordinates.Validate(); verr != nil {
		r.state = StateFailed
		r.err = newError(KindPositionUnavailable, verr)
		return r.snapshotLocked()
	}

	if pos.Timestamp.IsZero() {
		pos.Timestamp = r.now()
	}
	r.state = StateResolved
	c := pos.Coordinates
	r.coords = &c
	r.lastFix = &pos
	return r.snapshotLocked()
}

// Use records a position chosen by the user, such as a city picked from search.
// Any request still in flight is superseded. The position is not reused as a
// device fix.
func (r *Resolver) Use(c weather.Coordinates) (Snapshot, error) {
	if err := c.Validate(); err != nil {
		return r.Snapshot(), err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.state = StateResolved
	r.coords = &c
	r.err = nil
	r.requestID = uuid.NewString()
	r.updatedAt = r.now()
	return r.snapshotLocked(), nil
}

func (r *Resolver) reusableFixLocked() *Position {
	if r.lastFix == nil || r.opts.MaxAge == 0 {
		return nil
	}
	if r.now().Sub(r.lastFix.Timestamp) > r.opts.MaxAge {
		return nil
	}
	p := *r.lastFix
	return &p
}

func (r *Resolver) acquire(ctx context.Context) (Position, error) {
	if r.source == nil {
		return Position{}, newError(KindUnsupported, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	type result struct {
		pos Position
		err error
	}
	done := make(chan result, 1)
	go func() {
		pos, err := r.source.CurrentPosition(ctx, r.opts)
		done <- result{pos, err}
	}()

	select {
	case res := <-done:
		return res.pos, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, newError(KindTimeout, ctx.Err())
		}
		return Position{}, newError(KindUnknown, ctx.Err())
	}
}

// StaticSource reports a fixed, configured position. A nil Coordinates means the
// host has no position capability.
type StaticSource struct {
	Coordinates *weather.Coordinates
}

func (s StaticSource) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if s.Coordinates == nil {
		return Position{}, newError(KindUnsupported, nil)
	}
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{Coordinates: *s.Coordinates, Timestamp: time.Now()}, nil
}
