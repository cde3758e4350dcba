package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Recorder receives one event per upstream call.
type Recorder interface {
	UpstreamRequest(provider, op string, status int, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) UpstreamRequest(string, string, int, time.Duration, error) {}

// ClientConfig bundles the HTTP client and per-provider settings.
type ClientConfig struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	// RPS limits outbound requests per second; zero disables limiting.
	RPS      float64
	Recorder Recorder
}

var (
	errUnexpectedStatus = errors.New("unexpected status code")
	errCircuitOpen      = errors.New("circuit breaker open")
	errNoHTTPClient     = errors.New("http client not configured")
)

// upstream is a JSON GET client guarded by a circuit breaker and an optional rate limiter.
type upstream struct {
	name    string
	http    *resty.Client
	circuit *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	rec     Recorder
}

func newUpstream(name string, cfg ClientConfig) *upstream {
	var rc *resty.Client
	if cfg.Client != nil {
		rc = resty.NewWithClient(cfg.Client)
	} else {
		rc = resty.New().SetTimeout(10 * time.Second)
	}
	rc.SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	u := &upstream{
		name: name,
		http: rc,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		rec: cfg.Recorder,
	}
	if u.rec == nil {
		u.rec = nopRecorder{}
	}
	if cfg.RPS > 0 {
		u.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return u
}

// getJSON performs a GET against path and decodes a successful body into out.
// Failures are returned as *weather.FetchError.
func (u *upstream) getJSON(ctx context.Context, op, path string, params map[string]string, out any) error {
	if u.http == nil {
		return &weather.FetchError{Op: op, Err: errNoHTTPClient}
	}

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return &weather.FetchError{Op: op, Err: fmt.Errorf("rate limit wait canceled: %w", err)}
		}
	}

	start := time.Now()
	status := 0

	result, err := u.circuit.Execute(func() (interface{}, error) {
		resp, execErr := u.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if execErr != nil {
			return nil, execErr
		}
		status = resp.StatusCode()
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, status)
		}
		return resp.Body(), nil
	})

	u.rec.UpstreamRequest(u.name, op, status, time.Since(start), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &weather.FetchError{Op: op, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		if errors.Is(err, errUnexpectedStatus) {
			return &weather.FetchError{Op: op, StatusCode: status, Err: err}
		}
		return &weather.FetchError{Op: op, Err: err}
	}

	body, ok := result.([]byte)
	if !ok {
		return &weather.FetchError{Op: op, Err: fmt.Errorf("unexpected result type from circuit breaker")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &weather.FetchError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
