package weather

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCoordinates is returned for non-finite or out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidUnits is returned for unit systems other than metric/imperial.
	ErrInvalidUnits = errors.New("invalid unit system")
)

// FetchError reports a failed upstream call: a non-2xx status or a transport failure.
// StatusCode is zero for transport failures.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable is true for transport failures, rate limiting and server errors.
func (e *FetchError) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable reports whether err wraps a retryable FetchError.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable()
}
