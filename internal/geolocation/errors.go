package geolocation

import (
	"context"
	"errors"
)

// ErrorKind classifies a failed position request.
type ErrorKind string

const (
	KindPermissionDenied    ErrorKind = "permissionDenied"
	KindPositionUnavailable ErrorKind = "positionUnavailable"
	KindTimeout             ErrorKind = "timeout"
	KindUnsupported         ErrorKind = "unsupported"
	KindUnknown             ErrorKind = "unknown"
)

var defaultMessages = map[ErrorKind]string{
	KindPermissionDenied:    "User denied the request for Geolocation.",
	KindPositionUnavailable: "Location information is unavailable.",
	KindTimeout:             "The request to get user location timed out.",
	KindUnsupported:         "Geolocation is not supported by this browser.",
	KindUnknown:             "An unknown error occurred.",
}

// Error is a classified geolocation failure.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: defaultMessages[kind], cause: cause}
}

// NewError creates an Error of the given kind; sources use it to report failures.
func NewError(kind ErrorKind) *Error {
	if _, ok := defaultMessages[kind]; !ok {
		kind = KindUnknown
	}
	return newError(kind, nil)
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// MessageKey is the translation key of the error message.
func (e *Error) MessageKey() string {
	return "geolocation." + string(e.Kind)
}

func classify(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err)
	}
	return newError(KindUnknown, err)
}
