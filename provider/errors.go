package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited is returned when the local rate limiter refuses a call.
var ErrRateLimited = errors.New("rate limit exceeded")

// ValidationError reports a request the vendor cannot accept. It is raised
// before any network activity.
type ValidationError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid request: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: invalid request: %s %s", e.Provider, e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(vendor, field, format string, args ...any) error {
	return &ValidationError{Provider: vendor, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TransportError reports a failed exchange with the vendor: a non-success
// status or a network failure.
type TransportError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       []byte
	RateLimits *RateLimits
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: http %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("%s: transport: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: transport failure", e.Provider)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a new attempt could succeed.
func (e *TransportError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// ProtocolError reports a vendor answer that could not be understood.
type ProtocolError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: protocol: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: protocol: %s", e.Provider, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// CancellationError reports a call that stopped because its context ended.
// Timeout is set when a per-attempt deadline fired while the caller's context
// was still alive.
type CancellationError struct {
	Provider string
	Timeout  bool
	Err      error
}

func (e *CancellationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: attempt timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: cancelled: %v", e.Provider, e.Err)
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

// Canceled wraps a context error.
func Canceled(vendor string, err error) error {
	return &CancellationError{Provider: vendor, Err: err}
}

// IsTransient reports whether err is worth another attempt: retryable
// transport failures, local rate limiting and per-attempt timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var ce *CancellationError
	if errors.As(err, &ce) {
		return ce.Timeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// AsTransportError extracts a TransportError from err.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}

// AsValidationError extracts a ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
