package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMissingCredential means the API key environment variable is empty.
var ErrMissingCredential = errors.New("provider: api key not set")

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// ParseError is a 2xx answer that is not a usable completion.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider response parse error: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// TimeoutError is raised when the configured call timeout elapses.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider request timeout after %s", e.Timeout)
}

// TransportError wraps failures to reach the provider at all.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider request failed: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Failure tags why a provider call did not yield a reply.
type Failure string

const (
	FailureNone       Failure = ""
	FailureCredential Failure = "credential"
	FailureTransport  Failure = "transport"
	FailureTimeout    Failure = "timeout"
	FailureCanceled   Failure = "canceled"
	FailureStatus     Failure = "status"
	FailureMalformed  Failure = "malformed"
	FailureUnknown    Failure = "unknown"
)

// Classify maps an error returned by Client to its Failure tag.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}

	var (
		statusErr  *StatusError
		parseErr   *ParseError
		timeoutErr *TimeoutError
	)
	switch {
	case errors.Is(err, ErrMissingCredential):
		return FailureCredential
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.As(err, &statusErr):
		return FailureStatus
	case errors.As(err, &parseErr):
		return FailureMalformed
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return FailureTransport
	}
	return FailureUnknown
}
