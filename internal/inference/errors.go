package inference

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError is returned for an attempt that did not complete within the
// configured per-attempt timeout.
type TimeoutError struct {
	Endpoint string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %dms", e.Timeout.Milliseconds())
}

// HTTPError is returned when the service answers with a non-2xx status.
// Body holds the response body as error detail.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

// NetworkError is returned when no HTTP response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 2xx body is not the expected JSON.
// It consumes an attempt like any other failure.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError aggregates a request whose every attempt failed.
// LastErr is one of *TimeoutError, *HTTPError, *NetworkError or *DecodeError.
type ExhaustedRetriesError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedRetriesError) Error() string {
	msg := "<nil>"
	if e.LastErr != nil {
		msg = e.LastErr.Error()
	}
	return fmt.Sprintf("all %d request attempts failed; last error: %s", e.Attempts, msg)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.LastErr
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status carried by err, or 0 when err does not
// wrap an *HTTPError.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
