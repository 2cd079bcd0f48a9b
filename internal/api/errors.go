package api

import (
	"fmt"
	"net/http"
)

// TransportError is a failed request: a network failure (StatusCode 0) or
// an unexpected status code.
type TransportError struct {
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("feed transport error: %v", e.Err)
	}
	return fmt.Sprintf("feed api error %d: %s", e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports that a later attempt may succeed.
func (e *TransportError) Retryable() bool {
	return true
}

// transient reports whether the request is worth repeating immediately
// inside the client rather than waiting for the caller's backoff.
func (e *TransportError) transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// MalformedFeedError is a response whose body does not have the expected
// shape.
type MalformedFeedError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *MalformedFeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response from %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response from %s: %s", e.Endpoint, e.Reason)
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}

// Retryable reports that a later attempt may succeed.
func (e *MalformedFeedError) Retryable() bool {
	return true
}
