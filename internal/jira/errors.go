package jira

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a 404 from the tracker, e.g. an unknown issue key.
var ErrNotFound = errors.New("not found")

// NetworkError is a transport-level failure: DNS, TLS, connection reset,
// timeout. Never retried automatically.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the tracker, surfaced with the
// status code and the raw response body. Never retried automatically.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("jira API error %d: %s", e.Status, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 HTTPError.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}
