package workday

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	// ErrFatalStatus is a client error status that a retry cannot fix
	ErrFatalStatus ErrorCode = "FatalStatus"

	// ErrRetriesExhausted is returned when every attempt for a page failed transiently
	ErrRetriesExhausted ErrorCode = "RetriesExhausted"

	// ErrMalformedResponse marks a 2xx body without a jobPostings array
	ErrMalformedResponse ErrorCode = "MalformedResponse"

	// ErrCanceled is returned when the caller gave up between attempts
	ErrCanceled ErrorCode = "Canceled"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// FetchError describes the last failed attempt for a page
type FetchError struct {
	Offset   int
	Attempts int
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch offset %d failed after %d attempt(s) (status %d)", e.Offset, e.Attempts, e.Status)
	}
	return fmt.Sprintf("fetch offset %d failed after %d attempt(s) (status %d): %v", e.Offset, e.Attempts, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// retryableStatus reports whether a non-2xx status may succeed on a later attempt.
// Server errors and throttling are retried; other client errors are not.
func retryableStatus(status int) bool {
	switch {
	case status >= 500:
		return true
	case status == http.StatusRequestTimeout,
		status == http.StatusTooEarly,
		status == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
