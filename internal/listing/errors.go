package listing

import (
	"errors"
	"fmt"
)

// Common listing errors.
var (
	// ErrTransport wraps every failure to complete a request: dial errors,
	// timeouts, and non-2xx HTTP responses.
	ErrTransport = errors.New("listing transport failure")

	// ErrMalformedAnswer is returned when the response body cannot be decoded.
	ErrMalformedAnswer = errors.New("malformed listing answer")

	// ErrInvalidURL is returned when a source is configured without a usable URL.
	ErrInvalidURL = errors.New("listing URL must be an absolute http(s) URL")
)

// SourceError is a failure reported by the listing source itself: the request
// completed but the answer envelope says it failed.
type SourceError struct {
	// ParentID is the parent whose children were requested.
	ParentID int64

	// Status is the envelope status as sent by the source.
	Status string

	// Code is the source's error code, possibly empty.
	Code string

	// Message is the source's human-readable error message, possibly empty.
	Message string
}

func (e *SourceError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("listing source error for parent %d: %s: %s", e.ParentID, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("listing source error for parent %d: %s", e.ParentID, e.Code)
	case e.Message != "":
		return fmt.Sprintf("listing source error for parent %d: %s", e.ParentID, e.Message)
	default:
		return fmt.Sprintf("listing source error for parent %d: status %q", e.ParentID, e.Status)
	}
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsSourceError reports whether err carries a source-reported failure.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
