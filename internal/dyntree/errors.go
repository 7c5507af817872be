package dyntree

import (
	"errors"
	"fmt"
)

// Common widget errors.
var (
	// ErrInvalidOptions is wrapped by Options.Validate failures.
	ErrInvalidOptions = errors.New("invalid widget options")

	// ErrEndpoint is returned by Expand for a node known to have no children.
	ErrEndpoint = errors.New("node has no children")

	// ErrNotMounted is returned by Expand for a handle that is not rendered.
	ErrNotMounted = errors.New("node is not mounted")

	// ErrClosed is returned by operations on a closed widget.
	ErrClosed = errors.New("widget is closed")

	// ErrNilSource and ErrNilSurface reject incomplete widget construction.
	ErrNilSource  = errors.New("listing source cannot be nil")
	ErrNilSurface = errors.New("render surface cannot be nil")
)

// FetchError reports a failed fetch of the children of ParentID. The cache
// entry for ParentID stays absent, so the next request retries.
type FetchError struct {
	ParentID int64
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching children of %d: %v", e.ParentID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
