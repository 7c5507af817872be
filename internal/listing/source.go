package listing

import "context"

// Source lists the children of a parent node.
//
// Implementations must be safe for concurrent use: the orchestrator issues
// prefetch requests for siblings in parallel. parentID is RootID for the
// top-level request.
type Source interface {
	List(ctx context.Context, parentID int64) (Listing, error)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc func(ctx context.Context, parentID int64) (Listing, error)

// List calls f(ctx, parentID).
func (f SourceFunc) List(ctx context.Context, parentID int64) (Listing, error) {
	return f(ctx, parentID)
}
