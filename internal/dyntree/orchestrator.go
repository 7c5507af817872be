package dyntree

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/SkLight/dyntree/internal/batch"
	"github.com/SkLight/dyntree/internal/listing"
)

// Orchestrator resolves the children of a node from the widget cache or the
// listing source and prefetches descendants in the background.
//
// Source calls run on the widget lifetime context, not on the caller's: a
// caller that stops waiting does not abort a fetch other callers may share,
// and the result still lands in the cache.
type Orchestrator struct {
	state    *State
	source   listing.Source
	lifetime context.Context
	bg       *tracker
	logger   zerolog.Logger
}

// NewOrchestrator creates an orchestrator. lifetime bounds every source call
// and every background goroutine it starts.
func NewOrchestrator(
	lifetime context.Context,
	state *State,
	source listing.Source,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		state:    state,
		source:   source,
		lifetime: lifetime,
		bg:       newTracker(),
		logger:   logger,
	}
}

// State returns the cache the orchestrator writes to.
func (o *Orchestrator) State() *State {
	return o.state
}

// GetChildren returns the listing of parentID. A cached listing is returned
// immediately without touching the source. Otherwise the children are
// fetched, stored and, when Options.CacheDepth > 0, their descendants are
// prefetched in the background.
//
// isRoot marks the initial root expansion. It does not change caching; the
// controller mounts root listings as soon as they arrive.
//
// A failed fetch returns a *FetchError and leaves the cache untouched, so the
// next call retries.
func (o *Orchestrator) GetChildren(ctx context.Context, parentID int64, isRoot bool) (listing.Listing, error) {
	if l, ok := o.state.Lookup(parentID); ok {
		return l, nil
	}
	if isRoot {
		o.logger.Debug().Msg("fetching root listing")
	}
	return o.await(ctx, parentID, 0)
}

// IsEndpoint reports whether id is cached with an empty listing.
func (o *Orchestrator) IsEndpoint(id int64) bool {
	return o.state.IsEndpoint(id)
}

// Wait blocks until background prefetch and probe work has settled or ctx is
// done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	return o.bg.wait(ctx)
}

// Pending returns the number of running background goroutines.
func (o *Orchestrator) Pending() int {
	return o.bg.pending()
}

// shutdown refuses new background work and waits for running work to stop.
// The lifetime context must already be cancelled.
func (o *Orchestrator) shutdown() {
	o.bg.close()
	_ = o.bg.wait(context.Background())
}

type loadResult struct {
	listing listing.Listing
	err     error
}

// await runs the shared fetch of parentID on a tracked goroutine and waits
// for it or for ctx, whichever comes first.
func (o *Orchestrator) await(ctx context.Context, parentID int64, depth int) (listing.Listing, error) {
	if !o.bg.add() {
		return nil, ErrClosed
	}

	done := make(chan loadResult, 1)
	go func() {
		defer o.bg.done()
		l, err := o.load(parentID, depth)
		done <- loadResult{listing: l, err: err}
	}()

	select {
	case res := <-done:
		return res.listing, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// noWalk marks a flight that started no prefetch below its listing.
const noWalk = math.MaxInt

// flight is the shared result of one fetch. walkedFrom is the depth the
// fetch prefetched from, or noWalk.
type flight struct {
	listing    listing.Listing
	walkedFrom int
}

// load joins or starts the single fetch of parentID. depth is the prefetch
// level of the request. A request that joins a flight walked from a deeper
// level, or one that walked nothing, prefetches below the listing itself, so
// every caller gets the full CacheDepth below its own level. Cached
// descendants are only walked, never refetched.
func (o *Orchestrator) load(parentID int64, depth int) (listing.Listing, error) {
	v, err, shared := o.state.inflight.Do(listing.FormatID(parentID), func() (any, error) {
		return o.fetch(parentID, depth)
	})
	if shared {
		o.state.shared.Add(1)
	}
	if err != nil {
		return nil, err
	}
	f := v.(flight) //nolint:forcetypeassert // fetch only returns flights
	if depth < f.walkedFrom && o.state.opts.CacheDepth > depth {
		o.prefetchChildren(f.listing, depth+1)
	}
	return f.listing, nil
}

func (o *Orchestrator) fetch(parentID int64, depth int) (flight, error) {
	// A fetch for the same id may have completed between the caller's
	// lookup and this flight starting.
	if l, ok := o.state.Lookup(parentID); ok {
		return flight{listing: l, walkedFrom: noWalk}, nil
	}
	if err := o.lifetime.Err(); err != nil {
		return flight{}, ErrClosed
	}

	start := time.Now()
	o.state.fetches.Add(1)
	l, err := o.source.List(o.lifetime, parentID)
	if err != nil {
		o.state.failures.Add(1)
		if o.lifetime.Err() == nil {
			o.logger.Warn().
				Err(err).
				Int64("parent_id", parentID).
				Int("depth", depth).
				Dur("elapsed", time.Since(start)).
				Msg("failed to fetch children")
		}
		return flight{}, &FetchError{ParentID: parentID, Err: err}
	}

	stored := o.state.store(parentID, l)
	o.logger.Debug().
		Int64("parent_id", parentID).
		Int("depth", depth).
		Int("children", len(stored)).
		Dur("elapsed", time.Since(start)).
		Msg("children fetched")

	if o.state.opts.CacheDepth > depth {
		o.prefetchChildren(stored, depth+1)
		return flight{listing: stored, walkedFrom: depth}, nil
	}
	return flight{listing: stored, walkedFrom: noWalk}, nil
}

// prefetchChildren fetches the children of every node in nodes in the
// background. Nothing is rendered. A failure for one node never stops the
// others.
func (o *Orchestrator) prefetchChildren(nodes listing.Listing, depth int) {
	if len(nodes) == 0 {
		return
	}
	o.background(nodes, "prefetch", func(n listing.Node) error {
		return o.prefetch(n.ID, depth)
	})
}

// prefetch makes sure id is cached. An id that is already cached is not
// fetched again, but its own children are still walked while depth allows.
func (o *Orchestrator) prefetch(id int64, depth int) error {
	if l, ok := o.state.Lookup(id); ok {
		if o.state.opts.CacheDepth > depth {
			o.prefetchChildren(l, depth+1)
		}
		return nil
	}
	_, err := o.load(id, depth)
	return err
}

// probe fetches the children of each node without prefetching below them and
// reports every listing that arrives. Used to discover endpoints among
// freshly mounted entries.
func (o *Orchestrator) probe(nodes listing.Listing, found func(id int64, l listing.Listing)) {
	if len(nodes) == 0 {
		return
	}
	depth := o.state.opts.CacheDepth
	o.background(nodes, "probe", func(n listing.Node) error {
		l, ok := o.state.Lookup(n.ID)
		if !ok {
			var err error
			if l, err = o.load(n.ID, depth); err != nil {
				return err
			}
		}
		found(n.ID, l)
		return nil
	})
}

// background runs fn for every node on a tracked goroutine with at most
// Options.PrefetchConcurrency calls in flight. Settled nodes are counted in
// Stats.Background as they finish.
func (o *Orchestrator) background(nodes listing.Listing, kind string, fn func(listing.Node) error) {
	if !o.bg.add() {
		return
	}
	go func() {
		defer o.bg.done()

		p := batch.NewProcessorWithDefaults[listing.Node]().WithProgressCallback(func(s batch.ProgressSnapshot) {
			o.state.background.Add(1)
			if s.Complete {
				o.logger.Trace().
					Str("kind", kind).
					Int("nodes", s.TotalItems).
					Int("failed", s.FailedBatches).
					Dur("elapsed", s.ElapsedTime).
					Msg("background fetch settled")
			}
		})

		err := p.ProcessConcurrent(o.lifetime, nodes, func(_ context.Context, items []listing.Node, _ int) error {
			var errs []error
			for _, n := range items {
				if err := fn(n); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}, o.state.opts.concurrency())

		if err != nil && o.lifetime.Err() == nil {
			o.logger.Debug().
				Err(err).
				Str("kind", kind).
				Int("nodes", len(nodes)).
				Msg("background fetch incomplete")
		}
	}()
}
