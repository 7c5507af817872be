package dyntree

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/SkLight/dyntree/internal/listing"
)

// Controller turns expand and collapse gestures into RenderSurface calls.
//
// The only state it keeps is which nodes are unfolded and which ids it
// mounted beneath each of them; children always come from the orchestrator.
// Every unfolding gets a generation number. A listing that resolves after
// its node was collapsed, or collapsed and expanded again, belongs to an old
// generation and is dropped instead of rendered.
type Controller struct {
	orch    *Orchestrator
	surface RenderSurface
	opts    Options
	logger  zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	unfolded map[int64]uint64
	children map[int64][]int64
	parentOf map[int64]int64
}

// NewController creates a controller rendering through surface.
func NewController(orch *Orchestrator, surface RenderSurface, logger zerolog.Logger) *Controller {
	return &Controller{
		orch:     orch,
		surface:  surface,
		opts:     orch.State().Options(),
		logger:   logger,
		unfolded: make(map[int64]uint64),
		children: make(map[int64][]int64),
		parentOf: make(map[int64]int64),
	}
}

// Init performs the root expansion. The root listing is mounted as soon as
// it arrives, whatever the cache depth. Calling Init on an initialised
// controller is a no-op; after a failed Init it retries.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if _, ok := c.unfolded[listing.RootID]; ok {
		c.mu.Unlock()
		return nil
	}
	gen := c.unfold(listing.RootID)
	c.mu.Unlock()

	return c.show(ctx, listing.RootID, gen, true)
}

// Expand unfolds h and mounts its children, fetching them first when they
// are not cached. Cached children are mounted before Expand returns without
// a busy indicator.
//
// Expand returns ErrEndpoint for a node known to have no children and
// ErrNotMounted for a handle that is not currently rendered. Expanding an
// unfolded node is a no-op. When the fetch fails the node is folded again so
// a later gesture retries, and the *FetchError is returned.
func (c *Controller) Expand(ctx context.Context, h Handle) error {
	id := h.ID()
	if c.orch.IsEndpoint(id) {
		return ErrEndpoint
	}

	c.mu.Lock()
	if !c.isMounted(id) {
		c.mu.Unlock()
		return ErrNotMounted
	}
	if _, ok := c.unfolded[id]; ok {
		c.mu.Unlock()
		return nil
	}
	gen := c.unfold(id)
	c.mu.Unlock()

	return c.show(ctx, id, gen, false)
}

// Collapse folds h and unmounts everything beneath it. Fold state of every
// descendant is forgotten so re-expanding h shows its children folded. The
// cache is not touched. Collapsing the root or a folded node does nothing.
func (c *Controller) Collapse(h Handle) {
	id := h.ID()
	if h.IsRoot() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.unfolded[id]; !ok {
		return
	}
	c.forget(id)
	c.surface.Unmount(h)
}

// Toggle collapses an unfolded node and expands a folded one.
func (c *Controller) Toggle(ctx context.Context, h Handle) error {
	if c.IsUnfolded(h) && !h.IsRoot() {
		c.Collapse(h)
		return nil
	}
	return c.Expand(ctx, h)
}

// IsUnfolded reports whether h is unfolded, including while its children are
// still being fetched.
func (c *Controller) IsUnfolded(h Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.unfolded[h.ID()]
	return ok
}

// Mounted returns the ids currently mounted beneath h, in order.
func (c *Controller) Mounted(h Handle) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.children[h.ID()]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// show resolves the children of id and mounts them if generation gen is
// still current.
func (c *Controller) show(ctx context.Context, id int64, gen uint64, isRoot bool) error {
	h := Handle(id)

	l, cached := c.orch.State().Lookup(id)
	if !cached {
		busy := c.opts.ShowWaitingMessage && c.callIfCurrent(id, gen, func() { c.surface.ShowBusy(h) })

		var err error
		l, err = c.orch.GetChildren(ctx, id, isRoot)

		if busy {
			c.mu.Lock()
			c.surface.HideBusy(h)
			c.mu.Unlock()
		}

		if err != nil {
			c.mu.Lock()
			if c.unfolded[id] == gen {
				delete(c.unfolded, id)
			}
			c.mu.Unlock()
			return err
		}
	}

	c.mount(id, gen, l)
	return nil
}

// callIfCurrent runs fn under the lock when id is still unfolded in
// generation gen and reports whether it ran.
func (c *Controller) callIfCurrent(id int64, gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.unfolded[id]; !ok || g != gen {
		return false
	}
	fn()
	return true
}

func (c *Controller) mount(id int64, gen uint64, l listing.Listing) {
	entries := make([]Entry, len(l))
	ids := make([]int64, len(l))
	var unknown listing.Listing
	for i, n := range l {
		entries[i] = Entry{Node: n, Endpoint: c.orch.IsEndpoint(n.ID)}
		ids[i] = n.ID
		if !c.orch.State().Has(n.ID) {
			unknown = append(unknown, n)
		}
	}

	mounted := c.callIfCurrent(id, gen, func() {
		c.children[id] = ids
		for _, child := range ids {
			c.parentOf[child] = id
		}
		c.surface.Mount(Handle(id), entries)
	})
	if !mounted {
		c.logger.Debug().Int64("parent_id", id).Msg("dropping listing for collapsed node")
		return
	}

	if c.opts.ProbeEndpoints && len(unknown) > 0 {
		c.orch.probe(unknown, c.markEndpoint)
	}
}

// markEndpoint re-classifies a mounted entry whose probe returned no
// children.
func (c *Controller) markEndpoint(id int64, l listing.Listing) {
	if len(l) > 0 {
		return
	}
	marker, ok := c.surface.(EndpointMarker)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isMounted(id) {
		return
	}
	marker.MarkEndpoint(Handle(id))
}

// unfold marks id unfolded in a new generation. Caller holds c.mu.
func (c *Controller) unfold(id int64) uint64 {
	c.gen++
	c.unfolded[id] = c.gen
	return c.gen
}

// isMounted reports whether id is the root or a child currently rendered
// under an unfolded node. Caller holds c.mu.
func (c *Controller) isMounted(id int64) bool {
	if listing.IsRoot(id) {
		return true
	}
	parent, ok := c.parentOf[id]
	if !ok {
		return false
	}
	_, open := c.unfolded[parent]
	return open
}

// forget folds id and drops the state of every descendant. Caller holds c.mu.
func (c *Controller) forget(id int64) {
	delete(c.unfolded, id)
	kids := c.children[id]
	delete(c.children, id)
	for _, child := range kids {
		if c.parentOf[child] == id {
			delete(c.parentOf, child)
		}
		c.forget(child)
	}
}
