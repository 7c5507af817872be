// Package dyntree implements a lazily expanded tree widget whose children are
// fetched on demand from a listing source and cached per widget.
//
// A Widget is made of three parts:
//   - State: the per-widget cache (parent id -> listing) and options. An id is
//     cached only after its children were fetched successfully; an empty
//     cached listing marks an endpoint.
//   - Orchestrator: decides whether a fetch is needed, shares in-flight
//     fetches between callers and prefetches descendants up to
//     Options.CacheDepth levels in the background.
//   - Controller: turns expand/collapse gestures into RenderSurface calls and
//     guards against rendering listings for nodes that were collapsed while
//     their fetch was in flight.
//
// The package never renders anything itself; a RenderSurface implementation
// (terminal UI, headless recorder, test double) does.
package dyntree
