// Package render provides headless dyntree render surfaces and draws their
// contents as text trees.
package render

import (
	"sync"

	"github.com/SkLight/dyntree/internal/dyntree"
)

// MemorySurface keeps the mounted tree in memory. It implements
// dyntree.RenderSurface and dyntree.EndpointMarker and is safe for
// concurrent use.
type MemorySurface struct {
	mu        sync.RWMutex
	children  map[dyntree.Handle][]dyntree.Entry
	busy      map[dyntree.Handle]bool
	endpoints map[dyntree.Handle]bool
	onChange  func()
	version   uint64
}

// SurfaceOption configures a MemorySurface.
type SurfaceOption func(*MemorySurface)

// WithOnChange registers fn to run after every change. fn runs while the
// widget controller holds its lock, so it must not block or call back into
// the widget.
func WithOnChange(fn func()) SurfaceOption {
	return func(s *MemorySurface) {
		s.onChange = fn
	}
}

// NewMemorySurface returns an empty surface.
func NewMemorySurface(opts ...SurfaceOption) *MemorySurface {
	s := &MemorySurface{
		children:  make(map[dyntree.Handle][]dyntree.Entry),
		busy:      make(map[dyntree.Handle]bool),
		endpoints: make(map[dyntree.Handle]bool),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Mount implements dyntree.RenderSurface.
func (s *MemorySurface) Mount(parent dyntree.Handle, entries []dyntree.Entry) {
	owned := make([]dyntree.Entry, len(entries))
	copy(owned, entries)
	s.change(func() {
		s.children[parent] = owned
	})
}

// Unmount implements dyntree.RenderSurface.
func (s *MemorySurface) Unmount(node dyntree.Handle) {
	s.change(func() {
		s.drop(node)
	})
}

// ShowBusy implements dyntree.RenderSurface.
func (s *MemorySurface) ShowBusy(parent dyntree.Handle) {
	s.change(func() {
		s.busy[parent] = true
	})
}

// HideBusy implements dyntree.RenderSurface.
func (s *MemorySurface) HideBusy(parent dyntree.Handle) {
	s.change(func() {
		delete(s.busy, parent)
	})
}

// MarkEndpoint implements dyntree.EndpointMarker.
func (s *MemorySurface) MarkEndpoint(node dyntree.Handle) {
	s.change(func() {
		s.endpoints[node] = true
	})
}

// Children returns the entries mounted under h and whether h is unfolded.
func (s *MemorySurface) Children(h dyntree.Handle) ([]dyntree.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.children[h]
	if !ok {
		return nil, false
	}
	out := make([]dyntree.Entry, len(entries))
	for i, e := range entries {
		out[i] = s.classify(e)
	}
	return out, true
}

// Busy reports whether a waiting indicator is shown under h.
func (s *MemorySurface) Busy(h dyntree.Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy[h]
}

// Version increases with every change.
func (s *MemorySurface) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *MemorySurface) change(fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange()
	}
}

// drop removes everything mounted beneath node. Caller holds mu.
func (s *MemorySurface) drop(node dyntree.Handle) {
	entries := s.children[node]
	delete(s.children, node)
	for _, e := range entries {
		if e.Handle() != node {
			s.drop(e.Handle())
		}
		delete(s.busy, e.Handle())
	}
}

// classify applies late endpoint marks. Caller holds mu.
func (s *MemorySurface) classify(e dyntree.Entry) dyntree.Entry {
	if s.endpoints[e.Handle()] {
		e.Endpoint = true
	}
	return e
}
