package dyntree

import (
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/SkLight/dyntree/internal/listing"
)

// State is the per-widget cache of fetched listings together with the
// widget's options. A parent id is present iff its children were fetched
// successfully at least once; entries are never evicted.
//
// State is safe for concurrent use.
type State struct {
	opts Options

	mu       sync.RWMutex
	listings map[int64]listing.Listing

	// inflight shares one outstanding fetch between concurrent requests for
	// the same parent id.
	inflight singleflight.Group

	fetches    atomic.Int64
	failures   atomic.Int64
	shared     atomic.Int64
	background atomic.Int64
}

// Stats is a point-in-time summary of a widget's cache and fetch activity.
type Stats struct {
	// Cached is the number of parent ids with a known listing.
	Cached int `json:"cached"`
	// Endpoints is the number of cached listings that are empty.
	Endpoints int `json:"endpoints"`
	// Nodes is the total number of nodes across cached listings.
	Nodes int `json:"nodes"`
	// Fetches counts source calls, successful or not.
	Fetches int64 `json:"fetches"`
	// Failures counts failed source calls.
	Failures int64 `json:"failures"`
	// Shared counts requests that joined an in-flight fetch.
	Shared int64 `json:"shared"`
	// Background counts nodes whose background prefetch or endpoint check
	// has settled, successfully or not.
	Background int64 `json:"background"`
}

// NewState returns an empty cache bound to opts.
func NewState(opts Options) *State {
	return &State{
		opts:     opts,
		listings: make(map[int64]listing.Listing),
	}
}

// Options returns the configuration the state was created with.
func (s *State) Options() Options {
	return s.opts
}

// Lookup returns the cached listing for parentID. The returned listing is
// shared with the cache and must not be modified.
func (s *State) Lookup(parentID int64) (listing.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[parentID]
	return l, ok
}

// Has reports whether the children of parentID are known.
func (s *State) Has(parentID int64) bool {
	_, ok := s.Lookup(parentID)
	return ok
}

// IsEndpoint reports whether id is known to have no children.
// Ids whose children were never fetched are not endpoints.
func (s *State) IsEndpoint(id int64) bool {
	l, ok := s.Lookup(id)
	return ok && len(l) == 0
}

// Len returns the number of cached parent ids.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// IDs returns the cached parent ids in ascending order.
func (s *State) IDs() []int64 {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.listings))
	for id := range s.listings {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Stats returns the current counters.
func (s *State) Stats() Stats {
	s.mu.RLock()
	st := Stats{Cached: len(s.listings)}
	for _, l := range s.listings {
		if len(l) == 0 {
			st.Endpoints++
		}
		st.Nodes += len(l)
	}
	s.mu.RUnlock()

	st.Fetches = s.fetches.Load()
	st.Failures = s.failures.Load()
	st.Shared = s.shared.Load()
	st.Background = s.background.Load()
	return st
}

// store records a successful fetch. The cache keeps its own copy so later
// changes to l by the source are not visible.
func (s *State) store(parentID int64, l listing.Listing) listing.Listing {
	owned := l.Clone()
	s.mu.Lock()
	s.listings[parentID] = owned
	s.mu.Unlock()
	return owned
}
