package dyntree

import (
	"fmt"
)

// DefaultPrefetchConcurrency bounds the number of parallel prefetch requests
// per listing when Options.PrefetchConcurrency is not set.
const DefaultPrefetchConcurrency = 4

// MaxCacheDepth caps eager prefetch. Every extra level multiplies the number
// of requests by the fan-out of the tree.
const MaxCacheDepth = 16

// Options is the per-widget configuration. It is fixed when the widget is
// created. The zero value is the empty configuration: no waiting indicator,
// no prefetch below the requested level.
type Options struct {
	// ShowWaitingMessage shows a busy indicator under a node while its
	// children are being fetched.
	ShowWaitingMessage bool `json:"showWaitingMessage" yaml:"show_waiting_message"`

	// CacheDepth is how many levels below a fetched listing are prefetched
	// in the background. 0 disables prefetch.
	CacheDepth int `json:"cacheDepth" yaml:"cache_depth"`

	// ProbeEndpoints fetches, without rendering, the children of every
	// mounted entry whose children are still unknown, so endpoints can be
	// marked without a user gesture.
	ProbeEndpoints bool `json:"probeEndpoints" yaml:"probe_endpoints"`

	// PrefetchConcurrency bounds parallel background requests per listing.
	// Values below 1 mean DefaultPrefetchConcurrency.
	PrefetchConcurrency int `json:"prefetchConcurrency" yaml:"prefetch_concurrency"`
}

// Validate reports option values the widget cannot honour.
func (o Options) Validate() error {
	if o.CacheDepth < 0 {
		return fmt.Errorf("%w: cache depth must be >= 0, got %d", ErrInvalidOptions, o.CacheDepth)
	}
	if o.CacheDepth > MaxCacheDepth {
		return fmt.Errorf("%w: cache depth must be <= %d, got %d", ErrInvalidOptions, MaxCacheDepth, o.CacheDepth)
	}
	return nil
}

// concurrency returns the effective prefetch concurrency.
func (o Options) concurrency() int {
	if o.PrefetchConcurrency < 1 {
		return DefaultPrefetchConcurrency
	}
	return o.PrefetchConcurrency
}
