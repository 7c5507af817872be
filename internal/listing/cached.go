package listing

import (
	"context"
	"errors"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/SkLight/dyntree/internal/cache"
)

// CachedSource serves listings from a persistent store and falls back to the
// wrapped source on a miss. Only successful listings are stored, so a failed
// fetch is retried on the next request.
type CachedSource struct {
	next   Source
	store  *cache.FileStore
	scope  string
	logger zerolog.Logger
}

// NewCachedSource wraps next with store. scope identifies the endpoint in
// cache keys, normally the endpoint URL. A nil or disabled store makes the
// wrapper a pass-through.
func NewCachedSource(next Source, store *cache.FileStore, scope string, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		next:   next,
		store:  store,
		scope:  scope,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// List implements Source.
func (c *CachedSource) List(ctx context.Context, parentID int64) (Listing, error) {
	if c.store == nil || !c.store.IsEnabled() {
		return c.next.List(ctx, parentID)
	}

	key := cache.ListingKey(c.scope, parentID)
	if l, ok := c.lookup(key, parentID); ok {
		return l, nil
	}

	l, err := c.next.List(ctx, parentID)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(l); marshalErr == nil {
		if setErr := c.store.Set(key, data); setErr != nil {
			c.logger.Warn().Err(setErr).Int64("parent_id", parentID).Msg("failed to persist listing")
		}
	}
	return l, nil
}

func (c *CachedSource) lookup(key string, parentID int64) (Listing, bool) {
	entry, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) && !errors.Is(err, cache.ErrExpired) {
			c.logger.Debug().Err(err).Int64("parent_id", parentID).Msg("unreadable cache entry, refetching")
			c.discard(key, parentID)
		}
		return nil, false
	}

	var l Listing
	if err := json.Unmarshal(entry.Data, &l); err != nil {
		c.logger.Debug().Err(err).Int64("parent_id", parentID).Msg("undecodable cache entry, refetching")
		c.discard(key, parentID)
		return nil, false
	}
	if l == nil {
		l = Listing{}
	}

	c.logger.Debug().
		Int64("parent_id", parentID).
		Dur("age", entry.Age()).
		Msg("listing served from disk cache")
	return l, true
}

// discard removes a broken entry so it is not read again when the refetch
// fails.
func (c *CachedSource) discard(key string, parentID int64) {
	if err := c.store.Delete(key); err != nil {
		c.logger.Warn().Err(err).Int64("parent_id", parentID).Msg("failed to remove broken cache entry")
	}
}
