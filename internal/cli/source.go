package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/SkLight/dyntree/internal/cache"
	"github.com/SkLight/dyntree/internal/config"
	"github.com/SkLight/dyntree/internal/dyntree"
	"github.com/SkLight/dyntree/internal/fixture"
	"github.com/SkLight/dyntree/internal/i18n"
	"github.com/SkLight/dyntree/internal/listing"
	"github.com/SkLight/dyntree/internal/logging"
)

// errNoSource is returned when neither a URL nor a fixture is given.
var errNoSource = errors.New("no listing source: set --url, source.url, DYNTREE_SOURCE_URL or --fixture")

// openStore opens the on-disk listing cache described by cfg. A disabled
// cache yields a disabled store.
func openStore(cfg *config.Config) (*cache.FileStore, error) {
	if !cfg.Cache.Enabled {
		return cache.NewFileStore("", false, 0, 0)
	}
	dir, err := cfg.CacheDirectory()
	if err != nil {
		return nil, err
	}
	return cache.NewFileStore(dir, true, cfg.Cache.TTLSeconds, cfg.Cache.MaxSizeMB)
}

// buildSource returns the listing source for a command: the fixture file when
// fixturePath is set, otherwise the configured HTTP endpoint behind the disk
// cache.
func buildSource(ctx context.Context, cfg *config.Config, fixturePath string) (listing.Source, error) {
	log := logging.FromContext(ctx)

	if fixturePath != "" {
		tree, err := fixture.Load(fixturePath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("fixture", fixturePath).Int("nodes", tree.Len()).Msg("using fixture source")
		return tree.Source(), nil
	}

	if cfg.Source.URL == "" {
		return nil, errNoSource
	}
	httpSrc, err := listing.NewHTTPSource(cfg.Source.URL,
		listing.WithTimeout(cfg.Source.Timeout),
		listing.WithLogger(*log),
	)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("disk cache unavailable, fetching every listing")
		return httpSrc, nil
	}
	return listing.NewCachedSource(httpSrc, store, httpSrc.URL(), *log), nil
}

// newWidget creates a widget for cfg logging through the context logger.
func newWidget(
	ctx context.Context,
	cfg *config.Config,
	src listing.Source,
	surface dyntree.RenderSurface,
	log zerolog.Logger,
) (*dyntree.Widget, error) {
	w, err := dyntree.New("", cfg.Widget, src, surface, dyntree.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("creating widget: %w", err)
	}
	logging.FromContext(ctx).Debug().Str("widget_id", w.ID()).Msg("widget created")
	return w, nil
}

// printerFor returns the message printer for the configured language.
func printerFor(cfg *config.Config) *i18n.Printer {
	return i18n.New(i18n.Detect(cfg.UI.Language))
}
