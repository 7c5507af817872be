package dyntree

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/SkLight/dyntree/internal/listing"
)

// Widget is one tree instance: its own cache, orchestrator and controller.
// Widgets never share state, so any number of them can run side by side.
type Widget struct {
	id     string
	state  *State
	orch   *Orchestrator
	ctrl   *Controller
	logger zerolog.Logger

	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
}

type widgetConfig struct {
	logger zerolog.Logger
}

// Option customises a widget at construction.
type Option func(*widgetConfig)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *widgetConfig) {
		c.logger = l
	}
}

// New creates a widget bound to opts, which are read-only afterwards. An
// empty id is replaced with a fresh ULID. Nothing is fetched until Init.
func New(id string, opts Options, source listing.Source, surface RenderSurface, options ...Option) (*Widget, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if surface == nil {
		return nil, ErrNilSurface
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cfg := widgetConfig{logger: zerolog.Nop()}
	for _, o := range options {
		o(&cfg)
	}

	if id == "" {
		id = ulid.Make().String()
	}
	logger := cfg.logger.With().
		Str("component", "dyntree").
		Str("widget_id", id).
		Logger()

	lifetime, cancel := context.WithCancel(context.Background())
	state := NewState(opts)
	orch := NewOrchestrator(lifetime, state, source, logger)

	return &Widget{
		id:     id,
		state:  state,
		orch:   orch,
		ctrl:   NewController(orch, surface, logger),
		logger: logger,
		cancel: cancel,
	}, nil
}

// InitWidget creates a widget and performs the root expansion. On a failed
// root fetch the widget is returned together with the error so the caller
// can retry Init.
func InitWidget(
	ctx context.Context,
	id string,
	opts Options,
	source listing.Source,
	surface RenderSurface,
	options ...Option,
) (*Widget, error) {
	w, err := New(id, opts, source, surface, options...)
	if err != nil {
		return nil, err
	}
	return w, w.Init(ctx)
}

// ID returns the widget id.
func (w *Widget) ID() string {
	return w.id
}

// Options returns the widget configuration.
func (w *Widget) Options() Options {
	return w.state.Options()
}

// Init fetches the root listing and mounts it.
func (w *Widget) Init(ctx context.Context) error {
	if w.closed.Load() {
		return ErrClosed
	}
	w.logger.Debug().
		Int("cache_depth", w.state.opts.CacheDepth).
		Bool("show_waiting_message", w.state.opts.ShowWaitingMessage).
		Msg("initialising widget")
	return w.ctrl.Init(ctx)
}

// Expand unfolds the node behind h. See Controller.Expand.
func (w *Widget) Expand(ctx context.Context, h Handle) error {
	if w.closed.Load() {
		return ErrClosed
	}
	return w.ctrl.Expand(ctx, h)
}

// Collapse folds the node behind h. See Controller.Collapse.
func (w *Widget) Collapse(h Handle) {
	w.ctrl.Collapse(h)
}

// Toggle expands a folded node and collapses an unfolded one.
func (w *Widget) Toggle(ctx context.Context, h Handle) error {
	if w.closed.Load() {
		return ErrClosed
	}
	return w.ctrl.Toggle(ctx, h)
}

// IsUnfolded reports whether h is unfolded.
func (w *Widget) IsUnfolded(h Handle) bool {
	return w.ctrl.IsUnfolded(h)
}

// GetChildren resolves the children of parentID without rendering them.
func (w *Widget) GetChildren(ctx context.Context, parentID int64) (listing.Listing, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}
	return w.orch.GetChildren(ctx, parentID, false)
}

// Cached returns the cached children of parentID.
func (w *Widget) Cached(parentID int64) (listing.Listing, bool) {
	return w.state.Lookup(parentID)
}

// IsEndpoint reports whether id is known to have no children.
func (w *Widget) IsEndpoint(id int64) bool {
	return w.state.IsEndpoint(id)
}

// Stats returns cache and fetch counters.
func (w *Widget) Stats() Stats {
	return w.state.Stats()
}

// State exposes the widget cache for read access.
func (w *Widget) State() *State {
	return w.state
}

// Wait blocks until background prefetch and probes have finished or ctx is
// done.
func (w *Widget) Wait(ctx context.Context) error {
	return w.orch.Wait(ctx)
}

// Close cancels in-flight fetches and waits for every background goroutine
// to return. The cache stays readable; gestures fail with ErrClosed.
func (w *Widget) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.cancel()
		w.orch.shutdown()
		st := w.state.Stats()
		w.logger.Debug().
			Int("cached", st.Cached).
			Int64("fetches", st.Fetches).
			Int64("failures", st.Failures).
			Msg("widget closed")
	})
	return nil
}
