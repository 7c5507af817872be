package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SkLight/dyntree/internal/config"
	"github.com/SkLight/dyntree/internal/dyntree"
	"github.com/SkLight/dyntree/internal/i18n"
	"github.com/SkLight/dyntree/internal/logging"
	"github.com/SkLight/dyntree/internal/render"
)

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
)

type printOptions struct {
	depth   int
	fixture string
	output  string
	ids     bool
	codes   bool
	title   string
}

// newPrintCmd creates the print command, which expands a tree to a fixed
// depth through a headless widget and prints it.
func newPrintCmd() *cobra.Command {
	var opts printOptions
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Expand a tree to a fixed depth and print it",
		Long: `Expands the tree level by level, the way a user unfolding every item would,
and prints what was mounted. Items whose children failed to load are listed
after the tree; the remaining branches are still printed.`,
		Example: `  dyntree print --url http://localhost:8080/ --depth 2
  dyntree print --fixture tree.yaml --depth 3 --ids --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrint(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.depth, "depth", "d", 1, "number of levels to unfold, counting the top level")
	f.StringVar(&opts.fixture, "fixture", "", "read the tree from a fixture file instead of --url")
	f.StringVarP(&opts.output, "output", "o", formatText, "output format: text or json")
	f.BoolVar(&opts.ids, "ids", false, "show node ids")
	f.BoolVar(&opts.codes, "codes", false, "show node codes")
	f.StringVar(&opts.title, "title", "", "label of the tree root")

	return cmd
}

func runPrint(cmd *cobra.Command, opts printOptions) error {
	if opts.depth < 1 {
		return fmt.Errorf("--depth must be >= 1, got %d", opts.depth)
	}
	if opts.output != formatText && opts.output != formatJSON {
		return fmt.Errorf("unsupported output format %q", opts.output)
	}

	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()
	src, err := buildSource(ctx, cfg, opts.fixture)
	if err != nil {
		return err
	}

	surface := render.NewMemorySurface()
	w, err := newWidget(ctx, cfg, src, surface, logging.ComponentLogger(*logging.FromContext(ctx), "dyntree"))
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err = w.Init(ctx); err != nil {
		return err
	}
	failures, err := unfold(ctx, w, surface, opts.depth, cfg.Widget)
	if err != nil {
		return err
	}
	if err = w.Wait(ctx); err != nil {
		return err
	}

	printer := printerFor(cfg)
	if opts.output == formatJSON {
		return writeJSON(cmd.OutOrStdout(), surface, failures, w.Stats())
	}
	return writeText(cmd.OutOrStdout(), surface, failures, w.Stats(), printer, opts)
}

// unfoldFailure records an item whose children could not be loaded.
type unfoldFailure struct {
	Entry dyntree.Entry
	Err   error
}

// unfold expands every mounted, non-endpoint item level by level until depth
// levels are shown. Failed items stay folded and are returned; they do not
// stop the other branches.
func unfold(
	ctx context.Context,
	w *dyntree.Widget,
	surface *render.MemorySurface,
	depth int,
	opts dyntree.Options,
) ([]unfoldFailure, error) {
	var (
		mu       sync.Mutex
		failures []unfoldFailure
	)

	frontier, _ := surface.Children(dyntree.RootHandle)
	for level := 1; level < depth && len(frontier) > 0; level++ {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(opts.PrefetchConcurrency, dyntree.DefaultPrefetchConcurrency))

		for _, e := range frontier {
			if e.Endpoint {
				continue
			}
			g.Go(func() error {
				err := w.Expand(gctx, e.Handle())
				switch {
				case err == nil, errors.Is(err, dyntree.ErrEndpoint):
					return nil
				case gctx.Err() != nil:
					return gctx.Err()
				}
				mu.Lock()
				failures = append(failures, unfoldFailure{Entry: e, Err: err})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []dyntree.Entry
		for _, e := range frontier {
			if children, ok := surface.Children(e.Handle()); ok {
				next = append(next, children...)
			}
		}
		frontier = next
	}
	return failures, nil
}

func writeText(
	out io.Writer,
	surface *render.MemorySurface,
	failures []unfoldFailure,
	st dyntree.Stats,
	printer *i18n.Printer,
	opts printOptions,
) error {
	var b strings.Builder
	b.WriteString(render.Tree(surface, render.TreeOptions{
		Title:     opts.title,
		Loading:   printer.Loading(),
		ShowCodes: opts.codes,
		ShowIDs:   opts.ids,
	}))
	b.WriteString("\n")

	for _, f := range failures {
		fmt.Fprintf(&b, "%s: %s\n", f.Entry.Label(), printer.Sprintf(i18n.KeyLoadFailed, f.Err))
	}

	parts := []string{
		printer.Sprintf(i18n.KeyListings, st.Cached),
		printer.Sprintf(i18n.KeyRequests, st.Fetches),
	}
	if st.Failures > 0 {
		parts = append(parts, printer.Sprintf(i18n.KeyFailures, st.Failures))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString("\n")

	_, err := io.WriteString(out, b.String())
	return err
}

// printedNode is one item of the JSON output.
type printedNode struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Code     string        `json:"code,omitempty"`
	Endpoint bool          `json:"endpoint,omitempty"`
	Children []printedNode `json:"children,omitempty"`
}

type printedFailure struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

type printedTree struct {
	Nodes    []printedNode    `json:"nodes"`
	Failures []printedFailure `json:"failures,omitempty"`
	Stats    dyntree.Stats    `json:"stats"`
}

func writeJSON(out io.Writer, surface *render.MemorySurface, failures []unfoldFailure, st dyntree.Stats) error {
	doc := printedTree{
		Nodes: collect(surface, dyntree.RootHandle, make(map[dyntree.Handle]bool)),
		Stats: st,
	}
	for _, f := range failures {
		doc.Failures = append(doc.Failures, printedFailure{
			ID:    f.Entry.Node.ID,
			Name:  f.Entry.Node.Name,
			Error: f.Err.Error(),
		})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func collect(surface *render.MemorySurface, parent dyntree.Handle, seen map[dyntree.Handle]bool) []printedNode {
	entries, _ := surface.Children(parent)
	seen[parent] = true
	nodes := make([]printedNode, 0, len(entries))
	for _, e := range entries {
		n := printedNode{
			ID:       e.Node.ID,
			Name:     e.Node.Name,
			Code:     e.Node.Code,
			Endpoint: e.Endpoint,
		}
		if !seen[e.Handle()] {
			n.Children = collect(surface, e.Handle(), seen)
		}
		nodes = append(nodes, n)
	}
	return nodes
}
