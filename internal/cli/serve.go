package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SkLight/dyntree/internal/fixture"
	"github.com/SkLight/dyntree/internal/logging"
)

const (
	defaultServeAddr  = "127.0.0.1:8080"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// newServeCmd creates the serve command, which answers listing requests from
// a fixture tree.
func newServeCmd() *cobra.Command {
	var (
		addr        string
		fixturePath string
		generate    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a fixture tree over the listing protocol",
		Long: `Serves GET /?parent=<id> from a YAML fixture, or from a generated tree of the
given depth and fan-out. Fixtures can add latency and failures per node, which
makes the server useful for trying out waiting indicators and failure handling.`,
		Example: `  dyntree serve --fixture tree.yaml
  dyntree serve --generate 4,10 --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := serveTree(fixturePath, generate)
			if err != nil {
				return err
			}
			return serve(cmd, addr, tree)
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", defaultServeAddr, "listen address")
	f.StringVar(&fixturePath, "fixture", "", "fixture file to serve")
	f.StringVar(&generate, "generate", "", "serve a generated tree: depth,fanout")
	cmd.MarkFlagsMutuallyExclusive("fixture", "generate")
	cmd.MarkFlagsOneRequired("fixture", "generate")

	return cmd
}

func serveTree(fixturePath, generate string) (*fixture.Tree, error) {
	if fixturePath != "" {
		return fixture.Load(fixturePath)
	}
	depth, fanout, err := parseShape(generate)
	if err != nil {
		return nil, err
	}
	return fixture.Generate(depth, fanout), nil
}

// parseShape parses "depth,fanout".
func parseShape(s string) (int, int, error) {
	rawDepth, rawFanout, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("--generate must be depth,fanout, got %q", s)
	}
	depth, err := strconv.Atoi(strings.TrimSpace(rawDepth))
	if err != nil || depth < 1 {
		return 0, 0, fmt.Errorf("--generate depth must be a positive integer, got %q", rawDepth)
	}
	fanout, err := strconv.Atoi(strings.TrimSpace(rawFanout))
	if err != nil || fanout < 1 {
		return 0, 0, fmt.Errorf("--generate fanout must be a positive integer, got %q", rawFanout)
	}
	return depth, fanout, nil
}

func serve(cmd *cobra.Command, addr string, tree *fixture.Tree) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           fixture.NewHandler(tree, *log),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	cmd.Printf("Serving %d nodes on http://%s/\n", tree.Len(), ln.Addr())
	log.Info().Ctx(ctx).Str("addr", ln.Addr().String()).Int("nodes", tree.Len()).Msg("fixture server started")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	log.Info().Ctx(ctx).Msg("fixture server stopped")
	return nil
}
