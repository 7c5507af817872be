package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/SkLight/dyntree/internal/config"
	"github.com/SkLight/dyntree/internal/logging"
	"github.com/SkLight/dyntree/internal/tui"
)

// newBrowseCmd creates the browse command, the interactive tree browser.
func newBrowseCmd() *cobra.Command {
	var (
		fixturePath string
		codes       bool
		title       string
		plain       bool
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a tree interactively",
		Long: `Opens a terminal browser over the tree. Items are fetched when they are
unfolded; with --cache-depth, levels below every fetched listing are loaded in
the background so unfolding them is instant.

Without a terminal the top level is printed instead.`,
		Example: `  dyntree browse --url http://localhost:8080/ --cache-depth 1 --waiting-message
  dyntree browse --fixture tree.yaml --codes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tui.DetectOutputMode(false, false, plain) != tui.OutputModeInteractive {
				return runPrint(cmd, printOptions{
					depth:   1,
					fixture: fixturePath,
					output:  formatText,
					codes:   codes,
					title:   title,
				})
			}

			ctx := cmd.Context()
			cfg := config.GetGlobalConfig()
			src, err := buildSource(ctx, cfg, fixturePath)
			if err != nil {
				return err
			}

			// Console logging would draw over the alternate screen.
			widgetLog := zerolog.Nop()
			if cfg.Logging.File != "" {
				widgetLog = logging.ComponentLogger(*logging.FromContext(ctx), "dyntree")
			}

			surface := tui.NewSurface()
			w, err := newWidget(ctx, cfg, src, surface, widgetLog)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			return tui.Run(ctx, w, surface, tui.BrowserOptions{
				Title:     title,
				Printer:   printerFor(cfg),
				ShowCodes: codes,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&fixturePath, "fixture", "", "read the tree from a fixture file instead of --url")
	f.BoolVar(&codes, "codes", false, "show node codes")
	f.StringVar(&title, "title", "", "title shown above the tree")
	f.BoolVar(&plain, "plain", false, "print the top level instead of opening the browser")

	return cmd
}
