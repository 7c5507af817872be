// Package cli implements the dyntree command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/SkLight/dyntree/internal/config"
	"github.com/SkLight/dyntree/internal/logging"
)

// Persistent flag names.
const (
	flagDebug          = "debug"
	flagConfig         = "config"
	flagURL            = "url"
	flagCacheDepth     = "cache-depth"
	flagWaitingMessage = "waiting-message"
	flagProbe          = "probe-endpoints"
	flagNoDiskCache    = "no-disk-cache"
	flagLang           = "lang"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger = zerolog.Nop() //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the dyntree CLI. It loads
// configuration, applies flag overrides, wires up logging and registers the
// subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:     "dyntree",
		Short:   "Browse lazily loaded trees from a listing endpoint",
		Long:    "dyntree: expand remote trees on demand, with background prefetch and a per-widget cache",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.Bool(flagDebug, false, "enable debug logging")
	pf.String(flagConfig, "", "config overlay merged over $DYNTREE_HOME/config.yaml")
	pf.String(flagURL, "", "listing endpoint URL (overrides source.url)")
	pf.Int(flagCacheDepth, 0, "levels to prefetch below every fetched listing (overrides widget.cache_depth)")
	pf.Bool(flagWaitingMessage, false, "show a waiting indicator while children load")
	pf.Bool(flagProbe, false, "probe mounted nodes in the background to mark endpoints")
	pf.Bool(flagNoDiskCache, false, "bypass the on-disk listing cache")
	pf.String(flagLang, "", "message language (en, ru); defaults to the locale")

	cmd.AddCommand(newBrowseCmd(), newPrintCmd(), newServeCmd(), newCacheCmd(), newConfigCmd())

	return cmd
}

// loadConfig builds the effective configuration: files and environment from
// the config package, then explicitly set flags.
func loadConfig(cmd *cobra.Command) error {
	overlay, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.NewWithOverlay(overlay)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed(flagURL) {
		cfg.Source.URL, _ = flags.GetString(flagURL)
	}
	if flags.Changed(flagCacheDepth) {
		cfg.Widget.CacheDepth, _ = flags.GetInt(flagCacheDepth)
	}
	if flags.Changed(flagWaitingMessage) {
		cfg.Widget.ShowWaitingMessage, _ = flags.GetBool(flagWaitingMessage)
	}
	if flags.Changed(flagProbe) {
		cfg.Widget.ProbeEndpoints, _ = flags.GetBool(flagProbe)
	}
	if noCache, _ := flags.GetBool(flagNoDiskCache); noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed(flagLang) {
		cfg.UI.Language, _ = flags.GetString(flagLang)
	}

	// The config commands must run on a broken file so it can be inspected
	// and replaced.
	if err = cfg.Validate(); err != nil && !underConfigCmd(cmd) {
		return err
	}
	config.SetGlobalConfig(cfg)
	return nil
}

func underConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" && c.HasParent() {
			return true
		}
	}
	return false
}

const rootCmdExample = `  # Serve a fixture tree and browse it
  dyntree serve --fixture tree.yaml --addr :8080 &
  dyntree browse --url http://localhost:8080/

  # Print the first three levels, prefetching one level ahead
  dyntree print --url http://localhost:8080/ --depth 3 --cache-depth 1

  # Print a fixture without a server
  dyntree print --fixture tree.yaml --depth 2

  # Inspect and prune the on-disk listing cache
  dyntree cache stats
  dyntree cache prune

  # Initialize configuration
  dyntree config init`
