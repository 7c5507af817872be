package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SkLight/dyntree/internal/cache"
	"github.com/SkLight/dyntree/internal/config"
)

// newConfigValidateCmd creates the config validate command for validating configuration.
func newConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file",
		Long: `Validates a configuration file for syntax and semantic correctness. Without
an argument the file under $DYNTREE_HOME is checked.

This includes:
- YAML syntax
- Widget options (cache depth, prefetch concurrency)
- Source timeout
- Cache TTL and size limits`,
		Example: `  # Validate current configuration
  dyntree config validate

  # Validate another file and show details
  dyntree config validate ./team.yaml --verbose`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.New().ConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			return runConfigValidate(cmd, path, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

func runConfigValidate(cmd *cobra.Command, path string, verbose bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid: %s\n", path)

	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	if cfg.Source.URL != "" {
		cmd.Printf("  Source URL: %s\n", cfg.Source.URL)
	} else {
		cmd.Println("  No source URL configured")
	}
	cmd.Printf("  Source timeout: %s\n", cfg.Source.Timeout)
	cmd.Printf("  Cache depth: %d\n", cfg.Widget.CacheDepth)
	cmd.Printf("  Waiting message: %t\n", cfg.Widget.ShowWaitingMessage)
	cmd.Printf("  Probe endpoints: %t\n", cfg.Widget.ProbeEndpoints)
	if cfg.Cache.Enabled {
		ttl := cache.FormatDuration(time.Duration(cfg.Cache.TTLSeconds) * time.Second)
		cmd.Printf("  Disk cache: enabled (ttl %s, max %d MB)\n", ttl, cfg.Cache.MaxSizeMB)
	} else {
		cmd.Println("  Disk cache: disabled")
	}
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}
}
