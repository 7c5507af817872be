package cli

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/SkLight/dyntree/internal/cache"
	"github.com/SkLight/dyntree/internal/config"
)

// newCacheCmd creates the cache command group for the on-disk listing cache.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the on-disk listing cache",
		Long: `Listings fetched over HTTP are kept on disk for cache.ttl_seconds so that
restarting the CLI does not refetch the whole tree. The per-widget in-memory
cache is separate and lives only as long as the widget.`,
	}
	cmd.AddCommand(newCacheStatsCmd(), newCacheClearCmd(), newCachePruneCmd())
	return cmd
}

// cacheStatsJSON is the --output json form of cache stats.
type cacheStatsJSON struct {
	Directory  string `json:"directory"`
	Entries    int    `json:"entries"`
	Expired    int    `json:"expired"`
	Bytes      int64  `json:"bytes"`
	TTLSeconds int64  `json:"ttlSeconds"`
	MaxBytes   int64  `json:"maxBytes"`
}

func newCacheStatsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, ok, err := openStoreForCmd(cmd)
			if err != nil || !ok {
				return err
			}
			st, err := store.Stats()
			if err != nil {
				return fmt.Errorf("reading cache stats: %w", err)
			}

			if output == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cacheStatsJSON{
					Directory:  st.Directory,
					Entries:    st.Entries,
					Expired:    st.Expired,
					Bytes:      st.Bytes,
					TTLSeconds: int64(st.TTL.Seconds()),
					MaxBytes:   st.MaxBytes,
				})
			}

			cmd.Printf("Directory: %s\n", st.Directory)
			cmd.Printf("Entries:   %d (%d expired)\n", st.Entries, st.Expired)
			cmd.Printf("Size:      %s", formatBytes(st.Bytes))
			if st.MaxBytes > 0 {
				cmd.Printf(" of %s", formatBytes(st.MaxBytes))
			}
			cmd.Println()
			cmd.Printf("TTL:       %s\n", cache.FormatDuration(st.TTL))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text or json")
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, ok, err := openStoreForCmd(cmd)
			if err != nil || !ok {
				return err
			}

			if !yes {
				res := Confirm(cmd.OutOrStdout(), cmd.InOrStdin(), isTerminal(os.Stdin),
					fmt.Sprintf("Remove all cached listings in %s?", store.Directory()))
				if !res.Accepted {
					return errors.New("aborted: pass --yes to clear without prompting")
				}
			}

			removed, err := store.Clear()
			if err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			logger.Info().Ctx(cmd.Context()).Int("removed", removed).Msg("cache cleared")
			cmd.Printf("Removed %d cached listing(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newCachePruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries and shrink the cache below its size cap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, ok, err := openStoreForCmd(cmd)
			if err != nil || !ok {
				return err
			}
			removed, err := store.Prune()
			if err != nil {
				return fmt.Errorf("pruning cache: %w", err)
			}
			logger.Info().Ctx(cmd.Context()).Int("removed", removed).Msg("cache pruned")
			cmd.Printf("Pruned %d cached listing(s)\n", removed)
			return nil
		},
	}
}

// openStoreForCmd opens the configured store. ok is false, with a notice
// printed, when the disk cache is disabled.
func openStoreForCmd(cmd *cobra.Command) (*cache.FileStore, bool, error) {
	cfg := config.GetGlobalConfig()
	if !cfg.Cache.Enabled {
		cmd.Println("Disk cache is disabled")
		return nil, false, nil
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("opening cache: %w", err)
	}
	return store, true, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
