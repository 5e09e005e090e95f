// cmd/cache.go
package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"

	"github.com/mozilla/mozci-go/internal/config"
	"github.com/mozilla/mozci-go/internal/transfer"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear downloaded buildjson snapshots",
}

var cacheListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List downloaded snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			entries, err := a.manifest.List()
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [NAME...]",
	Short: "Delete downloaded snapshots (all of them without arguments)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			names := args
			if len(names) == 0 {
				entries, err := a.manifest.List()
				if err != nil {
					return err
				}
				for _, e := range entries {
					names = append(names, e.Name)
				}
			}
			for _, name := range names {
				if err := a.client.Discard(cmd.Context(), name); err != nil {
					return err
				}
				Debug("discarded %s", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s)\n", len(names))
			return nil
		})
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location, size and free disk space",
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !isTerminal(os.Stdout) {
			disableColor()
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printCacheInfo(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func printEntries(out io.Writer, entries []transfer.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if len(entries) == 0 {
		fmt.Fprintln(w, "(No snapshots downloaded)")
		return
	}
	fmt.Fprintln(w, "NAME\tSIZE\tFETCHED\tETAG")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, formatBytes(uint64(e.Size)), e.FetchedAt.Local().Format(time.DateTime), e.ETag)
	}
}

func printCacheInfo(out io.Writer, cfg *config.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	headerColor.Fprintln(w, "--- mozci cache ---")
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Store"), cfg.Store)
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Directory"), cfg.CacheDir)
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Manifest"), cfg.ManifestPath())

	if _, err := os.Stat(cfg.CacheDir); os.IsNotExist(err) {
		fmt.Fprintf(w, "  (Cache directory not found)\t\n")
		return
	}

	store, err := transfer.NewDiskStore(cfg.CacheDir)
	if err == nil {
		count, size, err := store.Usage()
		if err != nil {
			fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Snapshots"), badColor.Sprintf("Error: %v", err))
		} else {
			fmt.Fprintf(w, "  %s:\t%d (%s)\n", labelColor.Sprint("Snapshots"), count, formatBytes(uint64(size)))
		}
	}

	d, err := disk.Usage(cfg.CacheDir)
	if err != nil {
		fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Disk"), badColor.Sprintf("Error getting disk info: %v", err))
		return
	}
	fmt.Fprintf(w, "  %s:\t%s (%s free of %s)\n", labelColor.Sprint("Disk"), colorizePercent(d.UsedPercent), formatBytes(d.Free), formatBytes(d.Total))
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd, cacheInfoCmd)
	cacheInfoCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colorized output")
}
