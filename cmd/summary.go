// cmd/summary.go
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mozilla/mozci-go/internal/status"
)

var summaryWorkers int

var summaryCmd = &cobra.Command{
	Use:     "summary FILE",
	Aliases: []string{"st"},
	Short:   "Count BuildAPI jobs by state",
	Long: `Reads a JSON list of BuildAPI jobs (use - for stdin), looks up every
finished job in buildjson and prints how many are successful, failed, pending,
running, coalesced or unknown.`,
	Example: `  # Summarize the jobs of a push
  mozci summary jobs.json

  # Without colors (for scripts/logging)
  curl -s "$BUILDAPI/revision/abc" | mozci summary - --no-color`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !isTerminal(os.Stdout) {
			disableColor()
		}

		jobs, err := readJobs(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		return withApp(cmd.Context(), func(a *app) error {
			workers := a.cfg.Workers
			if summaryWorkers > 0 {
				workers = summaryWorkers
			}
			classifier := status.NewClassifier(a.resolver, status.ClassifierConfig{
				Workers: workers,
				LogFn:   logActivity,
			})

			summary, err := classifier.Summarize(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			Debug("shard cache: %+v", a.cache.Stats())
			return nil
		})
	},
}

// readJobs decodes a BuildAPI job list from path, or from stdin for "-"
func readJobs(path string, stdin io.Reader) ([]status.Job, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open jobs file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var jobs []status.Job
	if err := json.NewDecoder(r).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("could not parse jobs: %w", err)
	}
	return jobs, nil
}

func printSummary(out io.Writer, s status.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	headerColor.Fprintf(w, "--- Job summary (%d jobs) ---\n", s.Total())
	rows := []struct {
		label string
		count int
		c     *color.Color
	}{
		{"Successful", s.Successful, goodColor},
		{"Failed", s.Failed, badColor},
		{"Pending", s.Pending, warnColor},
		{"Running", s.Running, warnColor},
		{"Coalesced", s.Coalesced, labelColor},
		{"Unknown", s.Unknown, badColor},
	}
	for _, row := range rows {
		count := fmt.Sprint(row.count)
		if row.count > 0 {
			count = row.c.Sprint(count)
		}
		fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint(row.label), count)
	}
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().IntVar(&summaryWorkers, "workers", 0, "Concurrent lookups (default from config)")
	summaryCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colorized output")
}
