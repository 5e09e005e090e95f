// cmd/query.go
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mozilla/mozci-go/internal/buildjson"
	"github.com/mozilla/mozci-go/internal/status"
	"github.com/mozilla/mozci-go/internal/tzone"
)

var (
	queryCompleteAt int64
	queryRequestID  int64
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find the buildjson record of a finished job",
	Long: `Looks up a job by its completion time and request (scheduling) id in the
buildjson snapshot that covers it. Snapshots are downloaded once and cached.`,
	Example: `  # Look up a job and print a summary
  mozci query --complete-at 1424961882 --request-id 62949190

  # Print the record as JSON
  mozci query --complete-at 1424961882 --request-id 62949190 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !isTerminal(os.Stdout) {
			disableColor()
		}
		return withApp(cmd.Context(), func(a *app) error {
			job, shard, err := a.resolver.ResolveShard(cmd.Context(), queryCompleteAt, queryRequestID)
			if err != nil {
				var nf *buildjson.NotFoundError
				if errors.As(err, &nf) {
					Debug("not found: shard=%s request_id=%d hours_ago=%.1f", nf.Shard, nf.RequestID, nf.HoursAgo)
				}
				return err
			}

			if queryJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(job)
			}
			printJob(cmd.OutOrStdout(), shard, job)
			return nil
		})
	},
}

func printJob(out io.Writer, shard string, job *buildjson.JobRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	headerColor.Fprintf(w, "--- %s ---\n", job.Properties.BuilderName)
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Shard"), shard)
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Result"), colorizeResult(job.Result))
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Revision"), job.Properties.Revision)
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Build ID"), job.Properties.BuildID)
	fmt.Fprintf(w, "  %s:\t%d\n", labelColor.Sprint("Builder ID"), job.BuilderID)
	fmt.Fprintf(w, "  %s:\t%s UTC\n", labelColor.Sprint("Started"), tzone.UTCTime(job.StartTime))
	fmt.Fprintf(w, "  %s:\t%s UTC\n", labelColor.Sprint("Finished"), tzone.UTCTime(job.EndTime))
	fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Request IDs"), joinIDs(job.AllRequestIDs()))
	if job.Properties.SlaveName != "" {
		fmt.Fprintf(w, "  %s:\t%s (%d)\n", labelColor.Sprint("Slave"), job.Properties.SlaveName, job.SlaveID)
	}
	if job.Properties.LogURL != "" {
		fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Log"), job.Properties.LogURL)
	}
}

func colorizeResult(result int) string {
	name := status.ResultName(result)
	switch result {
	case status.ResultSuccess:
		return goodColor.Sprint(name)
	case status.ResultWarnings, status.ResultRetry:
		return warnColor.Sprint(name)
	default:
		return badColor.Sprint(name)
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Int64Var(&queryCompleteAt, "complete-at", 0, "Completion time of the job (epoch seconds)")
	queryCmd.Flags().Int64Var(&queryRequestID, "request-id", 0, "Request (scheduling) id of the job")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the record as JSON")
	queryCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colorized output")
	queryCmd.MarkFlagRequired("complete-at")
	queryCmd.MarkFlagRequired("request-id")
}
