// cmd/shard.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mozilla/mozci-go/internal/buildjson"
	"github.com/mozilla/mozci-go/internal/tzone"
)

var shardCompleteAt int64

var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "Show which buildjson file holds a job",
	Example: `  mozci shard --complete-at 1424961882`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := buildjson.SelectShard(time.Now(), shardCompleteAt)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", name)
		Debug("completed at %s UTC, remote file %s", tzone.UTCTime(shardCompleteAt), buildjson.RemotePath(cfg.BaseURL, name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shardCmd)
	shardCmd.Flags().Int64Var(&shardCompleteAt, "complete-at", 0, "Completion time of the job (epoch seconds)")
	shardCmd.MarkFlagRequired("complete-at")
}
