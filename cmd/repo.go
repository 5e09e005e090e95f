// cmd/repo.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mozilla/mozci-go/internal/repositories"
)

var repoFile string

var repoCmd = &cobra.Command{
	Use:   "repo BUILDERNAME",
	Short: "Print the repository a buildername belongs to",
	Example: `  mozci repo "Linux mozilla-inbound opt build" --repositories repositories.json`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := repoFile
		if path == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.RepositoriesFile
		}
		if path == "" {
			return fmt.Errorf("no repositories file; pass --repositories or set repositories_file in the config")
		}

		set, err := repositories.Load(path)
		if err != nil {
			return err
		}
		name, err := set.RepoNameFromBuildername(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repoCmd)
	repoCmd.Flags().StringVar(&repoFile, "repositories", "", "Repositories JSON file (default from config)")
}
