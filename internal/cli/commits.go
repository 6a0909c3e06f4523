package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/artifact"
	"github.com/alanmeadows/triage/internal/gitlog"
)

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "Resolve and collect commit metadata",
	Long: `Resolve the commits inside a CI failure window and accumulate
per-commit metadata for the diagnosis stage.`,
}

var (
	commitsRepo string
	rangeOutput string
	fetchOutput string
)

func init() {
	commitsCmd.PersistentFlags().StringVar(&commitsRepo, "repo", "", "Repository to inspect (defaults to the workspace)")
	commitsRangeCmd.Flags().StringVarP(&rangeOutput, "output", "o", "", "Write JSON to this file instead of stdout")
	commitsFetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Metadata file to append to (defaults to the data directory)")
	commitsCmd.AddCommand(commitsRangeCmd)
	commitsCmd.AddCommand(commitsFetchCmd)
}

// repoDir resolves the repository the commits subcommands operate on.
func repoDir() string {
	if commitsRepo != "" {
		return commitsRepo
	}
	return appConfig.Pipeline.WorkspaceDir
}

var commitsRangeCmd = &cobra.Command{
	Use:   "range <start> <end> [output]",
	Short: "List commits in a failure window",
	Long: `Resolve the first-parent commits after <start> up to and including
<end>, oldest first. The start bound is exclusive and the end bound
inclusive; when they are equal, exactly the end commit is emitted.
Invalid bounds fail without producing any output.`,
	Example: `  triage commits range origin/main~10 HEAD
  triage commits range v1.4.0 v1.4.1 window.json`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := rangeOutput
		if len(args) > 2 {
			out = args[2]
		}

		commits, err := gitlog.ResolveRange(repoDir(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("resolving range: %w", err)
		}
		return gitlog.WriteJSON(commits, out)
	},
}

var commitsFetchCmd = &cobra.Command{
	Use:   "fetch <ref> [output]",
	Short: "Append one commit's metadata to the metadata artifact",
	Long: `Resolve <ref> and append its metadata record to the accumulated
commit metadata file. Appends never clobber existing records, and a
commit already present in the file is not added twice.`,
	Example: `  triage commits fetch HEAD
  triage commits fetch abc1234 auto_triage/data/commit_metadata.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := fetchOutput
		if len(args) > 1 {
			out = args[1]
		}
		if out == "" {
			out = filepath.Join(appConfig.Pipeline.DataDir(), artifact.CommitMetadataFile)
		}

		commit, err := gitlog.AppendCommit(repoDir(), args[0], out)
		if err != nil {
			return fmt.Errorf("fetching commit: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s (%s)\n", commit.Short, commit.Subject)
		return nil
	},
}
