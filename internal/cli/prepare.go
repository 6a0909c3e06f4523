package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/layout"
	"github.com/alanmeadows/triage/internal/pipeline"
)

var (
	prepareCIMode bool
	prepareClean  bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Establish the pipeline directory layout",
	Long: `Idempotently create the canonical data, logs and output directories and
refresh the stable symlinks downstream stages resolve them through.

With --clean, scratch files under data/ are removed first (the durable
summary artifacts survive) and logs/ and output/ are wiped.

With --ci-mode, the boundary-finding stage is marked consumed in the
run-state database. The mark is one-shot: a second --ci-mode run against
the same data directory fails.`,
	Example: `  triage prepare
  triage prepare --clean
  triage prepare --ci-mode`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := appConfig.Pipeline

		if prepareClean {
			if err := layout.Clean(pipe); err != nil {
				return fmt.Errorf("cleaning pipeline directories: %w", err)
			}
		}

		if err := layout.Prepare(pipe); err != nil {
			return fmt.Errorf("preparing pipeline directories: %w", err)
		}

		if prepareCIMode {
			if err := pipeline.MarkBoundaryFindingConsumed(pipe.DataDir()); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Pipeline layout ready under %s\n", pipe.RootDir)
		return nil
	},
}

func init() {
	prepareCmd.Flags().BoolVar(&prepareCIMode, "ci-mode", false, "Mark the boundary-finding stage consumed (one-shot)")
	prepareCmd.Flags().BoolVar(&prepareClean, "clean", false, "Remove scratch artifacts before preparing")
}
