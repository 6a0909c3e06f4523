package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/agent"
	"github.com/alanmeadows/triage/internal/artifact"
	"github.com/alanmeadows/triage/internal/layout"
	"github.com/alanmeadows/triage/internal/pipeline"
)

var runCIMode bool

var runCmd = &cobra.Command{
	Use:   "run <workflow> <subjob> [model]",
	Short: "Run the full triage pipeline",
	Long: `Chain the pipeline stages in order: prepare the directory layout,
verify the boundary-detection artifacts, run the diagnosis, then the
optional auto-fix pass. Diagnosis failure fails the run; auto-fix
failure never does.`,
	Example: `  triage run nightly build-arm64
  triage run nightly build-arm64 anthropic/claude-sonnet-4 --ci-mode`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pipe := appConfig.Pipeline

		if err := layout.Prepare(pipe); err != nil {
			return fmt.Errorf("preparing pipeline directories: %w", err)
		}
		if runCIMode {
			if err := pipeline.MarkBoundaryFindingConsumed(pipe.DataDir()); err != nil {
				return err
			}
		}

		if _, err := artifact.Verify(pipe.DataDir(), cmd.ErrOrStderr()); err != nil {
			return err
		}

		client, shutdown, err := agent.New(ctx, appConfig)
		if err != nil {
			return fmt.Errorf("initializing agent: %w", err)
		}
		defer shutdown()

		opts := pipeline.DiagnoseOptions{
			Workflow: args[0],
			Subjob:   args[1],
			Model:    modelArg(args),
			CIMode:   runCIMode,
			Diag:     cmd.ErrOrStderr(),
		}
		path, err := pipeline.Diagnose(ctx, appConfig, client, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Explanation written to %s\n", path)

		armed, err := pipeline.AutofixPrecheck(appConfig)
		if err != nil {
			return err
		}
		if !armed {
			return nil
		}

		out, err := pipeline.Autofix(ctx, appConfig, client, pipeline.AutofixOptions{
			Workflow: args[0],
			Subjob:   args[1],
			Model:    modelArg(args),
		})
		if err != nil {
			return err
		}
		if out.PRURL != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Draft PR opened: %s\n", out.PRURL)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runCIMode, "ci-mode", false, "Arm and require the one-shot boundary-finding guard")
}
