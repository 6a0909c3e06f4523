package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/agent"
	"github.com/alanmeadows/triage/internal/pipeline"
)

var diagnoseCIMode bool

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <workflow> <subjob> [model]",
	Short: "Delegate failure diagnosis to the coding agent",
	Long: `Build a diagnosis prompt from the verified artifacts, the accumulated
commit metadata and the triage instructions, hand it to the configured
coding agent, and write the resulting explanation document to the
output directory. Diagnosis is mandatory: agent failure fails the stage.`,
	Example: `  triage diagnose nightly build-arm64
  triage diagnose nightly build-arm64 anthropic/claude-sonnet-4 --ci-mode`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, shutdown, err := agent.New(ctx, appConfig)
		if err != nil {
			return fmt.Errorf("initializing agent: %w", err)
		}
		defer shutdown()

		path, err := pipeline.Diagnose(ctx, appConfig, client, pipeline.DiagnoseOptions{
			Workflow: args[0],
			Subjob:   args[1],
			Model:    modelArg(args),
			CIMode:   diagnoseCIMode,
			Diag:     cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Explanation written to %s\n", path)
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseCIMode, "ci-mode", false, "Require boundary finding to have been consumed")
}

// modelArg returns the optional third positional model argument, falling
// back to the configured default.
func modelArg(args []string) string {
	if len(args) > 2 && args[2] != "" {
		return args[2]
	}
	return appConfig.Agent.DefaultModel
}
