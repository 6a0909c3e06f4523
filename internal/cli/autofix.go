package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/agent"
	"github.com/alanmeadows/triage/internal/pipeline"
)

var autofixCmd = &cobra.Command{
	Use:   "autofix <workflow> <subjob> [model]",
	Short: "Delegate fix-PR creation to the coding agent",
	Long: `Best-effort follow-up to diagnosis. When the auto-fix flag artifact
enables it and the explanation and workspace prerequisites are present,
the coding agent is asked to open a draft pull request with a candidate
fix. A failing delegate is logged and swallowed; only missing
prerequisites fail the stage.`,
	Example: `  triage autofix nightly build-arm64
  triage autofix nightly build-arm64 anthropic/claude-sonnet-4`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		armed, err := pipeline.AutofixPrecheck(appConfig)
		if err != nil {
			return err
		}
		if !armed {
			fmt.Fprintln(cmd.OutOrStdout(), "Auto-fix disabled, nothing to do.")
			return nil
		}

		ctx := cmd.Context()
		client, shutdown, err := agent.New(ctx, appConfig)
		if err != nil {
			// The delegate being unavailable must not fail the pipeline.
			fmt.Fprintf(cmd.ErrOrStderr(), "agent unavailable, skipping auto-fix: %v\n", err)
			return nil
		}
		defer shutdown()

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
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No pull request was opened.")
		}
		return nil
	},
}
