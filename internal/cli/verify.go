package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/artifact"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the boundary-detection artifacts",
	Long: `Check that the boundary summary and subjob run artifacts exist and are
non-empty before the diagnosis stage is allowed to run. An empty file
fails exactly like a missing one. On failure, a listing of the data
directory is printed to ease debugging from CI logs.`,
	Example: `  triage verify`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := artifact.Verify(appConfig.Pipeline.DataDir(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		labelStyle := lipgloss.NewStyle().Bold(true)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Boundary runs:"), summary.Runs)
		fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Subjob runs:"), summary.SubjobRuns)
		fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Failed subjobs:"), summary.Failed)
		return nil
	},
}
