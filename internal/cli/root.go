package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/config"
	"github.com/alanmeadows/triage/internal/logging"
)

var (
	verbose   bool
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "triage",
		Short: "CI failure-triage pipeline driven by coding agents",
		Long: `Triage gathers commit metadata around a CI failure window, verifies the
boundary-detection artifacts, and delegates diagnosis and optional fix-PR
creation to an external coding agent (Copilot or OpenCode). Stages hand
artifacts to each other through the filesystem, so each subcommand can run
as an independent CI step.`,
	}
)

func init() {
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(autofixCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(slackCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose)

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg
		return nil
	}
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
