package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/config"
	"github.com/alanmeadows/triage/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage triage configuration",
	Long:  `Show the merged configuration and initialize a user-level config file.`,
}

var configJSONFlag bool

func init() {
	configShowCmd.Flags().BoolVar(&configJSONFlag, "json", false, "Output raw JSON without formatting")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := redactConfig(appConfig)

		var data []byte
		var err error
		if configJSONFlag {
			data, err = json.Marshal(redacted)
		} else {
			data, err = json.MarshalIndent(redacted, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// redactConfig returns a copy of the config with secret fields masked.
func redactConfig(cfg *config.Config) *config.Config {
	copy := *cfg
	if copy.GitHub.Token != "" {
		copy.GitHub.Token = "***"
	}
	if copy.Slack.Token != "" {
		copy.Slack.Token = "***"
	}
	if copy.OpenCode.Password != "" {
		copy.OpenCode.Password = "***"
	}
	return &copy
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a user-level config file",
	Long: `Launch an interactive form to configure the pipeline root, workspace,
agent backend and default model, then write the result to the
user-level config file.`,
	Example: `  triage config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		backend := string(cfg.Agent.Backend)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Pipeline root directory").
					Value(&cfg.Pipeline.RootDir).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("root directory is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("Workspace checkout").
					Value(&cfg.Pipeline.WorkspaceDir),
				huh.NewSelect[string]().
					Title("Agent backend").
					Options(
						huh.NewOption("Copilot (recommended)", string(config.BackendCopilot)),
						huh.NewOption("OpenCode", string(config.BackendOpenCode)),
					).
					Value(&backend),
				huh.NewInput().
					Title("Default model").
					Value(&cfg.Agent.DefaultModel),
			),
		)

		if err := form.Run(); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
		cfg.Agent.Backend = config.AgentBackend(backend)

		path, err := config.UserConfigPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		if err := store.WriteFileAtomic(path, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}
