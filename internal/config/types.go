package config

import "path/filepath"

// Config is the top-level triage configuration.
type Config struct {
	Pipeline PipelineConfig `json:"pipeline"`
	Agent    AgentConfig    `json:"agent"`
	OpenCode OpenCodeConfig `json:"opencode"`
	Copilot  CopilotConfig  `json:"copilot"`
	GitHub   GitHubConfig   `json:"github"`
	Slack    SlackConfig    `json:"slack"`
}

// PipelineConfig controls the on-disk pipeline layout and artifact names.
type PipelineConfig struct {
	// RootDir is the canonical pipeline root holding data/, logs/ and output/.
	RootDir string `json:"root_dir"`
	// WorkspaceDir is the repository checkout the auto-fix delegate operates on.
	WorkspaceDir string `json:"workspace_dir"`
	// InstructionsFile is consumed verbatim into the diagnosis prompt.
	InstructionsFile string `json:"instructions_file"`
	// DurableArtifacts are the data/ files that survive `prepare --clean`.
	DurableArtifacts []string `json:"durable_artifacts"`
}

// DataDir returns the canonical data directory.
func (p PipelineConfig) DataDir() string { return filepath.Join(p.RootDir, "data") }

// LogsDir returns the canonical logs directory.
func (p PipelineConfig) LogsDir() string { return filepath.Join(p.RootDir, "logs") }

// OutputDir returns the canonical output directory.
func (p PipelineConfig) OutputDir() string { return filepath.Join(p.RootDir, "output") }

// AgentBackend selects which coding-agent integration drives a stage.
type AgentBackend string

const (
	BackendCopilot  AgentBackend = "copilot"
	BackendOpenCode AgentBackend = "opencode"
)

// AgentConfig selects and parameterizes the coding-agent backend.
type AgentConfig struct {
	Backend      AgentBackend `json:"backend"`
	DefaultModel string       `json:"default_model"`
}

// OpenCodeConfig controls the OpenCode server integration.
type OpenCodeConfig struct {
	URL       string `json:"url"`
	AutoStart bool   `json:"auto_start"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// CopilotConfig controls the Copilot SDK integration.
// An empty ServerURL lets the SDK spawn its own copilot process via stdio.
type CopilotConfig struct {
	ServerURL string `json:"server_url"`
}

// GitHubConfig holds credentials for the best-effort PR lookup after auto-fix.
type GitHubConfig struct {
	Token string `json:"token"`
}

// SlackConfig holds the bot token and output location for the Slack directory.
type SlackConfig struct {
	Token         string `json:"token"`
	DirectoryFile string `json:"directory_file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Pipeline: PipelineConfig{
			RootDir:          "auto_triage",
			WorkspaceDir:     ".",
			InstructionsFile: "auto_triage/instructions.md",
			DurableArtifacts: []string{"boundaries_summary.json", "commit_metadata.json"},
		},
		Agent: AgentConfig{
			Backend:      BackendCopilot,
			DefaultModel: "claude-sonnet-4",
		},
		OpenCode: OpenCodeConfig{
			URL:       "http://localhost:4096",
			AutoStart: true,
			Username:  "opencode",
		},
		Slack: SlackConfig{
			DirectoryFile: "auto_triage/data/slack_directory.json",
		},
	}
}
