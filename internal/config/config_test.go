package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pipeline.RootDir != "auto_triage" {
		t.Errorf("expected root dir auto_triage, got %s", cfg.Pipeline.RootDir)
	}
	if cfg.Pipeline.DataDir() != filepath.Join("auto_triage", "data") {
		t.Errorf("unexpected data dir %s", cfg.Pipeline.DataDir())
	}
	if cfg.Agent.Backend != BackendCopilot {
		t.Errorf("expected copilot backend, got %s", cfg.Agent.Backend)
	}
	if cfg.Agent.DefaultModel == "" {
		t.Error("expected a default model")
	}
	if cfg.OpenCode.URL != "http://localhost:4096" {
		t.Errorf("unexpected OpenCode URL %s", cfg.OpenCode.URL)
	}
	if len(cfg.Pipeline.DurableArtifacts) != 2 {
		t.Errorf("expected 2 durable artifacts, got %d", len(cfg.Pipeline.DurableArtifacts))
	}
}

func TestLoadJSONC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.jsonc")

	content := []byte(`{
  // Comments are allowed in config files.
  "pipeline": {
    "root_dir": "/tmp/triage"
  },
  "agent": {
    "backend": "opencode"
  }
}`)

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	m, err := loadJSONC(path)
	if err != nil {
		t.Fatalf("loadJSONC failed: %v", err)
	}

	pipeline, ok := m["pipeline"].(map[string]any)
	if !ok {
		t.Fatal("expected pipeline section")
	}
	if pipeline["root_dir"] != "/tmp/triage" {
		t.Errorf("expected root_dir /tmp/triage, got %v", pipeline["root_dir"])
	}
}

func TestLoadJSONCMissingFile(t *testing.T) {
	if _, err := loadJSONC(filepath.Join(t.TempDir(), "nope.jsonc")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMergeIntoConfig(t *testing.T) {
	cfg := DefaultConfig()

	src := map[string]any{
		"pipeline": map[string]any{
			"root_dir": "/custom/root",
		},
		"agent": map[string]any{
			"backend": "opencode",
		},
	}

	if err := mergeIntoConfig(&cfg, src); err != nil {
		t.Fatalf("mergeIntoConfig failed: %v", err)
	}

	if cfg.Pipeline.RootDir != "/custom/root" {
		t.Errorf("expected merged root dir, got %s", cfg.Pipeline.RootDir)
	}
	if cfg.Agent.Backend != BackendOpenCode {
		t.Errorf("expected merged backend, got %s", cfg.Agent.Backend)
	}
	// Untouched sections keep their defaults.
	if cfg.Pipeline.WorkspaceDir != "." {
		t.Errorf("expected workspace default to survive merge, got %s", cfg.Pipeline.WorkspaceDir)
	}
	if cfg.OpenCode.URL != "http://localhost:4096" {
		t.Errorf("expected OpenCode URL to survive merge, got %s", cfg.OpenCode.URL)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TRIAGE_ROOT", "/env/root")
	t.Setenv("TRIAGE_WORKSPACE", "/env/workspace")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-token")
	t.Setenv("OPENCODE_SERVER_PASSWORD", "secret")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Pipeline.RootDir != "/env/root" {
		t.Errorf("expected env root dir, got %s", cfg.Pipeline.RootDir)
	}
	if cfg.Pipeline.WorkspaceDir != "/env/workspace" {
		t.Errorf("expected env workspace, got %s", cfg.Pipeline.WorkspaceDir)
	}
	if cfg.GitHub.Token != "gh-token" {
		t.Errorf("expected env GitHub token, got %s", cfg.GitHub.Token)
	}
	if cfg.Slack.Token != "xoxb-token" {
		t.Errorf("expected env Slack token, got %s", cfg.Slack.Token)
	}
	if cfg.OpenCode.Password != "secret" {
		t.Errorf("expected env OpenCode password, got %s", cfg.OpenCode.Password)
	}
}

func TestApplyEnvOverridesEmptyIgnored(t *testing.T) {
	t.Setenv("TRIAGE_ROOT", "")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Pipeline.RootDir != "auto_triage" {
		t.Errorf("empty env var should not override, got %s", cfg.Pipeline.RootDir)
	}
}
