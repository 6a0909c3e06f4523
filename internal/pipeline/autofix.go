package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alanmeadows/triage/internal/agent"
	"github.com/alanmeadows/triage/internal/artifact"
	"github.com/alanmeadows/triage/internal/config"
	"github.com/alanmeadows/triage/internal/forge"
	"github.com/alanmeadows/triage/internal/prompts"
	"github.com/alanmeadows/triage/internal/store"
)

// AutofixOptions parameterize an auto-fix run.
type AutofixOptions struct {
	Workflow string
	Subjob   string
	Model    string
}

// AutofixOutcome reports what the auto-fix stage did.
type AutofixOutcome struct {
	// Delegated is true when the agent was actually invoked.
	Delegated bool
	// PRURL is the pull request the delegate opened, if any.
	PRURL string
}

// AutofixPrecheck decides whether the auto-fix stage should run.
// It returns (false, nil) when the flag file disables it, an error when the
// flag is set but prerequisites are missing, and (true, nil) when armed.
// Callers must not construct an agent before this check passes.
func AutofixPrecheck(cfg *config.Config) (bool, error) {
	flagPath := filepath.Join(cfg.Pipeline.DataDir(), artifact.AutofixFlagFile)
	if !artifact.AutofixEnabled(flagPath) {
		slog.Info("auto-fix disabled, skipping", "flag", flagPath)
		return false, nil
	}

	explanation := filepath.Join(cfg.Pipeline.OutputDir(), artifact.ExplanationFile)
	info, err := os.Stat(explanation)
	if err != nil || info.Size() == 0 {
		return false, fmt.Errorf("auto-fix enabled but explanation missing or empty: %s", explanation)
	}
	if !store.Exists(filepath.Join(cfg.Pipeline.WorkspaceDir, ".git")) {
		return false, fmt.Errorf("auto-fix enabled but workspace is not a git checkout: %s", cfg.Pipeline.WorkspaceDir)
	}
	return true, nil
}

// Autofix delegates PR creation to the agent. Delegate failures are logged
// and swallowed: a broken auto-fix must never fail a pipeline whose diagnosis
// already succeeded. Only local bookkeeping errors are returned.
func Autofix(ctx context.Context, cfg *config.Config, client agent.Client, opts AutofixOptions) (*AutofixOutcome, error) {
	explanationPath := filepath.Join(cfg.Pipeline.OutputDir(), artifact.ExplanationFile)
	explanation, err := store.ReadBody(explanationPath)
	if err != nil {
		return nil, fmt.Errorf("reading explanation: %w", err)
	}

	prompt, err := prompts.Execute("autofix.md", map[string]string{
		"Workflow":    opts.Workflow,
		"Subjob":      opts.Subjob,
		"Explanation": explanation,
	})
	if err != nil {
		return nil, fmt.Errorf("building auto-fix prompt: %w", err)
	}

	workspace := cfg.Pipeline.WorkspaceDir
	title := fmt.Sprintf("triage auto-fix: %s/%s", opts.Workflow, opts.Subjob)
	session, err := client.CreateSession(ctx, title, workspace)
	if err != nil {
		slog.Warn("auto-fix delegate unavailable", "error", err)
		return &AutofixOutcome{}, nil
	}
	defer func() {
		if err := client.DeleteSession(context.WithoutCancel(ctx), session.ID, workspace); err != nil {
			slog.Warn("failed to delete agent session", "session", session.ID, "error", err)
		}
	}()

	slog.Info("delegating auto-fix", "workflow", opts.Workflow, "subjob", opts.Subjob, "model", opts.Model)
	resp, err := client.SendPrompt(ctx, session.ID, prompt, agent.ParseModelRef(opts.Model), workspace)
	if err != nil {
		slog.Warn("auto-fix delegate failed", "error", err)
		return &AutofixOutcome{}, nil
	}

	prURL, ok := ParsePRTrailer(resp.Content)
	if !ok {
		slog.Warn("auto-fix delegate reported no structured result")
		return &AutofixOutcome{Delegated: true}, nil
	}
	if prURL == "" {
		slog.Info("auto-fix delegate opened no pull request")
		return &AutofixOutcome{Delegated: true}, nil
	}

	rec := artifact.PRRecord{URL: prURL}
	if info := lookupPR(ctx, cfg, prURL); info != nil {
		rec.Title = info.Title
		rec.Number = info.Number
	}

	section := fmt.Sprintf("A draft pull request with a candidate fix was opened: %s", prURL)
	if rec.Title != "" {
		section = fmt.Sprintf("A draft pull request with a candidate fix was opened: [%s](%s)", rec.Title, prURL)
	}
	if err := store.AppendSection(explanationPath, "Auto-Fix", section); err != nil {
		slog.Warn("failed to append auto-fix section to explanation", "error", err)
	}

	recPath := filepath.Join(cfg.Pipeline.DataDir(), artifact.PRRecordFile)
	if err := artifact.WritePRRecord(recPath, rec); err != nil {
		return nil, fmt.Errorf("writing PR record: %w", err)
	}

	slog.Info("auto-fix complete", "pr", prURL)
	return &AutofixOutcome{Delegated: true, PRURL: prURL}, nil
}

// ParsePRTrailer extracts the delegate's structured result line, a JSON
// object with a pr_url key on the final line of the response. The scan runs
// bottom-up and tolerates code fences and surrounding prose.
func ParsePRTrailer(content string) (url string, ok bool) {
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		line = strings.Trim(line, "`")
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		if !gjson.Valid(line) {
			continue
		}
		if res := gjson.Get(line, "pr_url"); res.Exists() {
			return res.String(), true
		}
	}
	return "", false
}

// lookupPR enriches the PR record via the GitHub API. Best effort only.
func lookupPR(ctx context.Context, cfg *config.Config, prURL string) *forge.PRInfo {
	if cfg.GitHub.Token == "" {
		slog.Debug("no GitHub token, skipping PR lookup")
		return nil
	}
	info, err := forge.NewClient(ctx, cfg.GitHub.Token).LookupPR(ctx, prURL)
	if err != nil {
		slog.Warn("PR lookup failed", "url", prURL, "error", err)
		return nil
	}
	return info
}
