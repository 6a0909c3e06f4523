// Package pipeline implements the triage stages that delegate work to a
// coding agent: diagnosis of the failing CI window and the optional auto-fix
// pass that follows it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alanmeadows/triage/internal/agent"
	"github.com/alanmeadows/triage/internal/artifact"
	"github.com/alanmeadows/triage/internal/config"
	"github.com/alanmeadows/triage/internal/prompts"
	"github.com/alanmeadows/triage/internal/state"
	"github.com/alanmeadows/triage/internal/store"
)

// DiagnoseOptions parameterize a diagnosis run.
type DiagnoseOptions struct {
	Workflow string
	Subjob   string
	Model    string
	// CIMode requires the boundary-finding stage to have been consumed by a
	// prior `prepare --ci-mode` against the same data directory.
	CIMode bool
	// Diag receives diagnostic output on artifact verification failure.
	// Defaults to os.Stderr.
	Diag io.Writer
}

// Diagnose verifies the upstream artifacts, builds the diagnosis prompt and
// delegates it to the agent, writing the explanation document under the
// output directory. It returns the path of the written document.
func Diagnose(ctx context.Context, cfg *config.Config, client agent.Client, opts DiagnoseOptions) (string, error) {
	diag := opts.Diag
	if diag == nil {
		diag = os.Stderr
	}

	dataDir := cfg.Pipeline.DataDir()
	summary, err := artifact.Verify(dataDir, diag)
	if err != nil {
		return "", fmt.Errorf("verifying artifacts: %w", err)
	}

	if opts.CIMode {
		if err := requireBoundaryFinding(dataDir); err != nil {
			return "", err
		}
	}

	instructions := readOptional(cfg.Pipeline.InstructionsFile)
	commits := readOptional(filepath.Join(dataDir, artifact.CommitMetadataFile))
	if commits == "" {
		commits = "[]"
	}

	prompt, err := prompts.Execute("diagnose.md", map[string]string{
		"Workflow":     opts.Workflow,
		"Subjob":       opts.Subjob,
		"RunCount":     strconv.Itoa(summary.Runs),
		"FailedCount":  strconv.Itoa(summary.Failed),
		"Instructions": instructions,
		"Commits":      commits,
	})
	if err != nil {
		return "", fmt.Errorf("building diagnosis prompt: %w", err)
	}

	workspace := cfg.Pipeline.WorkspaceDir
	title := fmt.Sprintf("triage diagnosis: %s/%s", opts.Workflow, opts.Subjob)
	session, err := client.CreateSession(ctx, title, workspace)
	if err != nil {
		return "", fmt.Errorf("creating agent session: %w", err)
	}
	defer func() {
		if err := client.DeleteSession(context.WithoutCancel(ctx), session.ID, workspace); err != nil {
			slog.Warn("failed to delete agent session", "session", session.ID, "error", err)
		}
	}()

	slog.Info("running diagnosis", "workflow", opts.Workflow, "subjob", opts.Subjob, "model", opts.Model)
	resp, err := client.SendPrompt(ctx, session.ID, prompt, agent.ParseModelRef(opts.Model), workspace)
	if err != nil {
		return "", fmt.Errorf("diagnosis prompt failed: %w", err)
	}
	if resp.Content == "" {
		return "", errors.New("agent returned an empty diagnosis")
	}

	fm := store.SetField(nil, "workflow", opts.Workflow)
	fm = store.SetField(fm, "subjob", opts.Subjob)
	fm = store.SetField(fm, "model", opts.Model)
	fm = store.SetField(fm, "generated_at", store.FormatTime(time.Now()))

	outPath := filepath.Join(cfg.Pipeline.OutputDir(), artifact.ExplanationFile)
	doc := &store.Document{Frontmatter: fm, Body: resp.Content}
	if err := store.WriteDocument(outPath, doc); err != nil {
		return "", fmt.Errorf("writing explanation: %w", err)
	}

	slog.Info("diagnosis written", "path", outPath)
	return outPath, nil
}

// MarkBoundaryFindingConsumed records the one-shot consumption of the
// boundary-finding stage in the state database. A second mark against the
// same data directory fails with state.ErrAlreadyConsumed.
func MarkBoundaryFindingConsumed(dataDir string) error {
	st, err := state.Open(filepath.Join(dataDir, artifact.StateDBFile))
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	if err := st.MarkConsumed(state.StageBoundaryFinding); err != nil {
		if errors.Is(err, state.ErrAlreadyConsumed) {
			return fmt.Errorf("boundary finding already consumed for this data directory: %w", err)
		}
		return fmt.Errorf("recording boundary finding: %w", err)
	}
	return nil
}

// requireBoundaryFinding verifies that boundary finding ran and was consumed.
func requireBoundaryFinding(dataDir string) error {
	st, err := state.Open(filepath.Join(dataDir, artifact.StateDBFile))
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	consumed, err := st.Consumed(state.StageBoundaryFinding)
	if err != nil {
		return fmt.Errorf("querying run state: %w", err)
	}
	if !consumed {
		return errors.New("boundary finding has not run; run `triage prepare --ci-mode` first")
	}
	return nil
}

// readOptional returns the file's contents, or "" when it cannot be read.
func readOptional(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("optional input not available", "path", path, "error", err)
		return ""
	}
	return string(data)
}
