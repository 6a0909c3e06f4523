package layout

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alanmeadows/triage/internal/config"
)

// Symlink names stages use to reach the canonical directories through short
// relative paths, regardless of where the root actually lives.
const (
	DataLink   = "triage-data"
	LogsLink   = "triage-logs"
	OutputLink = "triage-output"
)

// Prepare idempotently ensures the canonical directory layout exists under the
// pipeline root and that the stable-named symlinks in the workspace point at
// it. Re-running replaces stale symlinks rather than failing.
func Prepare(pipe config.PipelineConfig) error {
	for _, dir := range []string{pipe.DataDir(), pipe.LogsDir(), pipe.OutputDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	links := map[string]string{
		DataLink:   pipe.DataDir(),
		LogsLink:   pipe.LogsDir(),
		OutputLink: pipe.OutputDir(),
	}
	for name, target := range links {
		linkPath := filepath.Join(pipe.WorkspaceDir, name)
		if err := refreshSymlink(linkPath, target); err != nil {
			return err
		}
	}

	slog.Debug("pipeline layout prepared", "root", pipe.RootDir)
	return nil
}

// refreshSymlink points linkPath at target, replacing an existing symlink.
// A regular file or directory squatting on the link name is an error; blowing
// it away could destroy real data.
func refreshSymlink(linkPath, target string) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}

	if info, err := os.Lstat(linkPath); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("%s exists and is not a symlink", linkPath)
		}
		if err := os.Remove(linkPath); err != nil {
			return fmt.Errorf("removing stale symlink %s: %w", linkPath, err)
		}
	}

	if err := os.Symlink(abs, linkPath); err != nil {
		return fmt.Errorf("creating symlink %s -> %s: %w", linkPath, abs, err)
	}
	return nil
}

// Clean models fresh-run semantics: everything under data/ is removed except
// the durable artifacts, and logs/ and output/ are wiped entirely.
func Clean(pipe config.PipelineConfig) error {
	durable := make(map[string]bool, len(pipe.DurableArtifacts))
	for _, name := range pipe.DurableArtifacts {
		durable[name] = true
	}

	entries, err := os.ReadDir(pipe.DataDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", pipe.DataDir(), err)
	}
	for _, e := range entries {
		if durable[e.Name()] {
			continue
		}
		path := filepath.Join(pipe.DataDir(), e.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	for _, dir := range []string{pipe.LogsDir(), pipe.OutputDir()} {
		if err := wipeDir(dir); err != nil {
			return err
		}
	}

	slog.Info("pipeline state cleaned", "root", pipe.RootDir, "kept", pipe.DurableArtifacts)
	return nil
}

// wipeDir removes the contents of dir but keeps the directory itself.
func wipeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}
