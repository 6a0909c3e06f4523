package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/triage/internal/config"
)

func testPipeline(t *testing.T) config.PipelineConfig {
	t.Helper()
	base := t.TempDir()
	return config.PipelineConfig{
		RootDir:          filepath.Join(base, "auto_triage"),
		WorkspaceDir:     base,
		DurableArtifacts: []string{"boundaries_summary.json", "commit_metadata.json"},
	}
}

func TestPrepareCreatesLayout(t *testing.T) {
	pipe := testPipeline(t)

	require.NoError(t, Prepare(pipe))

	for _, dir := range []string{pipe.DataDir(), pipe.LogsDir(), pipe.OutputDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	target, err := os.Readlink(filepath.Join(pipe.WorkspaceDir, DataLink))
	require.NoError(t, err)
	abs, _ := filepath.Abs(pipe.DataDir())
	assert.Equal(t, abs, target)
}

func TestPrepareIsIdempotent(t *testing.T) {
	pipe := testPipeline(t)

	require.NoError(t, Prepare(pipe))
	require.NoError(t, Prepare(pipe), "second run must overwrite symlinks, not fail")

	_, err := os.Readlink(filepath.Join(pipe.WorkspaceDir, OutputLink))
	assert.NoError(t, err)
}

func TestPrepareReplacesStaleSymlink(t *testing.T) {
	pipe := testPipeline(t)
	stale := t.TempDir()
	require.NoError(t, os.Symlink(stale, filepath.Join(pipe.WorkspaceDir, DataLink)))

	require.NoError(t, Prepare(pipe))

	target, err := os.Readlink(filepath.Join(pipe.WorkspaceDir, DataLink))
	require.NoError(t, err)
	abs, _ := filepath.Abs(pipe.DataDir())
	assert.Equal(t, abs, target)
}

func TestPrepareRefusesNonSymlink(t *testing.T) {
	pipe := testPipeline(t)
	require.NoError(t, os.MkdirAll(filepath.Join(pipe.WorkspaceDir, DataLink), 0755))

	err := Prepare(pipe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a symlink")
}

func TestCleanKeepsDurableArtifacts(t *testing.T) {
	pipe := testPipeline(t)
	require.NoError(t, Prepare(pipe))

	write := func(dir, name string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	write(pipe.DataDir(), "boundaries_summary.json")
	write(pipe.DataDir(), "commit_metadata.json")
	write(pipe.DataDir(), "scratch.json")
	write(pipe.LogsDir(), "stage.log")
	write(pipe.OutputDir(), "explanation.md")

	require.NoError(t, Clean(pipe))

	assert.FileExists(t, filepath.Join(pipe.DataDir(), "boundaries_summary.json"))
	assert.FileExists(t, filepath.Join(pipe.DataDir(), "commit_metadata.json"))
	assert.NoFileExists(t, filepath.Join(pipe.DataDir(), "scratch.json"))
	assert.NoFileExists(t, filepath.Join(pipe.LogsDir(), "stage.log"))
	assert.NoFileExists(t, filepath.Join(pipe.OutputDir(), "explanation.md"))

	// Directories themselves survive.
	assert.DirExists(t, pipe.LogsDir())
	assert.DirExists(t, pipe.OutputDir())
}

func TestCleanMissingRootIsNoop(t *testing.T) {
	pipe := testPipeline(t)
	assert.NoError(t, Clean(pipe))
}
