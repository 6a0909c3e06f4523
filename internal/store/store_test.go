package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ReadDocument / WriteDocument ---

func TestWriteAndReadDocumentWithFrontmatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explanation.md")

	doc := &Document{
		Frontmatter: map[string]any{
			"workflow": "nightly",
			"subjob":   "build-arm64",
			"model":    "claude-sonnet-4",
		},
		Body: "# Diagnosis\n\nThe build broke.\n",
	}

	err := WriteDocument(path, doc)
	require.NoError(t, err)

	got, err := ReadDocument(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", GetString(got.Frontmatter, "workflow"))
	assert.Equal(t, "build-arm64", GetString(got.Frontmatter, "subjob"))
	assert.Contains(t, got.Body, "# Diagnosis")
}

func TestReadDocumentPlainMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.md")
	require.NoError(t, os.WriteFile(path, []byte("Just markdown, no frontmatter.\n"), 0644))

	got, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Empty(t, got.Frontmatter)
	assert.Contains(t, got.Body, "Just markdown")
}

func TestReadBodySkipsFrontmatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	content := "---\nworkflow: nightly\n---\n\nbody text\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	body, err := ReadBody(path)
	require.NoError(t, err)
	assert.NotContains(t, body, "workflow:")
	assert.Contains(t, body, "body text")
}

func TestWriteDocumentCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "doc.md")

	err := WriteDocument(path, &Document{Body: "nested\n"})
	require.NoError(t, err)
	assert.True(t, Exists(path))
}

// --- AppendSection ---

func TestAppendSectionPreservesFrontmatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explanation.md")
	doc := &Document{
		Frontmatter: map[string]any{"workflow": "nightly"},
		Body:        "The diagnosis.\n",
	}
	require.NoError(t, WriteDocument(path, doc))

	err := AppendSection(path, "Auto-Fix", "A draft PR was opened.")
	require.NoError(t, err)

	got, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", GetString(got.Frontmatter, "workflow"))
	assert.Contains(t, got.Body, "The diagnosis.")
	assert.Contains(t, got.Body, "## Auto-Fix")
	assert.Contains(t, got.Body, "A draft PR was opened.")

	// Section lands after the original body.
	assert.Less(t, strings.Index(got.Body, "The diagnosis."), strings.Index(got.Body, "## Auto-Fix"))
}

func TestAppendSectionMissingFile(t *testing.T) {
	err := AppendSection(filepath.Join(t.TempDir(), "nope.md"), "Auto-Fix", "x")
	require.Error(t, err)
}

// --- WriteFileAtomic ---

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"a": 1}`), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(data))

	// No temp file left behind.
	assert.False(t, Exists(path+".tmp"))
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, WriteFileAtomic(path, []byte("old"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

// --- WithLock ---

func TestWithLockSerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.json")

	var active atomic.Int32
	var maxActive atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(path, 5*time.Second, func() error {
				cur := active.Add(1)
				if cur > maxActive.Load() {
					maxActive.Store(cur)
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load(), "critical sections must not overlap")
}

func TestWithLockPropagatesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.json")

	err := WithLock(path, time.Second, func() error {
		return os.ErrPermission
	})
	require.ErrorIs(t, err, os.ErrPermission)
}

// --- frontmatter helpers ---

func TestGetStringMissingKey(t *testing.T) {
	assert.Equal(t, "", GetString(map[string]any{}, "nope"))
	assert.Equal(t, "", GetString(map[string]any{"n": 42}, "n"))
}

func TestFormatTimeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	fm := SetField(nil, "generated_at", FormatTime(now))

	got, err := time.Parse(time.RFC3339, GetString(fm, "generated_at"))
	require.NoError(t, err)
	assert.True(t, now.Equal(got), "expected %v, got %v", now, got)
}

func TestSetFieldCreatesMap(t *testing.T) {
	fm := SetField(nil, "k", "v")
	assert.Equal(t, "v", GetString(fm, "k"))
}
