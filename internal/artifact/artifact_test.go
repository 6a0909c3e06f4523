package artifact

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestVerifyHappyPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BoundariesSummaryFile, `{"runs": [{"id": 1}, {"id": 2}, {"id": 3}]}`)
	writeFile(t, dir, SubjobRunsFile,
		`[{"status": "success"}, {"status": "failure"}, {"status": "cancelled"}]`)

	var diag bytes.Buffer
	summary, err := Verify(dir, &diag)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Runs)
	assert.Equal(t, 3, summary.SubjobRuns)
	assert.Equal(t, 2, summary.Failed)
	assert.Empty(t, diag.String())
}

func TestVerifyMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BoundariesSummaryFile, `{"runs": []}`)

	var diag bytes.Buffer
	_, err := Verify(dir, &diag)
	require.Error(t, err)
	assert.Contains(t, err.Error(), SubjobRunsFile)
	assert.Contains(t, diag.String(), BoundariesSummaryFile, "diagnostic listing shows what is present")
}

func TestVerifyEmptyEqualsAbsent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BoundariesSummaryFile, "")
	writeFile(t, dir, SubjobRunsFile, `[{"status": "failure"}]`)

	var diag bytes.Buffer
	_, err := Verify(dir, &diag)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestAutofixEnabled(t *testing.T) {
	dir := t.TempDir()

	// Absent file: disabled.
	assert.False(t, AutofixEnabled(filepath.Join(dir, AutofixFlagFile)))

	writeFile(t, dir, AutofixFlagFile, `{"create_PR": false}`)
	assert.False(t, AutofixEnabled(filepath.Join(dir, AutofixFlagFile)))

	writeFile(t, dir, AutofixFlagFile, `{"create_PR": true}`)
	assert.True(t, AutofixEnabled(filepath.Join(dir, AutofixFlagFile)))

	// Malformed content: disabled, not an error.
	writeFile(t, dir, AutofixFlagFile, `{"create_PR": tru`)
	assert.False(t, AutofixEnabled(filepath.Join(dir, AutofixFlagFile)))
}

func TestWritePRRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), PRRecordFile)

	require.NoError(t, WritePRRecord(path, PRRecord{
		URL:    "https://github.com/acme/widgets/pull/42",
		Title:  "Fix flaky integration job",
		Number: 42,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "https://github.com/acme/widgets/pull/42", got["auto_fix_pr_url"])
	assert.Equal(t, "Fix flaky integration job", got["pr_title"])
	assert.EqualValues(t, 42, got["pr_number"])
}

func TestWritePRRecordURLOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), PRRecordFile)

	require.NoError(t, WritePRRecord(path, PRRecord{URL: "https://example.com/pr/1"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "https://example.com/pr/1", got["auto_fix_pr_url"])
	_, hasTitle := got["pr_title"]
	assert.False(t, hasTitle)
}
