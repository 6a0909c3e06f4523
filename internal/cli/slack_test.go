package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRewritesFileInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slack_message.json")
	require.NoError(t, os.WriteFile(path, []byte(`<content type="json">{"b": 1, "a": 2}</content>`), 0644))

	var out bytes.Buffer
	slackSanitizeCmd.SetOut(&out)

	require.NoError(t, slackSanitizeCmd.RunE(slackSanitizeCmd, []string{path}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data), "file must hold valid JSON after sanitizing")
	assert.NotContains(t, string(data), "<content")
	assert.Equal(t, string(data), out.String())
}

func TestSanitizeStdinLeavesNoFile(t *testing.T) {
	var out bytes.Buffer
	slackSanitizeCmd.SetOut(&out)
	slackSanitizeCmd.SetIn(strings.NewReader(`prose first
{"msg": "hi"}`))

	require.NoError(t, slackSanitizeCmd.RunE(slackSanitizeCmd, nil))

	assert.True(t, json.Valid(out.Bytes()))
	assert.Contains(t, out.String(), `"msg"`)
}

func TestSanitizeUnparseableInputFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slack_message.json")
	require.NoError(t, os.WriteFile(path, []byte("no json here"), 0644))

	err := slackSanitizeCmd.RunE(slackSanitizeCmd, []string{path})
	require.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "no json here", string(data), "file must be untouched on failure")
}
