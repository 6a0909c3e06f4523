package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltinTemplates(t *testing.T) {
	for _, name := range []string{"diagnose.md", "autofix.md"} {
		tmpl, err := Load(name)
		require.NoError(t, err, name)
		assert.NotNil(t, tmpl)
	}
}

func TestLoadUnknownTemplate(t *testing.T) {
	_, err := Load("nope.md")
	require.Error(t, err)
}

func TestExecuteDiagnose(t *testing.T) {
	out, err := Execute("diagnose.md", map[string]string{
		"Workflow":     "nightly",
		"Subjob":       "integration",
		"RunCount":     "12",
		"FailedCount":  "4",
		"Instructions": "Check the fixtures first.",
		"Commits":      "- abc12345 bump dependency",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "integration")
	assert.Contains(t, out, "Check the fixtures first.")
	assert.Contains(t, out, "abc12345")
}

func TestExecuteAutofixDemandsStructuredResult(t *testing.T) {
	out, err := Execute("autofix.md", map[string]string{
		"Workflow":    "nightly",
		"Subjob":      "integration",
		"Explanation": "The root cause is X.",
	})
	require.NoError(t, err)

	// The delegate must return a structured result, not logs to scrape.
	assert.Contains(t, out, `{"pr_url":`)
	assert.Contains(t, out, "draft")
}
