// Package artifact knows the JSON files the pipeline stages hand each other
// through the data directory. The core never interprets run contents
// semantically; it checks presence, lengths and a couple of flags.
package artifact

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/alanmeadows/triage/internal/store"
)

// Canonical artifact names under the data directory.
const (
	BoundariesSummaryFile = "boundaries_summary.json"
	SubjobRunsFile        = "subjob_runs.json"
	CommitMetadataFile    = "commit_metadata.json"
	AutofixFlagFile       = "autofix_flag.json"
	PRRecordFile          = "auto_fix_pr_url.json"
	StateDBFile           = "triage_state.db"
)

// ExplanationFile is the diagnosis stage's output document name.
const ExplanationFile = "explanation.md"

// AutofixEnabled reads the create_PR flag from the JSON file at path.
// An absent, unreadable or malformed file means disabled; the auto-fix stage
// must degrade to a clean no-op rather than fail on a missing flag.
func AutofixEnabled(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil || !gjson.ValidBytes(data) {
		return false
	}
	return gjson.GetBytes(data, "create_PR").Bool()
}

// PRRecord is the side file the auto-fix stage leaves for the notifier.
type PRRecord struct {
	URL    string
	Title  string
	Number int
}

// WritePRRecord persists the PR record for the downstream notification step.
func WritePRRecord(path string, rec PRRecord) error {
	data := []byte("{}")
	data, err := sjson.SetBytes(data, "auto_fix_pr_url", rec.URL)
	if err != nil {
		return fmt.Errorf("building PR record: %w", err)
	}
	if rec.Title != "" {
		if data, err = sjson.SetBytes(data, "pr_title", rec.Title); err != nil {
			return fmt.Errorf("building PR record: %w", err)
		}
	}
	if rec.Number != 0 {
		if data, err = sjson.SetBytes(data, "pr_number", rec.Number); err != nil {
			return fmt.Errorf("building PR record: %w", err)
		}
	}
	return store.WriteFileAtomic(path, append(data, '\n'), 0644)
}
