package gitlog

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/alanmeadows/triage/internal/store"
)

// AppendCommit resolves a single commit and appends its record to the JSON
// array file at path, creating the file as an empty array if absent. Multiple
// invocations accumulate records instead of clobbering each other; a sha that
// is already present is left alone. Appends from concurrent invocations are
// serialized with a file lock.
func AppendCommit(repoDir, ref, path string) (Commit, error) {
	sha, err := Resolve(repoDir, ref)
	if err != nil {
		return Commit{}, err
	}
	record, err := describe(repoDir, sha)
	if err != nil {
		return Commit{}, err
	}

	err = store.WithLock(path, store.DefaultLockTimeout, func() error {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			data = []byte("[]")
		} else if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if len(data) == 0 || !gjson.ValidBytes(data) {
			data = []byte("[]")
		}

		if gjson.GetBytes(data, fmt.Sprintf(`#(sha==%q)`, record.SHA)).Exists() {
			return nil
		}

		updated, err := sjson.SetBytes(data, "-1", record)
		if err != nil {
			return fmt.Errorf("appending to %s: %w", path, err)
		}
		return store.WriteFileAtomic(path, updated, 0644)
	})
	if err != nil {
		return Commit{}, err
	}

	return record, nil
}
