package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// Summary reports what the verifier found in the upstream artifacts.
// Only lengths are read; run contents are never interpreted.
type Summary struct {
	Runs       int // entries in boundaries_summary.json "runs"
	SubjobRuns int // entries in subjob_runs.json
	Failed     int // subjob runs with status != "success"
}

// Verify confirms that the two upstream JSON artifacts exist and are
// non-empty before the diagnosis stage is allowed to run. A present-but-empty
// file fails identically to an absent one. On failure a diagnostic listing of
// the data directory is written to diag.
func Verify(dataDir string, diag io.Writer) (*Summary, error) {
	boundaries, err := readNonEmpty(filepath.Join(dataDir, BoundariesSummaryFile))
	if err != nil {
		listDir(diag, dataDir)
		return nil, err
	}
	subjobs, err := readNonEmpty(filepath.Join(dataDir, SubjobRunsFile))
	if err != nil {
		listDir(diag, dataDir)
		return nil, err
	}

	summary := &Summary{
		Runs:       int(gjson.GetBytes(boundaries, "runs.#").Int()),
		SubjobRuns: int(gjson.GetBytes(subjobs, "#").Int()),
		Failed:     len(gjson.GetBytes(subjobs, `#(status!="success")#`).Array()),
	}
	return summary, nil
}

// readNonEmpty reads a file, treating empty content as missing.
func readNonEmpty(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("required artifact missing: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("required artifact is empty: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	return data, nil
}

// listDir writes a directory listing to w to make missing-artifact failures
// diagnosable from CI logs alone.
func listDir(w io.Writer, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(w, "cannot list %s: %v\n", dir, err)
		return
	}
	fmt.Fprintf(w, "contents of %s:\n", dir)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			fmt.Fprintf(w, "  %s\n", e.Name())
			continue
		}
		fmt.Fprintf(w, "  %s (%d bytes)\n", e.Name(), info.Size())
	}
}
