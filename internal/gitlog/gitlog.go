package gitlog

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alanmeadows/triage/internal/store"
)

// Commit is one resolved commit record, as handed to downstream stages.
type Commit struct {
	SHA     string `json:"sha"`
	Short   string `json:"short"`
	Subject string `json:"subject"`
}

// shortLen is the abbreviated sha length used in commit records.
const shortLen = 8

// Resolve verifies that ref names a commit in repoDir and returns its full sha.
func Resolve(repoDir, ref string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("commit not found: %s", ref)
	}
	sha := strings.TrimSpace(string(out))
	if sha == "" {
		return "", fmt.Errorf("commit not found: %s", ref)
	}
	return sha, nil
}

// ResolveRange returns the commits reachable from end following only
// first-parent edges, back to (but excluding) start, inclusive of end,
// ordered oldest first. When start == end, or the range is otherwise empty
// under first-parent traversal, the result contains exactly one record for
// end. Both bounds must resolve; neither output nor partial output is
// produced otherwise.
func ResolveRange(repoDir, start, end string) ([]Commit, error) {
	startSHA, err := Resolve(repoDir, start)
	if err != nil {
		return nil, err
	}
	endSHA, err := Resolve(repoDir, end)
	if err != nil {
		return nil, err
	}

	commits := []Commit{}
	if startSHA != endSHA {
		commits, err = logRange(repoDir, startSHA, endSHA)
		if err != nil {
			return nil, err
		}
	}

	// A valid end commit is always reachable from itself; never hand
	// downstream an empty range.
	if len(commits) == 0 {
		single, err := describe(repoDir, endSHA)
		if err != nil {
			return nil, err
		}
		commits = []Commit{single}
	}

	return commits, nil
}

// logRange lists start..end oldest-first along the first-parent lineage.
func logRange(repoDir, startSHA, endSHA string) ([]Commit, error) {
	cmd := exec.Command("git", "log", "--first-parent", "--reverse",
		"--format=%H%x1f%s", startSHA+".."+endSHA)
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log %s..%s: %w", startSHA, endSHA, err)
	}

	seen := make(map[string]bool)
	commits := []Commit{}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sha, subject, _ := strings.Cut(line, "\x1f")
		if len(sha) < shortLen || seen[sha] {
			continue
		}
		seen[sha] = true
		commits = append(commits, Commit{
			SHA:     sha,
			Short:   sha[:shortLen],
			Subject: subject,
		})
	}
	return commits, nil
}

// describe returns the record for a single commit.
func describe(repoDir, sha string) (Commit, error) {
	cmd := exec.Command("git", "log", "-1", "--format=%H%x1f%s", sha)
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return Commit{}, fmt.Errorf("git log -1 %s: %w", sha, err)
	}
	line := strings.TrimSpace(string(out))
	full, subject, _ := strings.Cut(line, "\x1f")
	if len(full) < shortLen {
		return Commit{}, fmt.Errorf("commit not found: %s", sha)
	}
	return Commit{SHA: full, Short: full[:shortLen], Subject: subject}, nil
}

// WriteJSON marshals commits as an indented JSON array to path, or to stdout
// when path is empty. A nil slice is emitted as [].
func WriteJSON(commits []Commit, path string) error {
	if commits == nil {
		commits = []Commit{}
	}
	data, err := json.MarshalIndent(commits, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling commits: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return store.WriteFileAtomic(path, data, 0644)
}
