package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Document represents a markdown file with YAML frontmatter, such as the
// explanation document the diagnosis stage produces.
type Document struct {
	Frontmatter map[string]any
	Body        string
}

// ReadDocument reads a markdown file with YAML frontmatter.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}

	var matter map[string]any
	body, err := frontmatter.Parse(strings.NewReader(string(data)), &matter)
	if err != nil {
		// Plain markdown without frontmatter is fine; the whole file is the body.
		slog.Debug("no frontmatter found in document", "path", path, "error", err)
		return &Document{
			Frontmatter: make(map[string]any),
			Body:        string(data),
		}, nil
	}

	return &Document{
		Frontmatter: matter,
		Body:        string(body),
	}, nil
}

// WriteDocument writes a markdown file with YAML frontmatter.
func WriteDocument(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	var buf bytes.Buffer

	if len(doc.Frontmatter) > 0 {
		buf.WriteString("---\n")
		fm, err := yaml.Marshal(doc.Frontmatter)
		if err != nil {
			return fmt.Errorf("marshaling frontmatter: %w", err)
		}
		buf.Write(fm)
		buf.WriteString("---\n\n")
	}

	buf.WriteString(doc.Body)

	return WriteFileAtomic(path, buf.Bytes(), 0644)
}

// ReadBody reads just the body of a markdown file (ignoring frontmatter).
func ReadBody(path string) (string, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return "", err
	}
	return doc.Body, nil
}

// AppendSection appends a titled markdown section to a document's body,
// preserving its frontmatter.
func AppendSection(path, title, content string) error {
	doc, err := ReadDocument(path)
	if err != nil {
		return err
	}

	var buf strings.Builder
	buf.WriteString(strings.TrimRight(doc.Body, "\n"))
	buf.WriteString("\n\n## ")
	buf.WriteString(title)
	buf.WriteString("\n\n")
	buf.WriteString(strings.TrimRight(content, "\n"))
	buf.WriteString("\n")

	doc.Body = buf.String()
	return WriteDocument(path, doc)
}

// WriteFileAtomic writes data to a temp file then renames it into place,
// preventing partial writes on crash or disk-full. Stages hand artifacts to
// each other through the filesystem, so a half-written file must never be
// observable.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Exists checks if a file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
