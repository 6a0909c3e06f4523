package slackdir

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Agent output sometimes wraps the JSON payload in tool-call markup.
var (
	contentTag   = regexp.MustCompile(`</?content[^>]*>`)
	parameterTag = regexp.MustCompile(`</?parameter[^>]*>`)
)

// Sanitize recovers a JSON object from agent output that may be wrapped in
// markup or prose. Candidates are tried in order: the raw input, the input
// with tool-call tags stripped, then the outermost brace-delimited span of
// the raw input and of the stripped input. The raw span comes first because
// tag stripping mangles JSON strings that legitimately contain tag text.
// The first candidate that parses wins and is rewritten with indentation
// and sorted keys.
func Sanitize(raw string) (string, error) {
	stripped := parameterTag.ReplaceAllString(contentTag.ReplaceAllString(raw, ""), "")

	candidates := []string{raw, stripped}
	if span := outermostObject(raw); span != "" {
		candidates = append(candidates, span)
	}
	if span := outermostObject(stripped); span != "" {
		candidates = append(candidates, span)
	}

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(c), &parsed); err != nil {
			continue
		}
		out, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			continue
		}
		return string(out) + "\n", nil
	}

	return "", errors.New("no JSON object found in message")
}

// outermostObject returns the span from the first "{" to the last "}".
func outermostObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
