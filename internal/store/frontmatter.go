package store

import "time"

// GetString returns a string value from frontmatter.
func GetString(fm map[string]any, key string) string {
	if v, ok := fm[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetField sets a key-value pair in frontmatter, creating the map if nil.
func SetField(fm map[string]any, key string, value any) map[string]any {
	if fm == nil {
		fm = make(map[string]any)
	}
	fm[key] = value
	return fm
}

// FormatTime formats a time for frontmatter storage.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// Now returns the current time formatted for frontmatter.
func Now() string {
	return FormatTime(time.Now())
}
