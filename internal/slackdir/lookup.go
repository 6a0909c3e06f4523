package slackdir

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Match scores.
const (
	scoreExact   = 100
	scorePartial = 70
)

// Match is a scored directory hit for a lookup query.
type Match struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"` // "user" or "usergroup"
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// LookupOptions tune directory lookups.
type LookupOptions struct {
	// IncludeBots keeps bot users in the results.
	IncludeBots bool
	// Limit caps the number of matches per query. Zero means no cap.
	Limit int
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// normalize lowercases and strips everything but letters and digits, so
// "Jane Q. Doe" matches "janeqdoe".
func normalize(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// Lookup resolves a free-form name to Slack IDs. Each user field is scored
// independently: an exact normalized match scores 100, a substring match 70.
// Deleted users never match; bots only match when opted in. Results are
// sorted best-first.
func (d *Directory) Lookup(query string, opts LookupOptions) []Match {
	q := normalize(query)
	if q == "" {
		return nil
	}

	var matches []Match
	for _, u := range d.Users {
		if u.Deleted {
			continue
		}
		if u.IsBot && !opts.IncludeBots {
			continue
		}
		score, reason := scoreFields(q, []field{
			{"display name", u.DisplayName},
			{"real name", u.RealName},
			{"username", u.Username},
			{"email", u.Email},
		})
		if score == 0 {
			continue
		}
		matches = append(matches, Match{
			ID:     u.ID,
			Kind:   "user",
			Name:   displayName(u),
			Score:  score,
			Reason: reason,
		})
	}

	for _, g := range d.Groups {
		score, reason := scoreFields(q, []field{
			{"handle", g.Handle},
			{"group name", g.Name},
		})
		if score == 0 {
			continue
		}
		name := g.Handle
		if name == "" {
			name = g.Name
		}
		matches = append(matches, Match{
			ID:     g.ID,
			Kind:   "usergroup",
			Name:   name,
			Score:  score,
			Reason: reason,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches
}

type field struct {
	label string
	value string
}

// scoreFields returns the best score across the candidate fields.
func scoreFields(q string, fields []field) (int, string) {
	best, reason := 0, ""
	for _, f := range fields {
		v := normalize(f.value)
		if v == "" {
			continue
		}
		switch {
		case v == q:
			if best < scoreExact {
				best, reason = scoreExact, fmt.Sprintf("exact match on %s", f.label)
			}
		case strings.Contains(v, q) || strings.Contains(q, v):
			if best < scorePartial {
				best, reason = scorePartial, fmt.Sprintf("partial match on %s", f.label)
			}
		}
	}
	return best, reason
}

func displayName(u Member) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.RealName != "" {
		return u.RealName
	}
	return u.Username
}
