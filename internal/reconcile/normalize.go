// Package reconcile turns raw extracted records into a deduplicated,
// merged question bank. Extraction (PDF reading, model calls) happens
// elsewhere; this package owns the merge, dedupe and link passes that
// repair records split across page boundaries.
package reconcile

import "strings"

// Normalizer derives the similarity key used to group duplicate
// questions. Alternative strategies (edit distance buckets, shingling)
// can be substituted without touching the passes.
type Normalizer func(string) string

// NormalizeKey is the default normalizer: case-folded with all
// whitespace runs collapsed to single spaces.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// firstLine returns the first non-empty line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
