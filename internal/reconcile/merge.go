package reconcile

import (
	"regexp"
	"sort"
	"strings"

	"satforge/internal/models"
)

// MergePolicy decides whether a neighbouring record plausibly continues
// an incomplete one. The heuristic is deliberately pluggable: the
// surrounding material never pins down a single rule, so callers can
// swap in stricter or looser policies.
type MergePolicy struct {
	// Continues reports whether next looks like the continuation of
	// prev within the same source file.
	Continues func(prev, next models.RawRecord) bool
}

// DefaultMergePolicy joins records when the neighbour starts
// mid-sentence, opens with a non-initial option marker, or the earlier
// record ends on a dangling word.
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{Continues: defaultContinues}
}

// danglingWords are the cut-off endings the extraction prompt flags as
// signs of a truncated question.
var danglingWords = map[string]bool{
	"may": true, "might": true, "would": true, "could": true,
	"can": true, "the": true, "a": true, "an": true,
	"of": true, "to": true, "in": true, "and": true,
	"or": true, "because": true, "since": true, "is": true,
}

var optionMarkerRE = regexp.MustCompile(`([A-D])\)\s*`)

func defaultContinues(prev, next models.RawRecord) bool {
	nextText := strings.TrimSpace(next.Text)
	if nextText == "" {
		return false
	}

	// Continuation options: "B)4 C)5" following "... A)3".
	if m := optionMarkerRE.FindStringSubmatchIndex(nextText); m != nil && m[0] == 0 {
		if nextText[m[2]:m[3]] != "A" {
			return true
		}
	}

	// Mid-sentence start: lowercase letter or digit.
	first := rune(nextText[0])
	if first >= 'a' && first <= 'z' {
		return true
	}

	return endsDangling(prev.Text)
}

// endsDangling reports whether text stops on a connective word or
// without terminal punctuation inside an unfinished clause.
func endsDangling(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	fields := strings.Fields(text)
	last := strings.ToLower(strings.Trim(fields[len(fields)-1], `"'`))
	return danglingWords[last]
}

// SplitInlineOptions separates answer choices embedded in running text
// ("What is 2+2? A)3 B)4") into the leading question text and a
// structured option list. Duplicate markers keep their first occurrence.
func SplitInlineOptions(text string) (string, []models.Option) {
	matches := optionMarkerRE.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(text), nil
	}

	question := strings.TrimSpace(text[:matches[0][0]])
	var opts []models.Option
	seen := map[string]bool{}
	for i, m := range matches {
		id := text[m[2]:m[3]]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		opts = append(opts, models.Option{
			ID:   id,
			Text: strings.TrimSpace(text[m[1]:end]),
		})
	}
	return question, opts
}

// MergeStats counts what the merge pass did.
type MergeStats struct {
	Malformed  int
	Merged     int
	Unresolved int
}

// MergeAdjacent repairs records split across page boundaries. Records
// are sorted by (file index, source file, sequence index) so results
// arriving in any completion order reconcile identically. An incomplete
// record gets exactly one merge attempt with its successor in the same
// file; a record still incomplete afterwards is retained and flagged
// for manual review, never merged further. Malformed records (empty
// text) are skipped and tallied. The input slice is not modified.
func MergeAdjacent(records []models.RawRecord, policy MergePolicy) ([]models.RawRecord, MergeStats) {
	var stats MergeStats

	ordered := make([]models.RawRecord, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Text) == "" {
			stats.Malformed++
			continue
		}
		ordered = append(ordered, rec)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.FileIndex != b.FileIndex {
			return a.FileIndex < b.FileIndex
		}
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		return a.SequenceIndex < b.SequenceIndex
	})

	if policy.Continues == nil {
		policy = DefaultMergePolicy()
	}

	var merged []models.RawRecord
	for i := 0; i < len(ordered); i++ {
		current := ordered[i]
		if current.IsComplete {
			merged = append(merged, current)
			continue
		}

		if i+1 < len(ordered) {
			next := ordered[i+1]
			if next.SourceFile == current.SourceFile && next.Type == current.Type &&
				policy.Continues(current, next) {
				current = joinRecords(current, next)
				stats.Merged++
				i++ // consume the continuation; one attempt per pair
			}
		}

		if !current.IsComplete {
			stats.Unresolved++
			current.Notes = appendNote(current.Notes, "needs manual review: still incomplete after merge pass")
		}
		merged = append(merged, current)
	}

	return merged, stats
}

// joinRecords concatenates two adjacent fragments and recomputes the
// completeness flag from the combined content.
func joinRecords(prev, next models.RawRecord) models.RawRecord {
	out := prev
	out.Text = joinText(prev.Text, next.Text)

	question, inline := SplitInlineOptions(out.Text)
	if len(inline) > 0 {
		out.Text = question
	}

	// A complete successor with a full option set wins outright,
	// mirroring how a question's tail page usually carries the choices.
	if next.IsComplete && models.HasAllOptions(next.Options) {
		out.Options = next.Options
	} else {
		out.Options = mergeOptionLists(prev.Options, next.Options, inline)
	}

	out.CorrectAnswer = firstNonEmpty(next.CorrectAnswer, prev.CorrectAnswer)
	out.Explanation = firstNonEmpty(prev.Explanation, next.Explanation)
	out.QuestionType = firstNonEmpty(prev.QuestionType, next.QuestionType)
	out.Domain = firstNonEmpty(prev.Domain, next.Domain)
	out.Skill = firstNonEmpty(prev.Skill, next.Skill)
	out.Difficulty = firstNonEmpty(prev.Difficulty, next.Difficulty)
	out.HasFigure = prev.HasFigure || next.HasFigure
	notes := prev.Notes
	if next.Notes != "" {
		notes = appendNote(notes, next.Notes)
	}
	out.Notes = appendNote(notes, "merged with continuation from "+next.SourceFile)

	out.IsComplete = recomputeComplete(out)
	return out
}

func recomputeComplete(rec models.RawRecord) bool {
	if strings.TrimSpace(rec.Text) == "" {
		return false
	}
	if rec.Type == models.RecordQuestion && len(rec.Options) == 0 {
		return false
	}
	return !endsDangling(rec.Text)
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func mergeOptionLists(lists ...[]models.Option) []models.Option {
	var out []models.Option
	seen := map[string]bool{}
	for _, list := range lists {
		for _, o := range list {
			id := strings.ToUpper(strings.TrimSpace(o.ID))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, models.Option{ID: id, Text: o.Text})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
