package reconcile

import (
	"fmt"
	"strings"

	"satforge/internal/models"
)

// Promote converts merged raw question records into question records.
// Extractor-supplied flags are not trusted: option ids are collapsed to
// one entry each, and a record claiming completeness without an option
// list is demoted and flagged. Input order (file then sequence) is
// preserved so the dedupe tie-break can use slice position.
func Promote(records []models.RawRecord) []models.QuestionRecord {
	questions := make([]models.QuestionRecord, 0, len(records))
	for _, rec := range records {
		text := rec.Text
		opts := rec.Options
		if len(opts) == 0 {
			text, opts = SplitInlineOptions(rec.Text)
			if len(opts) == 0 {
				text = rec.Text
			}
		}
		opts = mergeOptionLists(opts)

		checked := rec
		checked.Text = text
		checked.Options = opts
		complete := rec.IsComplete && recomputeComplete(checked)

		questions = append(questions, models.QuestionRecord{
			QuestionText:  text,
			Options:       opts,
			CorrectAnswer: strings.ToUpper(strings.TrimSpace(rec.CorrectAnswer)),
			Explanation:   rec.Explanation,
			QuestionType:  rec.QuestionType,
			Domain:        rec.Domain,
			Skill:         rec.Skill,
			Difficulty:    rec.Difficulty,
			HasFigure:     rec.HasFigure,
			IsComplete:    complete,
			NeedsReview:   !complete,
			SourceFile:    rec.SourceFile,
			Notes:         rec.Notes,
		})
	}
	return questions
}

// Deduplicate groups questions by their normalized text key and keeps
// the most complete variant of each group: completeness first, then
// longer combined question+explanation text, then earliest source
// order. The input slice is left untouched.
func Deduplicate(questions []models.QuestionRecord, norm Normalizer) ([]models.QuestionRecord, int) {
	if norm == nil {
		norm = NormalizeKey
	}

	best := map[string]int{}
	order := []string{}
	for i, q := range questions {
		key := norm(q.QuestionText)
		kept, ok := best[key]
		if !ok {
			best[key] = i
			order = append(order, key)
			continue
		}
		if ranksHigher(q, questions[kept]) {
			best[key] = i
		}
	}

	out := make([]models.QuestionRecord, 0, len(order))
	for _, key := range order {
		out = append(out, questions[best[key]])
	}
	return out, len(questions) - len(out)
}

// ranksHigher reports whether a beats b under the deterministic dedup
// ranking. Earlier source order wins ties, which the caller encodes as
// slice position, so a (the later record) must be strictly better.
func ranksHigher(a, b models.QuestionRecord) bool {
	if a.IsComplete != b.IsComplete {
		return a.IsComplete
	}
	return a.CombinedLength() > b.CombinedLength()
}

// ReassignIDs numbers questions sequentially (q_001, q_002, ...) so
// every emitted record has a unique identifier regardless of what the
// extraction produced.
func ReassignIDs(questions []models.QuestionRecord) []models.QuestionRecord {
	out := make([]models.QuestionRecord, len(questions))
	for i, q := range questions {
		q.ID = fmt.Sprintf("q_%03d", i+1)
		out[i] = q
	}
	return out
}
