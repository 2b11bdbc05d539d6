package reconcile

import (
	"strings"

	"satforge/internal/models"
)

// LinkStats counts explanation matching outcomes.
type LinkStats struct {
	Matched   int
	Unmatched int
}

// LinkExplanations attaches merged explanation records to their
// questions. An explanation matches by the normalized key of its
// leading line (the question title the extraction keeps) when that key
// identifies exactly one question; otherwise it falls back to the
// (source file, ordinal) pairing. Unmatched explanations are counted,
// not dropped: the caller surfaces them in the metadata summary.
// Returns a new question slice; inputs are not modified.
func LinkExplanations(questions []models.QuestionRecord, explanations []models.RawRecord, norm Normalizer) ([]models.QuestionRecord, LinkStats) {
	if norm == nil {
		norm = NormalizeKey
	}

	out := make([]models.QuestionRecord, len(questions))
	copy(out, questions)

	// Key index: normalized question text, and normalized title prefix.
	// Ambiguous keys (shared by several questions) are disqualified.
	byKey := map[string]int{}
	ambiguous := map[string]bool{}
	index := func(key string, i int) {
		if key == "" || ambiguous[key] {
			return
		}
		if prev, ok := byKey[key]; ok && prev != i {
			delete(byKey, key)
			ambiguous[key] = true
			return
		}
		byKey[key] = i
	}
	for i, q := range out {
		index(norm(q.QuestionText), i)
		index(norm(firstLine(q.QuestionText)), i)
	}

	// Ordinal index: position of each question within its source file.
	byOrdinal := map[string]map[int]int{}
	perFile := map[string]int{}
	for i, q := range out {
		ord := perFile[q.SourceFile]
		perFile[q.SourceFile] = ord + 1
		if byOrdinal[q.SourceFile] == nil {
			byOrdinal[q.SourceFile] = map[int]int{}
		}
		byOrdinal[q.SourceFile][ord] = i
	}

	var stats LinkStats
	expOrdinal := map[string]int{}
	for _, exp := range explanations {
		ord := expOrdinal[exp.SourceFile]
		expOrdinal[exp.SourceFile] = ord + 1

		target := -1
		if i, ok := byKey[norm(firstLine(exp.Text))]; ok {
			target = i
		} else if i, ok := byOrdinal[exp.SourceFile][ord]; ok {
			target = i
		}
		if target < 0 {
			stats.Unmatched++
			continue
		}

		attachExplanation(&out[target], exp)
		stats.Matched++
	}

	return out, stats
}

// attachExplanation copies explanation content onto a question, keeping
// the longer explanation when the question already has one.
func attachExplanation(q *models.QuestionRecord, exp models.RawRecord) {
	text := strings.TrimSpace(exp.Text)
	if len(text) > len(q.Explanation) {
		q.Explanation = text
	}
	if q.CorrectAnswer == "" && exp.CorrectAnswer != "" {
		q.CorrectAnswer = strings.ToUpper(strings.TrimSpace(exp.CorrectAnswer))
	}
}
