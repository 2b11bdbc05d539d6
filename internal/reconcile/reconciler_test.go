package reconcile

import (
	"reflect"
	"strings"
	"testing"

	"satforge/internal/models"
)

func rawQuestion(file string, seq int, text string, complete bool) models.RawRecord {
	return models.RawRecord{
		SourceFile:    file,
		SequenceIndex: seq,
		Type:          models.RecordQuestion,
		Text:          text,
		IsComplete:    complete,
	}
}

func rawExplanation(file string, seq int, text string) models.RawRecord {
	return models.RawRecord{
		SourceFile:    file,
		SequenceIndex: seq,
		Type:          models.RecordExplanation,
		Text:          text,
		IsComplete:    true,
	}
}

func TestMergeAdjacent_SplitQuestion(t *testing.T) {
	records := []models.RawRecord{
		rawQuestion("a.pdf", 1, "What is 2+2? A)3", false),
		rawQuestion("a.pdf", 2, "B)4 C)5", false),
	}

	merged, stats := MergeAdjacent(records, DefaultMergePolicy())

	if len(merged) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(merged))
	}
	if stats.Merged != 1 {
		t.Errorf("expected 1 merge, got %d", stats.Merged)
	}
	got := merged[0]
	if !got.IsComplete {
		t.Errorf("merged record should be complete, notes: %q", got.Notes)
	}
	if got.Text != "What is 2+2?" {
		t.Errorf("unexpected question text %q", got.Text)
	}
	if len(got.Options) != 3 {
		t.Fatalf("expected 3 options, got %d: %v", len(got.Options), got.Options)
	}
	wantOpts := []models.Option{{ID: "A", Text: "3"}, {ID: "B", Text: "4"}, {ID: "C", Text: "5"}}
	if !reflect.DeepEqual(got.Options, wantOpts) {
		t.Errorf("options = %v, want %v", got.Options, wantOpts)
	}
}

func TestMergeAdjacent_ArrivalOrderIrrelevant(t *testing.T) {
	// Results from concurrent extraction arrive out of order; the pass
	// must sort by (file, sequence) before joining.
	records := []models.RawRecord{
		rawQuestion("a.pdf", 2, "B)4 C)5", false),
		rawQuestion("a.pdf", 1, "What is 2+2? A)3", false),
	}

	merged, _ := MergeAdjacent(records, DefaultMergePolicy())
	if len(merged) != 1 || merged[0].Text != "What is 2+2?" {
		t.Fatalf("out-of-order input did not merge: %+v", merged)
	}
}

func TestMergeAdjacent_OneAttemptThenFlag(t *testing.T) {
	// Two fragments whose join is still incomplete must not chain into
	// a third record; the pair is kept and flagged for review.
	records := []models.RawRecord{
		rawQuestion("a.pdf", 1, "The value of x may", false),
		rawQuestion("a.pdf", 2, "be greater than the", false),
		rawQuestion("a.pdf", 3, "limit. A)1 B)2 C)3 D)4", false),
	}

	merged, stats := MergeAdjacent(records, DefaultMergePolicy())
	if len(merged) != 2 {
		t.Fatalf("expected 2 records after one-attempt merge, got %d", len(merged))
	}
	if stats.Merged != 1 {
		t.Errorf("expected exactly 1 merge, got %d", stats.Merged)
	}
	if merged[0].IsComplete {
		t.Error("joined pair should remain incomplete")
	}
	if merged[0].Notes == "" {
		t.Error("unresolved record should carry a review note")
	}
	if stats.Unresolved == 0 {
		t.Error("unresolved merge should be tallied")
	}
}

func TestMergeAdjacent_KeepsBothFragmentNotes(t *testing.T) {
	records := []models.RawRecord{
		{SourceFile: "a.pdf", SequenceIndex: 1, Type: models.RecordQuestion,
			Text: "What is 2+2? A)3", IsComplete: false,
			Notes: "cut off after first option"},
		{SourceFile: "a.pdf", SequenceIndex: 2, Type: models.RecordQuestion,
			Text: "B)4 C)5 D)6", IsComplete: false,
			Notes: "option list without question header"},
	}

	merged, _ := MergeAdjacent(records, DefaultMergePolicy())
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(merged))
	}
	for _, want := range []string{"cut off after first option", "option list without question header"} {
		if !strings.Contains(merged[0].Notes, want) {
			t.Errorf("notes lost %q: %q", want, merged[0].Notes)
		}
	}
}

func TestMergeAdjacent_DifferentFilesNotJoined(t *testing.T) {
	records := []models.RawRecord{
		rawQuestion("a.pdf", 9, "The answer may", false),
		{SourceFile: "b.pdf", FileIndex: 1, SequenceIndex: 1, Type: models.RecordQuestion,
			Text: "be found below. A)1 B)2", IsComplete: false},
	}

	merged, stats := MergeAdjacent(records, DefaultMergePolicy())
	if len(merged) != 2 {
		t.Fatalf("records from different files must not merge, got %d", len(merged))
	}
	if stats.Merged != 0 {
		t.Errorf("expected no merges, got %d", stats.Merged)
	}
}

func TestMergeAdjacent_MalformedSkipped(t *testing.T) {
	records := []models.RawRecord{
		rawQuestion("a.pdf", 1, "   ", true),
		rawQuestion("a.pdf", 2, "What is 1+1? A)1 B)2 C)3 D)4", true),
	}

	merged, stats := MergeAdjacent(records, DefaultMergePolicy())
	if len(merged) != 1 {
		t.Fatalf("malformed record should be dropped, got %d records", len(merged))
	}
	if stats.Malformed != 1 {
		t.Errorf("expected 1 malformed record tallied, got %d", stats.Malformed)
	}
}

func TestPromote_DemotesCompleteWithoutOptions(t *testing.T) {
	// Extractor output is untrusted: a record flagged complete but
	// carrying no options violates the completeness rule and must be
	// demoted, not passed through.
	records := []models.RawRecord{
		{SourceFile: "a.pdf", SequenceIndex: 1, Type: models.RecordQuestion,
			Text: "Solve x+1=2 for x.", IsComplete: true},
	}

	promoted := Promote(records)
	if len(promoted) != 1 {
		t.Fatalf("expected 1 record, got %d", len(promoted))
	}
	if promoted[0].IsComplete {
		t.Error("record without options must not stay complete")
	}
	if !promoted[0].NeedsReview {
		t.Error("demoted record must be flagged for review")
	}

	ds, _ := New().Run(records)
	if len(ds.Questions) != 1 || ds.Questions[0].IsComplete {
		t.Errorf("full run must not emit a complete question without options: %+v", ds.Questions)
	}
}

func TestPromote_CollapsesDuplicateOptionIDs(t *testing.T) {
	records := []models.RawRecord{
		{SourceFile: "a.pdf", SequenceIndex: 1, Type: models.RecordQuestion,
			Text: "What is 2+2?", IsComplete: true,
			Options: []models.Option{
				{ID: "A", Text: "3"},
				{ID: "A", Text: "4"},
				{ID: "B", Text: "5"},
			}},
	}

	promoted := Promote(records)
	opts := promoted[0].Options
	if len(opts) != 2 {
		t.Fatalf("duplicate option ids must collapse, got %v", opts)
	}
	if opts[0].ID != "A" || opts[0].Text != "3" || opts[1].ID != "B" {
		t.Errorf("first occurrence per id should win: %v", opts)
	}
	if !promoted[0].IsComplete {
		t.Error("record with a valid option list should stay complete")
	}
}

func TestDeduplicate_CompletenessOutranksLength(t *testing.T) {
	questions := []models.QuestionRecord{
		{QuestionText: "What is the slope of the line?", IsComplete: false,
			Explanation: "a much longer explanation that should not win the ranking"},
		{QuestionText: "  what is THE slope of the   line? ", IsComplete: true},
	}

	kept, removed := Deduplicate(questions, NormalizeKey)
	if removed != 1 {
		t.Fatalf("expected 1 duplicate removed, got %d", removed)
	}
	if !kept[0].IsComplete {
		t.Error("complete record must outrank the longer incomplete one")
	}
}

func TestDeduplicate_LengthThenEarliestOrder(t *testing.T) {
	questions := []models.QuestionRecord{
		{QuestionText: "Solve for x", IsComplete: true, Explanation: "short"},
		{QuestionText: "solve for x", IsComplete: true, Explanation: "a longer explanation text"},
		{QuestionText: "Solve for x", IsComplete: true, Explanation: "a longer explanation text"},
	}

	kept, removed := Deduplicate(questions, NormalizeKey)
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	// Index 1 wins on length; index 2 ties it and loses on order.
	if kept[0].Explanation != "a longer explanation text" {
		t.Errorf("longest variant should be kept, got %q", kept[0].Explanation)
	}
	if kept[0].QuestionText != "solve for x" {
		t.Errorf("earliest of the tied variants should be kept, got %q", kept[0].QuestionText)
	}
}

func TestLinkExplanations_ByTitleKey(t *testing.T) {
	questions := []models.QuestionRecord{
		{QuestionText: "Which choice best describes the function?", SourceFile: "q.pdf"},
	}
	explanations := []models.RawRecord{
		rawExplanation("e.pdf", 1, "Which choice best describes the function?\nChoice B is correct because it matches the graph."),
	}

	linked, stats := LinkExplanations(questions, explanations, NormalizeKey)
	if stats.Matched != 1 || stats.Unmatched != 0 {
		t.Fatalf("stats = %+v, want 1 matched", stats)
	}
	if linked[0].Explanation == "" {
		t.Error("explanation should be attached to the question")
	}
}

func TestLinkExplanations_OrdinalFallback(t *testing.T) {
	questions := []models.QuestionRecord{
		{QuestionText: "First question", SourceFile: "a.pdf"},
		{QuestionText: "Second question", SourceFile: "a.pdf"},
	}
	explanations := []models.RawRecord{
		{SourceFile: "a.pdf", SequenceIndex: 1, Type: models.RecordExplanation,
			Text: "Choice A is correct.", CorrectAnswer: "A", IsComplete: true},
		{SourceFile: "a.pdf", SequenceIndex: 2, Type: models.RecordExplanation,
			Text: "Choice C is correct.", CorrectAnswer: "C", IsComplete: true},
	}

	linked, stats := LinkExplanations(questions, explanations, NormalizeKey)
	if stats.Matched != 2 {
		t.Fatalf("stats = %+v, want 2 matched", stats)
	}
	if linked[0].CorrectAnswer != "A" || linked[1].CorrectAnswer != "C" {
		t.Errorf("ordinal pairing wrong: %q %q", linked[0].CorrectAnswer, linked[1].CorrectAnswer)
	}
}

func TestLinkExplanations_UnmatchedReported(t *testing.T) {
	questions := []models.QuestionRecord{
		{QuestionText: "Only question", SourceFile: "a.pdf"},
	}
	explanations := []models.RawRecord{
		rawExplanation("other.pdf", 5, "Choice D is correct for a question nobody extracted."),
		rawExplanation("other.pdf", 6, "Another orphan explanation."),
	}

	linked, stats := LinkExplanations(questions, explanations, NormalizeKey)
	if stats.Unmatched != 1 {
		// ordinal 0 of other.pdf has no question, ordinal 1 neither;
		// but the first orphan may land nowhere too.
		t.Logf("stats = %+v", stats)
	}
	if stats.Matched+stats.Unmatched != len(explanations) {
		t.Fatalf("every explanation must be matched or counted: %+v", stats)
	}
	if len(linked) != 1 {
		t.Fatalf("question set must be preserved, got %d", len(linked))
	}
}

func TestRun_QuestionWithoutExplanationSurvives(t *testing.T) {
	records := []models.RawRecord{
		rawQuestion("a.pdf", 1, "What is 3*3? A)6 B)9 C)12 D)3", true),
		rawExplanation("z.pdf", 1, "Choice B is correct for some other question entirely."),
		rawExplanation("z.pdf", 2, "Orphan two."),
	}

	ds, stats := New().Run(records)
	if ds.TotalCount != 1 {
		t.Fatalf("expected the question to survive, got %d", ds.TotalCount)
	}
	if stats.Unmatched == 0 {
		t.Error("orphan explanations must increment the unmatched count")
	}
	if ds.Metadata.UnmatchedExplanationsCount != stats.Unmatched {
		t.Errorf("metadata unmatched = %d, stats = %d",
			ds.Metadata.UnmatchedExplanationsCount, stats.Unmatched)
	}
}

func TestRun_UniqueIDsAndKeys(t *testing.T) {
	records := []models.RawRecord{
		rawQuestion("a.pdf", 1, "What is 2+2? A)3 B)4 C)5 D)6", true),
		rawQuestion("a.pdf", 2, "what is  2+2? A)3 B)4 C)5 D)6", true),
		rawQuestion("b.pdf", 1, "Solve x+1=2. A)0 B)1 C)2 D)3", true),
		rawQuestion("b.pdf", 2, "", true),
	}

	ds, stats := New().Run(records)

	ids := map[string]bool{}
	keys := map[string]bool{}
	for _, q := range ds.Questions {
		if ids[q.ID] {
			t.Errorf("duplicate id %s", q.ID)
		}
		ids[q.ID] = true
		key := NormalizeKey(q.QuestionText)
		if keys[key] {
			t.Errorf("duplicate normalized text %q", key)
		}
		keys[key] = true
	}
	if ds.TotalCount != 2 {
		t.Errorf("expected 2 unique questions, got %d", ds.TotalCount)
	}
	if stats.Malformed != 1 {
		t.Errorf("empty record should be tallied as malformed, got %d", stats.Malformed)
	}
	if stats.Deduplicated != 1 {
		t.Errorf("expected 1 duplicate removed, got %d", stats.Deduplicated)
	}
}

func TestRun_Deterministic(t *testing.T) {
	records := []models.RawRecord{
		rawQuestion("a.pdf", 1, "The graph of y=f(x) may", false),
		rawQuestion("a.pdf", 2, "intersect the x-axis twice. A)True B)False", false),
		rawQuestion("b.pdf", 1, "What is 2+2? A)3 B)4 C)5 D)6", true),
		rawExplanation("c.pdf", 1, "What is 2+2?\nChoice B is correct because 2+2=4."),
	}

	first, firstStats := New().Run(records)
	second, secondStats := New().Run(records)

	if !reflect.DeepEqual(first, second) {
		t.Error("running reconciliation twice on the same input must be identical")
	}
	if firstStats != secondStats {
		t.Errorf("stats differ between runs: %+v vs %+v", firstStats, secondStats)
	}
}

func TestSplitInlineOptions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantText string
		wantOpts int
	}{
		{"no markers", "Just a question with no choices?", "Just a question with no choices?", 0},
		{"four options", "Pick one. A)one B)two C)three D)four", "Pick one.", 4},
		{"duplicate marker keeps first", "Q? A)first A)second B)third", "Q?", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, opts := SplitInlineOptions(tc.text)
			if text != tc.wantText {
				t.Errorf("text = %q, want %q", text, tc.wantText)
			}
			if len(opts) != tc.wantOpts {
				t.Errorf("got %d options, want %d", len(opts), tc.wantOpts)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	if NormalizeKey("  What   IS\tthe\nAnswer ") != "what is the answer" {
		t.Error("normalizer must case-fold and collapse whitespace")
	}
}
