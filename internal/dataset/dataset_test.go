package dataset

import (
	"path/filepath"
	"testing"
	"time"

	"satforge/internal/models"
)

func sampleDataset() *models.Dataset {
	return &models.Dataset{
		TotalCount: 2,
		Questions: []models.QuestionRecord{
			{ID: "q_001", QuestionText: "What is 2+2?", CorrectAnswer: "B",
				Options: []models.Option{{ID: "A", Text: "3"}, {ID: "B", Text: "4"}}},
			{ID: "q_002", QuestionText: "Solve x+1=2."},
		},
		Metadata: models.Metadata{ModelUsed: "gpt-4o-mini"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	ds := sampleDataset()

	if err := Save(path, ds); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.TotalCount != 2 || len(loaded.Questions) != 2 {
		t.Fatalf("unexpected dataset: %+v", loaded)
	}
	if loaded.Questions[0].Options[1].Text != "4" {
		t.Errorf("options did not survive the round trip: %+v", loaded.Questions[0].Options)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMergeExplanations(t *testing.T) {
	ds := sampleDataset()
	doc := &models.ExplanationDocument{
		Explanations: []models.ExplanationRecord{
			{ID: "q_002", CorrectAnswer: "B", Explanation: "Choice B is correct because x=1."},
			{ID: "q_999", Explanation: "orphan"},
		},
	}

	matched := MergeExplanations(ds, doc, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	if matched != 1 {
		t.Fatalf("matched = %d, want 1", matched)
	}
	if ds.Questions[1].Explanation == "" || ds.Questions[1].CorrectAnswer != "B" {
		t.Errorf("explanation not merged: %+v", ds.Questions[1])
	}
	// Existing answer is only overwritten by a non-empty extraction value.
	if ds.Questions[0].CorrectAnswer != "B" {
		t.Errorf("unrelated question modified: %+v", ds.Questions[0])
	}
	if !ds.Metadata.ExplanationsMerged || ds.Metadata.ExplanationsTotal != 2 {
		t.Errorf("metadata not updated: %+v", ds.Metadata)
	}
	if ds.Metadata.MergeDate != "2025-06-01 12:00:00" {
		t.Errorf("merge date = %q", ds.Metadata.MergeDate)
	}
}
