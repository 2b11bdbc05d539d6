// Package dataset reads and writes the JSON documents the pipeline
// exchanges: the reconciled question bank and standalone explanation
// extractions.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"satforge/internal/models"
)

// Load reads a question dataset document from disk.
func Load(path string) (*models.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var ds models.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return &ds, nil
}

// Save writes a dataset document with stable indentation.
func Save(path string, ds *models.Dataset) error {
	raw, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	return nil
}

// LoadExplanations reads a standalone explanations document.
func LoadExplanations(path string) (*models.ExplanationDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read explanations %s: %w", path, err)
	}
	var doc models.ExplanationDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode explanations %s: %w", path, err)
	}
	return &doc, nil
}

// MergeExplanations folds an explanations document into a question
// dataset by explicit id. Matched explanations overwrite empty fields
// only; metadata records the match counts and merge time. Returns the
// number of matched explanations.
func MergeExplanations(ds *models.Dataset, doc *models.ExplanationDocument, now time.Time) int {
	byID := make(map[string]models.ExplanationRecord, len(doc.Explanations))
	for _, exp := range doc.Explanations {
		if exp.ID != "" {
			byID[exp.ID] = exp
		}
	}

	matched := 0
	for i := range ds.Questions {
		exp, ok := byID[ds.Questions[i].ID]
		if !ok {
			continue
		}
		if exp.Explanation != "" {
			ds.Questions[i].Explanation = exp.Explanation
		}
		if exp.CorrectAnswer != "" {
			ds.Questions[i].CorrectAnswer = exp.CorrectAnswer
		}
		matched++
	}

	ds.Metadata.ExplanationsMerged = true
	ds.Metadata.ExplanationsMatched = matched
	ds.Metadata.ExplanationsTotal = len(doc.Explanations)
	ds.Metadata.MergeDate = now.UTC().Format("2006-01-02 15:04:05")
	return matched
}
