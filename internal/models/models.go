package models

import (
	"database/sql"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

// RecordType tags a raw extracted chunk as question or explanation content.
type RecordType string

const (
	RecordQuestion    RecordType = "question"
	RecordExplanation RecordType = "explanation"
)

// RawRecord is one extracted unit from one page/chunk of one source file,
// prior to reconciliation. Records may arrive in any completion order; the
// reconciler sorts by (FileIndex, SourceFile, SequenceIndex) before merging.
type RawRecord struct {
	SourceFile    string     `json:"source_file"`
	FileIndex     int        `json:"file_index"`
	SequenceIndex int        `json:"sequence_index"`
	Type          RecordType `json:"type"`
	Text          string     `json:"text"`
	CorrectAnswer string     `json:"correct_answer,omitempty"`
	Options       []Option   `json:"options,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
	QuestionType  string     `json:"question_type,omitempty"`
	Domain        string     `json:"domain,omitempty"`
	Skill         string     `json:"skill,omitempty"`
	Difficulty    string     `json:"difficulty_level,omitempty"`
	HasFigure     bool       `json:"has_figure,omitempty"`
	IsComplete    bool       `json:"is_complete"`
	Notes         string     `json:"notes,omitempty"`
}

// Option is one answer choice of a multiple-choice question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionRecord is the final reconciled representation of one question
// with its explanation and classification metadata.
type QuestionRecord struct {
	ID            string   `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	QuestionType  string   `json:"question_type"`
	Domain        string   `json:"domain"`
	Skill         string   `json:"skill"`
	Difficulty    string   `json:"difficulty_level"`
	HasFigure     bool     `json:"has_figure"`
	IsComplete    bool     `json:"is_complete"`
	NeedsReview   bool     `json:"needs_review,omitempty"`
	SourceFile    string   `json:"source_file"`
	MergedFrom    int      `json:"merged_from,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// CombinedLength is the dedup ranking length: question plus explanation text.
func (q QuestionRecord) CombinedLength() int {
	return len(q.QuestionText) + len(q.Explanation)
}

// Metadata summarizes one reconciliation run for human review.
type Metadata struct {
	TotalFilesProcessed        int      `json:"total_files_processed"`
	TotalFilesSuccessful       int      `json:"total_files_successful"`
	TotalFilesFailed           int      `json:"total_files_failed"`
	TotalRawRecords            int      `json:"total_raw_records"`
	TotalUniqueQuestions       int      `json:"total_unique_questions"`
	ExtractionDate             string   `json:"extraction_date"`
	ModelUsed                  string   `json:"model_used"`
	UnmatchedExplanationsCount int      `json:"unmatched_explanations_count"`
	MalformedRecordsCount      int      `json:"malformed_records_count,omitempty"`
	SuccessfulFiles            []string `json:"successful_files,omitempty"`
	FailedFiles                []string `json:"failed_files,omitempty"`
	ExplanationsMerged         bool     `json:"explanations_merged,omitempty"`
	ExplanationsMatched        int      `json:"explanations_matched,omitempty"`
	ExplanationsTotal          int      `json:"explanations_total,omitempty"`
	MergeDate                  string   `json:"merge_date,omitempty"`
}

// Dataset is the JSON document written at the end of a run and read by
// the viewer and the question store importer.
type Dataset struct {
	TotalCount int              `json:"totalCount"`
	Questions  []QuestionRecord `json:"questions"`
	Metadata   Metadata         `json:"metadata"`
}

// ExplanationDocument holds a standalone explanations extraction file.
type ExplanationDocument struct {
	Explanations []ExplanationRecord `json:"explanations"`
	Metadata     Metadata            `json:"metadata,omitempty"`
}

// ExplanationRecord is one extracted answer explanation keyed by question id.
type ExplanationRecord struct {
	ID            string `json:"id"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	IsComplete    bool   `json:"is_complete"`
	SourceFile    string `json:"source_file,omitempty"`
	FileIndex     int    `json:"file_index,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ReviewCard tracks spaced-repetition scheduling state for one question.
type ReviewCard struct {
	ID            int64
	QuestionID    string
	Due           sql.NullTime
	Stability     float64
	Difficulty    float64
	ElapsedDays   int
	ScheduledDays int
	Reps          int
	Lapses        int
	State         int
	LastReview    sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReviewLog records one practice attempt against a question.
type ReviewLog struct {
	ID            int64
	QuestionID    string
	Rating        int
	ScheduledDays int
	ElapsedDays   int
	State         int
	ReviewedAt    time.Time
}

func (c *ReviewCard) ToFSRSCard() fsrs.Card {
	card := fsrs.Card{
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   uint64(max(c.ElapsedDays, 0)),
		ScheduledDays: uint64(max(c.ScheduledDays, 0)),
		Reps:          uint64(max(c.Reps, 0)),
		Lapses:        uint64(max(c.Lapses, 0)),
		State:         fsrs.State(max(c.State, 0)),
	}
	if c.Due.Valid {
		card.Due = c.Due.Time
	}
	if c.LastReview.Valid {
		card.LastReview = c.LastReview.Time
	}
	return card
}

func (c *ReviewCard) ApplyFSRSCard(f fsrs.Card) {
	c.Due = sql.NullTime{Time: f.Due, Valid: !f.Due.IsZero()}
	c.Stability = f.Stability
	c.Difficulty = f.Difficulty
	c.ElapsedDays = int(f.ElapsedDays)
	c.ScheduledDays = int(f.ScheduledDays)
	c.Reps = int(f.Reps)
	c.Lapses = int(f.Lapses)
	c.State = int(f.State)
	c.LastReview = sql.NullTime{Time: f.LastReview, Valid: !f.LastReview.IsZero()}
}

// HasAllOptions reports whether a record carries the four standard choices
// with distinct ids.
func HasAllOptions(opts []Option) bool {
	if len(opts) != 4 {
		return false
	}
	seen := map[string]bool{}
	for _, o := range opts {
		id := strings.ToUpper(strings.TrimSpace(o.ID))
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

func max[T ~int | ~int32 | ~int64](a, b T) T {
	if a > b {
		return a
	}
	return b
}
