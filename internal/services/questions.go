package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"satforge/internal/models"
)

// QuestionService persists reconciled question banks in SQLite.
type QuestionService struct {
	db *sql.DB
}

func NewQuestionService(db *sql.DB) *QuestionService {
	return &QuestionService{db: db}
}

// ImportDataset stores one reconciled dataset, replacing questions that
// share an id. Options travel in the pipe encoding.
func (s *QuestionService) ImportDataset(ctx context.Context, ds *models.Dataset) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	extractedAt := time.Now().UTC()
	if ds.Metadata.ExtractionDate != "" {
		if parsed, perr := time.Parse("2006-01-02 15:04:05", ds.Metadata.ExtractionDate); perr == nil {
			extractedAt = parsed
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO extraction_runs (model_used, files_processed, files_successful, files_failed, unmatched_explanations, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`,
		ds.Metadata.ModelUsed,
		ds.Metadata.TotalFilesProcessed,
		ds.Metadata.TotalFilesSuccessful,
		ds.Metadata.TotalFilesFailed,
		ds.Metadata.UnmatchedExplanationsCount,
		extractedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert extraction run: %w", err)
	}
	runID, _ := res.LastInsertId()

	for _, q := range ds.Questions {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO questions (question_id, run_id, question_text, options, correct_answer, explanation,
				question_type, domain, skill, difficulty_level, has_figure, is_complete, needs_review, source_file)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(question_id) DO UPDATE SET
				run_id = excluded.run_id,
				question_text = excluded.question_text,
				options = excluded.options,
				correct_answer = excluded.correct_answer,
				explanation = excluded.explanation,
				question_type = excluded.question_type,
				domain = excluded.domain,
				skill = excluded.skill,
				difficulty_level = excluded.difficulty_level,
				has_figure = excluded.has_figure,
				is_complete = excluded.is_complete,
				needs_review = excluded.needs_review,
				source_file = excluded.source_file;
		`,
			q.ID, runID, q.QuestionText, models.EncodePipeOptions(q.Options), q.CorrectAnswer, q.Explanation,
			q.QuestionType, q.Domain, q.Skill, q.Difficulty,
			boolInt(q.HasFigure), boolInt(q.IsComplete), boolInt(q.NeedsReview), q.SourceFile,
		); err != nil {
			return 0, fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return runID, nil
}

// ListQuestions returns the stored bank in id order.
func (s *QuestionService) ListQuestions(ctx context.Context) ([]models.QuestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, question_text, options, correct_answer, explanation,
		       question_type, domain, skill, difficulty_level, has_figure, is_complete, needs_review, source_file
		FROM questions
		ORDER BY question_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []models.QuestionRecord
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// GetQuestion loads one question by id.
func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.QuestionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT question_id, question_text, options, correct_answer, explanation,
		       question_type, domain, skill, difficulty_level, has_figure, is_complete, needs_review, source_file
		FROM questions
		WHERE question_id = ?;
	`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("question %s not found", id)
		}
		return nil, err
	}
	return &q, nil
}

// DomainCount is one row of the classification breakdown.
type DomainCount struct {
	Domain string
	Count  int
}

// DomainBreakdown aggregates the bank by classification domain.
func (s *QuestionService) DomainBreakdown(ctx context.Context) ([]DomainCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, COUNT(*) FROM questions GROUP BY domain ORDER BY COUNT(*) DESC, domain;
	`)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	var out []DomainCount
	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan domain row: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// CountQuestions returns the bank size.
func (s *QuestionService) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (models.QuestionRecord, error) {
	var q models.QuestionRecord
	var options string
	var hasFigure, isComplete, needsReview int
	if err := row.Scan(
		&q.ID,
		&q.QuestionText,
		&options,
		&q.CorrectAnswer,
		&q.Explanation,
		&q.QuestionType,
		&q.Domain,
		&q.Skill,
		&q.Difficulty,
		&hasFigure,
		&isComplete,
		&needsReview,
		&q.SourceFile,
	); err != nil {
		return q, err
	}
	q.Options = models.ParsePipeOptions(options)
	q.HasFigure = hasFigure != 0
	q.IsComplete = isComplete != 0
	q.NeedsReview = needsReview != 0
	return q, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
