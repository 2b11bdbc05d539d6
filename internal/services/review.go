package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"satforge/internal/models"
)

// ReviewService schedules quiz practice over the stored question bank
// with FSRS spaced repetition.
type ReviewService struct {
	db     *sql.DB
	params fsrs.Parameters
}

func NewReviewService(db *sql.DB) *ReviewService {
	params := fsrs.DefaultParam()
	return &ReviewService{db: db, params: params}
}

// EnsureCards creates a review card for every question that does not
// have one yet. New cards are due immediately.
func (s *ReviewService) EnsureCards(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO review_cards (question_id, due, state, created_at, updated_at)
		SELECT q.question_id, ?, ?, ?, ?
		FROM questions q
		WHERE NOT EXISTS (SELECT 1 FROM review_cards rc WHERE rc.question_id = q.question_id);
	`, now, int(fsrs.New), now, now)
	if err != nil {
		return 0, fmt.Errorf("ensure review cards: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// NextDue returns the question with the earliest due review card, or
// nil when nothing is due.
func (s *ReviewService) NextDue(ctx context.Context, now time.Time) (*models.QuestionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT q.question_id, q.question_text, q.options, q.correct_answer, q.explanation,
		       q.question_type, q.domain, q.skill, q.difficulty_level, q.has_figure, q.is_complete, q.needs_review, q.source_file
		FROM review_cards rc
		JOIN questions q ON q.question_id = rc.question_id
		WHERE rc.due IS NOT NULL AND rc.due <= ?
		ORDER BY rc.due ASC
		LIMIT 1;
	`, now)
	q, err := scanQuestion(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("next due question: %w", err)
	}
	return &q, nil
}

// ListDue returns every question with a due review card, earliest due
// first.
func (s *ReviewService) ListDue(ctx context.Context, now time.Time) ([]models.QuestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.question_id, q.question_text, q.options, q.correct_answer, q.explanation,
		       q.question_type, q.domain, q.skill, q.difficulty_level, q.has_figure, q.is_complete, q.needs_review, q.source_file
		FROM review_cards rc
		JOIN questions q ON q.question_id = rc.question_id
		WHERE rc.due IS NOT NULL AND rc.due <= ?
		ORDER BY rc.due ASC;
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list due questions: %w", err)
	}
	defer rows.Close()

	var out []models.QuestionRecord
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DueCount reports how many cards are due at the given time.
func (s *ReviewService) DueCount(ctx context.Context, now time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM review_cards WHERE due IS NOT NULL AND due <= ?;
	`, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("count due cards: %w", err)
	}
	return n, nil
}

// SubmitReview updates the scheduling state for one question based on
// the user's rating and records the attempt.
func (s *ReviewService) SubmitReview(ctx context.Context, questionID string, rating fsrs.Rating) (*models.ReviewCard, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	card := &models.ReviewCard{}
	row := tx.QueryRowContext(ctx, `
		SELECT id, question_id, due, stability, difficulty, elapsed_days, scheduled_days,
		       reps, lapses, state, last_review, created_at, updated_at
		FROM review_cards
		WHERE question_id = ?;
	`, questionID)
	if err = row.Scan(
		&card.ID,
		&card.QuestionID,
		&card.Due,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.Reps,
		&card.Lapses,
		&card.State,
		&card.LastReview,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("load review card for %s: %w", questionID, err)
	}

	now := time.Now().UTC()
	scheduling := s.params.Repeat(card.ToFSRSCard(), now)
	info, ok := scheduling[rating]
	if !ok {
		return nil, fmt.Errorf("rating %d not supported", rating)
	}
	card.ApplyFSRSCard(info.Card)
	card.UpdatedAt = now

	if _, err = tx.ExecContext(ctx, `
		UPDATE review_cards
		SET due = ?, stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?,
		    reps = ?, lapses = ?, state = ?, last_review = ?, updated_at = ?
		WHERE id = ?;
	`,
		nullTimePtr(card.Due),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		card.State,
		nullTimePtr(card.LastReview),
		card.UpdatedAt,
		card.ID,
	); err != nil {
		return nil, fmt.Errorf("update review card %d: %w", card.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO review_logs (question_id, rating, scheduled_days, elapsed_days, state, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, questionID, int(info.ReviewLog.Rating), int(info.ReviewLog.ScheduledDays), int(info.ReviewLog.ElapsedDays), int(info.ReviewLog.State), now); err != nil {
		return nil, fmt.Errorf("insert review log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}
	return card, nil
}

func nullTimePtr(t sql.NullTime) any {
	if t.Valid {
		return t.Time
	}
	return nil
}
