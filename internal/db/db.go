package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open connects to the SQLite database and runs schema migrations.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_foreign_keys=1", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return conn, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS extraction_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			model_used TEXT NOT NULL,
			files_processed INTEGER NOT NULL DEFAULT 0,
			files_successful INTEGER NOT NULL DEFAULT 0,
			files_failed INTEGER NOT NULL DEFAULT 0,
			unmatched_explanations INTEGER NOT NULL DEFAULT 0,
			extracted_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			question_id TEXT PRIMARY KEY,
			run_id INTEGER,
			question_text TEXT NOT NULL,
			options TEXT NOT NULL DEFAULT 'NO_OPTIONS',
			correct_answer TEXT NOT NULL DEFAULT '',
			explanation TEXT NOT NULL DEFAULT '',
			question_type TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			skill TEXT NOT NULL DEFAULT '',
			difficulty_level TEXT NOT NULL DEFAULT '',
			has_figure INTEGER NOT NULL DEFAULT 0,
			is_complete INTEGER NOT NULL DEFAULT 0,
			needs_review INTEGER NOT NULL DEFAULT 0,
			source_file TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(run_id) REFERENCES extraction_runs(id) ON DELETE SET NULL
		);`,
		`CREATE TABLE IF NOT EXISTS review_cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_id TEXT NOT NULL UNIQUE,
			due DATETIME,
			stability REAL NOT NULL DEFAULT 0,
			difficulty REAL NOT NULL DEFAULT 0,
			elapsed_days INTEGER NOT NULL DEFAULT 0,
			scheduled_days INTEGER NOT NULL DEFAULT 0,
			reps INTEGER NOT NULL DEFAULT 0,
			lapses INTEGER NOT NULL DEFAULT 0,
			state INTEGER NOT NULL DEFAULT 0,
			last_review DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY(question_id) REFERENCES questions(question_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS review_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			scheduled_days INTEGER NOT NULL,
			elapsed_days INTEGER NOT NULL,
			state INTEGER NOT NULL,
			reviewed_at DATETIME NOT NULL,
			FOREIGN KEY(question_id) REFERENCES questions(question_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_domain ON questions(domain);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_skill ON questions(skill);`,
		`CREATE INDEX IF NOT EXISTS idx_review_cards_due ON review_cards(due);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("execute %q: %w", stmt, err)
		}
	}
	return nil
}
