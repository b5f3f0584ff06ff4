// Package store persists generated quizzes and finalized sources in SQLite.
// Quiz and source documents are stored as JSON bodies; only the fields worth
// querying get their own columns.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AnchitSingh/AI-Study-Coach/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		total_questions INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		body TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		word_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		body TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// QuizSummary is one row of a quiz listing.
type QuizSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Subject        string    `json:"subject"`
	TotalQuestions int       `json:"totalQuestions"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SaveQuiz inserts or replaces a quiz.
func (s *Store) SaveQuiz(q model.Quiz) error {
	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	createdAt := q.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.Exec(
		`INSERT INTO quizzes (id, title, subject, total_questions, created_at, body)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, subject = excluded.subject,
		 total_questions = excluded.total_questions, body = excluded.body`,
		q.ID, q.Title, q.Subject, q.TotalQuestions, createdAt, string(body),
	)
	return err
}

// GetQuiz returns a quiz by ID, or (zero, sql.ErrNoRows) when absent.
func (s *Store) GetQuiz(id string) (model.Quiz, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM quizzes WHERE id = ?`, id).Scan(&body)
	if err != nil {
		return model.Quiz{}, err
	}
	var q model.Quiz
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		return model.Quiz{}, fmt.Errorf("unmarshal quiz %s: %w", id, err)
	}
	return q, nil
}

// ListQuizzes returns quiz summaries, newest first.
func (s *Store) ListQuizzes() ([]QuizSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, title, subject, total_questions, created_at FROM quizzes ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QuizSummary
	for rows.Next() {
		var q QuizSummary
		if err := rows.Scan(&q.ID, &q.Title, &q.Subject, &q.TotalQuestions, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteQuiz removes a quiz by ID.
func (s *Store) DeleteQuiz(id string) error {
	_, err := s.db.Exec(`DELETE FROM quizzes WHERE id = ?`, id)
	return err
}

// SaveSource inserts or replaces a finalized source.
func (s *Store) SaveSource(id string, src model.FinalizedSource) error {
	body, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal source: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sources (id, source_type, title, word_count, created_at, body)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET source_type = excluded.source_type, title = excluded.title,
		 word_count = excluded.word_count, body = excluded.body`,
		id, string(src.SourceType), src.Title, src.WordCount, time.Now(), string(body),
	)
	return err
}

// GetSource returns a finalized source by ID, or (zero, sql.ErrNoRows)
// when absent.
func (s *Store) GetSource(id string) (model.FinalizedSource, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM sources WHERE id = ?`, id).Scan(&body)
	if err != nil {
		return model.FinalizedSource{}, err
	}
	var src model.FinalizedSource
	if err := json.Unmarshal([]byte(body), &src); err != nil {
		return model.FinalizedSource{}, fmt.Errorf("unmarshal source %s: %w", id, err)
	}
	return src, nil
}

// QuizCount returns the number of stored quizzes.
func (s *Store) QuizCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM quizzes`).Scan(&count)
	return count, err
}
