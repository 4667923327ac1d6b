// Package store persists question banks, attempt history, and notes in
// SQLite. Exams are keyed by their (exam, provider) natural key; each
// question is its own row so curator edits touch exactly one row.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/abaev/quizdrill/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by targeted updates that matched no row.
var ErrNotFound = errors.New("not found")

// ErrValidation marks input that the caller can correct; it is never a
// storage failure.
var ErrValidation = errors.New("validation")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer; one pooled connection also keeps :memory:
	// databases from evaporating between pool checkouts.
	db.SetMaxOpenConns(1)
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
	CREATE TABLE IF NOT EXISTS exams (
		exam TEXT NOT NULL,
		provider TEXT NOT NULL,
		session_time INTEGER NOT NULL DEFAULT 60,
		total_questions INTEGER NOT NULL DEFAULT 0,
		uploaded_questions INTEGER NOT NULL DEFAULT 0,
		questions_per_session INTEGER NOT NULL DEFAULT 10,
		missing_questions TEXT NOT NULL DEFAULT '[]',
		has_missing_questions INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (exam, provider)
	);

	CREATE TABLE IF NOT EXISTS questions (
		exam TEXT NOT NULL,
		provider TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		suggested_answer TEXT NOT NULL DEFAULT '',
		verified_answer TEXT NOT NULL DEFAULT '',
		is_marked INTEGER NOT NULL DEFAULT 0,
		comments TEXT NOT NULL DEFAULT '[]',
		vote_distribution TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (exam, provider, question_number),
		FOREIGN KEY (exam, provider) REFERENCES exams(exam, provider)
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		exam TEXT NOT NULL,
		provider TEXT NOT NULL,
		score REAL NOT NULL,
		completed_at DATETIME NOT NULL,
		duration_minutes REAL NOT NULL,
		batch_number INTEGER NOT NULL,
		batch_range TEXT NOT NULL,
		answers TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_user_exam
		ON attempts(email, exam, provider, completed_at);

	CREATE TABLE IF NOT EXISTS notes (
		email TEXT NOT NULL,
		exam TEXT NOT NULL,
		provider TEXT NOT NULL,
		question_number INTEGER NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (email, exam, provider, question_number)
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// MissingNumbers computes {1..total} minus the numbers present in questions,
// ascending.
func MissingNumbers(questions []model.Question, total int) []int {
	present := make(map[int]bool, len(questions))
	for _, q := range questions {
		present[q.Number] = true
	}
	missing := []int{}
	for n := 1; n <= total; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	sort.Ints(missing)
	return missing
}

// SaveExam wholesale-upserts an exam: questions replace any prior set in
// upload order, and metadata is recomputed from the new set. Runs in one
// transaction; a failure leaves the prior exam untouched.
func (s *Store) SaveExam(exam model.Exam) error {
	exam.Metadata.UploadedQuestions = len(exam.Questions)
	missing := MissingNumbers(exam.Questions, exam.Metadata.TotalQuestions)
	exam.Metadata.MissingQuestions = missing
	exam.Metadata.HasMissingQuestions = len(missing) > 0

	if exam.Metadata.SessionTime < 1 {
		return fmt.Errorf("%w: session time %d must be at least 1 minute",
			ErrValidation, exam.Metadata.SessionTime)
	}
	if exam.Metadata.QuestionsPerSession > exam.Metadata.UploadedQuestions {
		return fmt.Errorf("%w: questions per session %d exceeds uploaded count %d",
			ErrValidation, exam.Metadata.QuestionsPerSession, exam.Metadata.UploadedQuestions)
	}

	missingJSON, err := json.Marshal(missing)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO exams (exam, provider, session_time, total_questions, uploaded_questions,
		                    questions_per_session, missing_questions, has_missing_questions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(exam, provider) DO UPDATE SET
		   session_time = excluded.session_time,
		   total_questions = excluded.total_questions,
		   uploaded_questions = excluded.uploaded_questions,
		   questions_per_session = excluded.questions_per_session,
		   missing_questions = excluded.missing_questions,
		   has_missing_questions = excluded.has_missing_questions`,
		exam.Exam, exam.Provider,
		exam.Metadata.SessionTime, exam.Metadata.TotalQuestions, exam.Metadata.UploadedQuestions,
		exam.Metadata.QuestionsPerSession, string(missingJSON), exam.Metadata.HasMissingQuestions,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM questions WHERE exam = ? AND provider = ?`, exam.Exam, exam.Provider); err != nil {
		return err
	}
	for pos, q := range exam.Questions {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		commentsJSON, err := json.Marshal(q.Comments)
		if err != nil {
			return err
		}
		votesJSON, err := json.Marshal(q.VoteDistribution)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO questions (exam, provider, position, question_number, question_text,
			                        options, suggested_answer, verified_answer, is_marked,
			                        comments, vote_distribution)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			exam.Exam, exam.Provider, pos, q.Number, q.Text,
			string(optionsJSON), q.SuggestedAnswer, q.VerifiedAnswer, q.IsMarked,
			string(commentsJSON), string(votesJSON),
		)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", q.Number, err)
		}
	}

	return tx.Commit()
}

// ListExams returns the natural keys of all stored exams.
func (s *Store) ListExams() ([]model.ExamRef, error) {
	rows, err := s.db.Query(`SELECT exam, provider FROM exams ORDER BY exam, provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []model.ExamRef
	for rows.Next() {
		var ref model.ExamRef
		if err := rows.Scan(&ref.Exam, &ref.Provider); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// GetExam returns an exam with its questions in upload order, or nil if no
// such exam exists.
func (s *Store) GetExam(exam, provider string) (*model.Exam, error) {
	var e model.Exam
	var missingJSON string
	err := s.db.QueryRow(
		`SELECT exam, provider, session_time, total_questions, uploaded_questions,
		        questions_per_session, missing_questions, has_missing_questions
		 FROM exams WHERE exam = ? AND provider = ?`, exam, provider,
	).Scan(&e.Exam, &e.Provider, &e.Metadata.SessionTime, &e.Metadata.TotalQuestions,
		&e.Metadata.UploadedQuestions, &e.Metadata.QuestionsPerSession,
		&missingJSON, &e.Metadata.HasMissingQuestions)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(missingJSON), &e.Metadata.MissingQuestions); err != nil {
		return nil, fmt.Errorf("decode missing questions: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT question_number, question_text, options, suggested_answer, verified_answer,
		        is_marked, comments, vote_distribution
		 FROM questions WHERE exam = ? AND provider = ? ORDER BY position`, exam, provider,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var q model.Question
		var optionsJSON, commentsJSON, votesJSON string
		if err := rows.Scan(&q.Number, &q.Text, &optionsJSON, &q.SuggestedAnswer,
			&q.VerifiedAnswer, &q.IsMarked, &commentsJSON, &votesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for question %d: %w", q.Number, err)
		}
		if err := json.Unmarshal([]byte(commentsJSON), &q.Comments); err != nil {
			return nil, fmt.Errorf("decode comments for question %d: %w", q.Number, err)
		}
		if err := json.Unmarshal([]byte(votesJSON), &q.VoteDistribution); err != nil {
			return nil, fmt.Errorf("decode votes for question %d: %w", q.Number, err)
		}
		e.Questions = append(e.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateQuestion sets the verified answer and marked flag on exactly one
// question, leaving every other field and question untouched. Returns
// ErrNotFound when the question does not exist.
func (s *Store) UpdateQuestion(exam, provider string, number int, verified string, marked bool) error {
	res, err := s.db.Exec(
		`UPDATE questions SET verified_answer = ?, is_marked = ?
		 WHERE exam = ? AND provider = ? AND question_number = ?`,
		verified, marked, exam, provider, number,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMetadata replaces the whole metadata record, recomputing the missing
// numbers against the current stored question set and the new total.
// QuestionsPerSession is validated against the current uploaded count, not
// the new total.
func (s *Store) UpdateMetadata(exam, provider string, sessionTime, totalQuestions, perSession int) error {
	if sessionTime < 1 {
		return fmt.Errorf("%w: session time %d must be at least 1 minute", ErrValidation, sessionTime)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var uploaded int
	err = tx.QueryRow(
		`SELECT uploaded_questions FROM exams WHERE exam = ? AND provider = ?`, exam, provider,
	).Scan(&uploaded)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if perSession < 1 || perSession > uploaded {
		return fmt.Errorf("%w: questions per session %d must be between 1 and uploaded count %d",
			ErrValidation, perSession, uploaded)
	}

	rows, err := tx.Query(
		`SELECT question_number FROM questions WHERE exam = ? AND provider = ?`, exam, provider,
	)
	if err != nil {
		return err
	}
	var current []model.Question
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return err
		}
		current = append(current, model.Question{Number: n})
	}
	if err := rows.Close(); err != nil {
		return err
	}

	missing := MissingNumbers(current, totalQuestions)
	missingJSON, err := json.Marshal(missing)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE exams SET session_time = ?, total_questions = ?, questions_per_session = ?,
		        missing_questions = ?, has_missing_questions = ?
		 WHERE exam = ? AND provider = ?`,
		sessionTime, totalQuestions, perSession,
		string(missingJSON), len(missing) > 0, exam, provider,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
