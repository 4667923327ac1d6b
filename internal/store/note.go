package store

import (
	"database/sql"
	"time"

	"github.com/abaev/quizdrill/internal/model"
)

// UpsertNote writes the user's note for one question, replacing any prior
// text for the same composite key. Empty text is stored, not deleted.
func (s *Store) UpsertNote(n model.Note) error {
	_, err := s.db.Exec(
		`INSERT INTO notes (email, exam, provider, question_number, text, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email, exam, provider, question_number)
		 DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
		n.Email, n.Exam, n.Provider, n.QuestionNumber, n.Text, time.Now(),
	)
	return err
}

// GetNote returns the user's note for one question, or nil when none exists.
func (s *Store) GetNote(email, exam, provider string, number int) (*model.Note, error) {
	var n model.Note
	err := s.db.QueryRow(
		`SELECT email, exam, provider, question_number, text, updated_at
		 FROM notes WHERE email = ? AND exam = ? AND provider = ? AND question_number = ?`,
		email, exam, provider, number,
	).Scan(&n.Email, &n.Exam, &n.Provider, &n.QuestionNumber, &n.Text, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes returns all of a user's notes ordered by exam, provider, and
// question number.
func (s *Store) ListNotes(email string) ([]model.Note, error) {
	rows, err := s.db.Query(
		`SELECT email, exam, provider, question_number, text, updated_at
		 FROM notes WHERE email = ? ORDER BY exam, provider, question_number`, email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.Email, &n.Exam, &n.Provider, &n.QuestionNumber, &n.Text, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
