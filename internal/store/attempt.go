package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/abaev/quizdrill/internal/model"
)

// RecordAttempt appends a completed attempt to the ledger. Attempts are
// insert-only; nothing ever updates or deletes them. Assigns an ID when the
// caller did not.
func (s *Store) RecordAttempt(a model.Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO attempts (id, email, exam, provider, score, completed_at,
		                       duration_minutes, batch_number, batch_range, answers)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Exam, a.Provider, a.Score, a.CompletedAt,
		a.DurationMinutes, a.BatchNumber, a.BatchRange, string(answersJSON),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the user's attempts for one exam, newest first.
func (s *Store) ListAttempts(email, exam, provider string) ([]model.Attempt, error) {
	rows, err := s.db.Query(
		`SELECT id, email, exam, provider, score, completed_at, duration_minutes,
		        batch_number, batch_range, answers
		 FROM attempts WHERE email = ? AND exam = ? AND provider = ?
		 ORDER BY completed_at DESC`, email, exam, provider,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		var answersJSON string
		if err := rows.Scan(&a.ID, &a.Email, &a.Exam, &a.Provider, &a.Score, &a.CompletedAt,
			&a.DurationMinutes, &a.BatchNumber, &a.BatchRange, &answersJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answersJSON), &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for attempt %s: %w", a.ID, err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListAllAttempts fans ListAttempts out across every known exam, tags each
// record with its exam identity, and re-sorts the merged result newest first.
func (s *Store) ListAllAttempts(email string) ([]model.Attempt, error) {
	refs, err := s.ListExams()
	if err != nil {
		return nil, err
	}
	var all []model.Attempt
	for _, ref := range refs {
		attempts, err := s.ListAttempts(email, ref.Exam, ref.Provider)
		if err != nil {
			return nil, fmt.Errorf("list attempts for %s/%s: %w", ref.Provider, ref.Exam, err)
		}
		all = append(all, attempts...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CompletedAt.After(all[j].CompletedAt)
	})
	return all, nil
}
