package store

import (
	"sort"
	"time"

	"github.com/abaev/quizdrill/internal/cache"
	"github.com/abaev/quizdrill/internal/model"
)

const examListKey = "exams"

// Cached wraps a Store with time-bounded read caches for the hot listing
// paths: exam list, exam detail, and attempt history. Every write goes
// straight to the store and invalidates the affected keys before returning;
// note reads and writes bypass the cache entirely.
type Cached struct {
	store *Store

	lists    *cache.Cache[[]model.ExamRef]
	exams    *cache.Cache[*model.Exam]
	attempts *cache.Cache[[]model.Attempt]
}

// NewCached wraps s with read caches bounded by ttl.
func NewCached(s *Store, ttl time.Duration) *Cached {
	return &Cached{
		store:    s,
		lists:    cache.New[[]model.ExamRef](ttl),
		exams:    cache.New[*model.Exam](ttl),
		attempts: cache.New[[]model.Attempt](ttl),
	}
}

func (c *Cached) Close() error { return c.store.Close() }

func examKey(exam, provider string) string {
	return provider + "\x00" + exam
}

func attemptKey(email, exam, provider string) string {
	return email + "\x00" + provider + "\x00" + exam
}

// ListExams serves the exam listing through the cache.
func (c *Cached) ListExams() ([]model.ExamRef, error) {
	return c.lists.Get(examListKey, c.store.ListExams)
}

// GetExam serves exam detail through the cache.
func (c *Cached) GetExam(exam, provider string) (*model.Exam, error) {
	return c.exams.Get(examKey(exam, provider), func() (*model.Exam, error) {
		return c.store.GetExam(exam, provider)
	})
}

// ListAttempts serves the user's per-exam attempt history through the cache.
func (c *Cached) ListAttempts(email, exam, provider string) ([]model.Attempt, error) {
	return c.attempts.Get(attemptKey(email, exam, provider), func() ([]model.Attempt, error) {
		return c.store.ListAttempts(email, exam, provider)
	})
}

// ListAllAttempts fans out across the (cached) exam list and per-exam
// attempt caches, then re-sorts the merged result newest first.
func (c *Cached) ListAllAttempts(email string) ([]model.Attempt, error) {
	refs, err := c.ListExams()
	if err != nil {
		return nil, err
	}
	var all []model.Attempt
	for _, ref := range refs {
		attempts, err := c.ListAttempts(email, ref.Exam, ref.Provider)
		if err != nil {
			return nil, err
		}
		all = append(all, attempts...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CompletedAt.After(all[j].CompletedAt)
	})
	return all, nil
}

// SaveExam writes through and invalidates the exam list and detail caches.
func (c *Cached) SaveExam(exam model.Exam) error {
	if err := c.store.SaveExam(exam); err != nil {
		return err
	}
	c.lists.Invalidate(examListKey)
	c.exams.Invalidate(examKey(exam.Exam, exam.Provider))
	return nil
}

// UpdateQuestion writes through and invalidates the exam detail cache so the
// next read observes the new annotation.
func (c *Cached) UpdateQuestion(exam, provider string, number int, verified string, marked bool) error {
	if err := c.store.UpdateQuestion(exam, provider, number, verified, marked); err != nil {
		return err
	}
	c.exams.Invalidate(examKey(exam, provider))
	return nil
}

// UpdateMetadata writes through and invalidates the exam detail cache.
func (c *Cached) UpdateMetadata(exam, provider string, sessionTime, totalQuestions, perSession int) error {
	if err := c.store.UpdateMetadata(exam, provider, sessionTime, totalQuestions, perSession); err != nil {
		return err
	}
	c.exams.Invalidate(examKey(exam, provider))
	return nil
}

// RecordAttempt writes through and invalidates the user's attempt history
// for that exam.
func (c *Cached) RecordAttempt(a model.Attempt) error {
	if err := c.store.RecordAttempt(a); err != nil {
		return err
	}
	c.attempts.Invalidate(attemptKey(a.Email, a.Exam, a.Provider))
	return nil
}

// UpsertNote bypasses the cache; notes are never cached.
func (c *Cached) UpsertNote(n model.Note) error { return c.store.UpsertNote(n) }

// GetNote bypasses the cache.
func (c *Cached) GetNote(email, exam, provider string, number int) (*model.Note, error) {
	return c.store.GetNote(email, exam, provider, number)
}

// ListNotes bypasses the cache.
func (c *Cached) ListNotes(email string) ([]model.Note, error) {
	return c.store.ListNotes(email)
}

// CreateAuthSession passes through to the store.
func (c *Cached) CreateAuthSession(email, name string) (string, error) {
	return c.store.CreateAuthSession(email, name)
}

// GetAuthSession passes through to the store.
func (c *Cached) GetAuthSession(token string) (*model.AuthSession, error) {
	return c.store.GetAuthSession(token)
}

// DeleteAuthSession passes through to the store.
func (c *Cached) DeleteAuthSession(token string) error {
	return c.store.DeleteAuthSession(token)
}
