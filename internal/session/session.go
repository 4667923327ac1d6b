// Package session owns the state of one in-progress practice attempt: the
// question snapshot, the current position, the deadline, and terminal
// scoring. Sessions are ephemeral; nothing here touches storage.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/abaev/quizdrill/internal/batch"
	"github.com/abaev/quizdrill/internal/model"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

// Direction moves the current-question pointer.
type Direction string

const (
	DirPrev Direction = "prev"
	DirNext Direction = "next"
)

var (
	// ErrEmptyQuestions means a session was started with no questions.
	ErrEmptyQuestions = errors.New("cannot start a session with no questions")
	// ErrExpired means the deadline has passed; the session is unusable.
	ErrExpired = errors.New("session time is up")
	// ErrNotInProgress means the session was already submitted.
	ErrNotInProgress = errors.New("session is not in progress")
	// ErrBadIndex means an answer targeted a question outside the snapshot.
	ErrBadIndex = errors.New("question index out of range")
	// ErrBadDirection means an unknown navigation direction.
	ErrBadDirection = errors.New("direction must be prev or next")
)

// Session is one live attempt. The questions are a snapshot copy: bank edits
// made while the session runs are not visible until the next fetch. All
// methods are safe for concurrent use; the same session is shared between
// handler goroutines polling state and recording answers.
type Session struct {
	Email    string
	Exam     string
	Provider string

	mu        sync.Mutex
	questions []model.Question
	current   int
	startedAt time.Time
	deadline  time.Time
	batch     batch.Batch
	state     State

	now func() time.Time
}

// Start transitions a new session into InProgress. Fails before any state
// exists when the question set is empty.
func Start(email string, ref model.ExamRef, questions []model.Question, meta model.Metadata, b batch.Batch) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestions
	}
	snapshot := make([]model.Question, len(questions))
	copy(snapshot, questions)

	s := &Session{
		Email:     email,
		Exam:      ref.Exam,
		Provider:  ref.Provider,
		questions: snapshot,
		batch:     b,
		state:     StateInProgress,
		now:       time.Now,
	}
	s.startedAt = s.now()
	s.deadline = s.startedAt.Add(time.Duration(meta.SessionTime) * time.Minute)
	return s, nil
}

// State reports the lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Batch reports which slice of the exam this session covers.
func (s *Session) Batch() batch.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// StartedAt reports when the session began.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// CurrentIndex reports the current question pointer.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Questions returns a copy of the session's question snapshot, so the caller
// can render it while another goroutine records answers.
func (s *Session) Questions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// TimeRemaining computes deadline minus now, lazily; there is no background
// timer. A non-positive value means every further call fails with ErrExpired.
// This is a soft client-side guard, not a security boundary.
func (s *Session) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining()
}

func (s *Session) remaining() time.Duration {
	return s.deadline.Sub(s.now())
}

// usable is called with the lock held.
func (s *Session) usable() error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if s.remaining() <= 0 {
		return ErrExpired
	}
	return nil
}

// RecordAnswer stores the bare option letter for the question at index and
// sets its review flag. Re-answering overwrites.
func (s *Session) RecordAnswer(index int, letter string, marked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return ErrBadIndex
	}
	s.questions[index].UserAnswer = letter
	s.questions[index].IsMarked = marked
	return nil
}

// Advance moves the pointer one question in the given direction, clamped to
// the snapshot bounds. Boundary moves are no-ops. Answering the current
// question is not required.
func (s *Session) Advance(dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	switch dir {
	case DirPrev:
		if s.current > 0 {
			s.current--
		}
	case DirNext:
		if s.current < len(s.questions)-1 {
			s.current++
		}
	default:
		return ErrBadDirection
	}
	return nil
}

// Submit transitions the session to Submitted (one-way) and computes the
// terminal attempt record. Correctness is a case-insensitive comparison of
// the recorded letter against the verified answer; unanswered questions
// count as incorrect. A second Submit fails and produces nothing.
func (s *Session) Submit() (model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return model.Attempt{}, err
	}
	s.state = StateSubmitted

	answers := make([]model.AttemptAnswer, 0, len(s.questions))
	correct := 0
	for _, q := range s.questions {
		user := strings.ToUpper(q.UserAnswer)
		verified := strings.ToUpper(q.VerifiedAnswer)
		ok := user != "" && user == verified
		if ok {
			correct++
		}
		answers = append(answers, model.AttemptAnswer{
			QuestionNumber: q.Number,
			VerifiedAnswer: verified,
			UserAnswer:     user,
			Correct:        ok,
		})
	}

	end := s.now()
	return model.Attempt{
		Email:           s.Email,
		Exam:            s.Exam,
		Provider:        s.Provider,
		Score:           100 * float64(correct) / float64(len(s.questions)),
		CompletedAt:     end,
		DurationMinutes: end.Sub(s.startedAt).Minutes(),
		BatchNumber:     s.batch.Number,
		BatchRange:      s.batch.Label,
		Answers:         answers,
	}, nil
}
