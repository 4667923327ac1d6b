package session

import (
	"sync"

	"github.com/abaev/quizdrill/internal/batch"
	"github.com/abaev/quizdrill/internal/model"
)

// Manager holds the single active session per authenticated user. The state
// is per-process only; there is no multi-process sharing and no draft-resume
// persistence.
type Manager struct {
	mu     sync.Mutex
	active map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]*Session)}
}

// Start begins a new session for the user, discarding any previous one.
func (m *Manager) Start(email string, ref model.ExamRef, questions []model.Question, meta model.Metadata, b batch.Batch) (*Session, error) {
	s, err := Start(email, ref, questions, meta, b)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.active[email] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the user's active session, or nil.
func (m *Manager) Get(email string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[email]
}

// Discard drops the user's active session. Navigating away and submitting
// both end here; a discarded session cannot be resumed.
func (m *Manager) Discard(email string) {
	m.mu.Lock()
	delete(m.active, email)
	m.mu.Unlock()
}
