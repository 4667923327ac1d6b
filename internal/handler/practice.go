package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"

	"github.com/abaev/quizdrill/internal/batch"
	appI18n "github.com/abaev/quizdrill/internal/i18n"
	"github.com/abaev/quizdrill/internal/model"
	"github.com/abaev/quizdrill/internal/session"
)

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	refs, err := h.store.ListExams()
	if err != nil {
		storeError(w, r, err)
		return
	}
	if len(refs) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{
			"exams":   []model.ExamRef{},
			"message": appI18n.T(r.Context(), "NoExams"),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exams": refs})
}

type examDetailResponse struct {
	*model.Exam
	Stats   model.VerificationStats `json:"stats"`
	Warning string                  `json:"warning,omitempty"`
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examName, provider := examKeyParams(r)
	exam, err := h.store.GetExam(examName, provider)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if exam == nil {
		respondMessage(w, r, http.StatusNotFound, "ExamNotFound")
		return
	}

	resp := examDetailResponse{
		Exam:  exam,
		Stats: model.Stats(exam.Questions),
	}
	if exam.Metadata.HasMissingQuestions {
		resp.Warning = appI18n.Tp(r.Context(), "MissingQuestionsWarning", len(exam.Metadata.MissingQuestions))
	}
	respondJSON(w, http.StatusOK, resp)
}

type batchListResponse struct {
	Batches     []batch.Batch `json:"batches"`
	MarkedCount int           `json:"markedCount"`
	Message     string        `json:"message,omitempty"`
}

// handleListBatches returns the fixed batch partition for an exam plus the
// size of the dynamic marked set.
func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	examName, provider := examKeyParams(r)
	exam, err := h.store.GetExam(examName, provider)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if exam == nil {
		respondMessage(w, r, http.StatusNotFound, "ExamNotFound")
		return
	}

	batches, err := batch.Plan(exam.Metadata.UploadedQuestions, exam.Metadata.QuestionsPerSession)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	marked := 0
	for _, q := range exam.Questions {
		if q.IsMarked {
			marked++
		}
	}
	resp := batchListResponse{Batches: batches, MarkedCount: marked}
	if marked > 0 {
		resp.Message = appI18n.Tp(r.Context(), "MarkedQuestionsFound", marked)
	}
	respondJSON(w, http.StatusOK, resp)
}

type startSessionRequest struct {
	Exam     string `json:"exam"`
	Provider string `json:"provider"`
	Mode     string `json:"mode"`  // "batch" (default) or "marked"
	Batch    int    `json:"batch"` // 1-based, ignored in marked mode
}

// sessionView is the live-session shape shared by start, get, answer and
// advance responses. Questions include verified answers: the single user is
// also the curator, so there is nothing to hide from them.
type sessionView struct {
	State                session.State    `json:"state"`
	Exam                 string           `json:"exam"`
	Provider             string           `json:"provider"`
	Batch                batch.Batch      `json:"batch"`
	CurrentIndex         int              `json:"currentIndex"`
	TimeRemainingSeconds int              `json:"timeRemainingSeconds"`
	Expired              bool             `json:"expired"`
	Warning              string           `json:"warning,omitempty"`
	Questions            []model.Question `json:"questions"`
}

func (h *Handler) sessionViewFor(r *http.Request, s *session.Session) sessionView {
	remaining := int(math.Ceil(s.TimeRemaining().Seconds()))
	v := sessionView{
		State:        s.State(),
		Exam:         s.Exam,
		Provider:     s.Provider,
		Batch:        s.Batch(),
		CurrentIndex: s.CurrentIndex(),
		Questions:    s.Questions(),
	}
	if remaining > 0 {
		v.TimeRemainingSeconds = remaining
	} else {
		v.Expired = true
		v.Warning = appI18n.T(r.Context(), "TimeUp")
	}
	return v
}

// handleStartSession starts a practice session, replacing any session the
// user already had running.
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exam, err := h.store.GetExam(req.Exam, req.Provider)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if exam == nil {
		respondMessage(w, r, http.StatusNotFound, "ExamNotFound")
		return
	}

	var (
		questions []model.Question
		b         batch.Batch
	)
	switch req.Mode {
	case "marked":
		questions, b, err = batch.Marked(exam.Questions)
		if err != nil {
			if errors.Is(err, batch.ErrNoMarked) {
				respondMessage(w, r, http.StatusBadRequest, "NoMarkedQuestions")
				return
			}
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	case "", "batch":
		batches, perr := batch.Plan(len(exam.Questions), exam.Metadata.QuestionsPerSession)
		if perr != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": perr.Error()})
			return
		}
		questions, err = batch.Slice(exam.Questions, req.Batch, exam.Metadata.QuestionsPerSession)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		b = batches[req.Batch-1]
	default:
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be batch or marked"})
		return
	}

	ref := model.ExamRef{Exam: exam.Exam, Provider: exam.Provider}
	s, err := h.sessions.Start(p.Email, ref, questions, exam.Metadata, b)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	slog.Info("session started", "email", p.Email, "exam", exam.Exam,
		"provider", exam.Provider, "batch", b.Label, "questions", len(questions))
	respondJSON(w, http.StatusCreated, h.sessionViewFor(r, s))
}

// activeSession fetches the caller's live session or reports its absence.
func (h *Handler) activeSession(w http.ResponseWriter, r *http.Request) *session.Session {
	p := model.PrincipalFromContext(r.Context())
	s := h.sessions.Get(p.Email)
	if s == nil {
		respondMessage(w, r, http.StatusNotFound, "NoActiveSession")
		return nil
	}
	return s
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s := h.activeSession(w, r)
	if s == nil {
		return
	}
	respondJSON(w, http.StatusOK, h.sessionViewFor(r, s))
}

func (h *Handler) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	h.sessions.Discard(p.Email)
	w.WriteHeader(http.StatusNoContent)
}

// sessionError maps engine errors onto HTTP statuses. Expiry and wrong-state
// errors are conflicts with the session lifecycle, not bad input.
func sessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrExpired):
		respondMessage(w, r, http.StatusConflict, "TimeUp")
	case errors.Is(err, session.ErrNotInProgress):
		respondMessage(w, r, http.StatusConflict, "NoActiveSession")
	default:
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s := h.activeSession(w, r)
	if s == nil {
		return
	}
	var req struct {
		Index  int    `json:"index"`
		Answer string `json:"answer"`
		Marked bool   `json:"marked"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.RecordAnswer(req.Index, req.Answer, req.Marked); err != nil {
		sessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":              appI18n.T(r.Context(), "AnswerSaved"),
		"timeRemainingSeconds": int(math.Ceil(s.TimeRemaining().Seconds())),
	})
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s := h.activeSession(w, r)
	if s == nil {
		return
	}
	var req struct {
		Direction session.Direction `json:"direction"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Advance(req.Direction); err != nil {
		sessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"currentIndex": s.CurrentIndex()})
}

type submitResponse struct {
	Attempt model.Attempt `json:"attempt"`
	Message string        `json:"message"`
}

// handleSubmit scores the session, appends exactly one attempt to the ledger
// and discards the session. A submit after expiry or after a previous submit
// is a conflict and records nothing.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s := h.activeSession(w, r)
	if s == nil {
		return
	}
	att, err := s.Submit()
	if err != nil {
		sessionError(w, r, err)
		return
	}
	att.ID = uuid.NewString()
	if err := h.store.RecordAttempt(att); err != nil {
		// The session is already terminal; surface the failure instead of
		// silently dropping the score.
		storeError(w, r, err)
		return
	}
	p := model.PrincipalFromContext(r.Context())
	h.sessions.Discard(p.Email)

	slog.Info("session submitted", "email", att.Email, "exam", att.Exam,
		"provider", att.Provider, "score", att.Score, "batch", att.BatchRange)
	respondJSON(w, http.StatusOK, submitResponse{
		Attempt: att,
		Message: appI18n.Td(r.Context(), "FinalScore", map[string]any{"Score": att.Score}),
	})
}
