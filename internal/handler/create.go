package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	appI18n "github.com/abaev/quizdrill/internal/i18n"
	"github.com/abaev/quizdrill/internal/model"
	"github.com/abaev/quizdrill/internal/store"
)

type uploadRequest struct {
	Questions           []model.QuestionUpload `json:"questions"`
	SessionTime         int                    `json:"sessionTime"`
	TotalQuestions      int                    `json:"totalQuestions"`
	QuestionsPerSession int                    `json:"questionsPerSession"`
}

type uploadResponse struct {
	Exam     string         `json:"exam"`
	Provider string         `json:"provider"`
	Metadata model.Metadata `json:"metadata"`
	Message  string         `json:"message"`
	Warning  string         `json:"warning,omitempty"`
}

// handleUploadExam ingests a question dump and registers the exam. The exam
// identity comes from the questions themselves; every element must agree.
func (h *Handler) handleUploadExam(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Questions) == 0 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "questions must not be empty"})
		return
	}

	examName := strings.TrimSpace(req.Questions[0].Exam)
	provider := strings.TrimSpace(req.Questions[0].Provider)
	if examName == "" || provider == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "questions must carry exam and provider names"})
		return
	}
	for _, q := range req.Questions {
		if strings.TrimSpace(q.Exam) != examName || strings.TrimSpace(q.Provider) != provider {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "all questions must belong to the same exam"})
			return
		}
	}

	exam := model.Exam{
		Exam:     examName,
		Provider: provider,
		Metadata: model.Metadata{
			SessionTime:         req.SessionTime,
			TotalQuestions:      req.TotalQuestions,
			QuestionsPerSession: req.QuestionsPerSession,
		},
	}
	for _, q := range req.Questions {
		exam.Questions = append(exam.Questions, q.Question())
	}
	if exam.Metadata.SessionTime <= 0 {
		exam.Metadata.SessionTime = 30
	}
	if exam.Metadata.TotalQuestions <= 0 {
		exam.Metadata.TotalQuestions = len(exam.Questions)
	}
	if exam.Metadata.QuestionsPerSession <= 0 {
		exam.Metadata.QuestionsPerSession = len(exam.Questions)
	}

	if err := h.store.SaveExam(exam); err != nil {
		if errors.Is(err, store.ErrValidation) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		storeError(w, r, err)
		return
	}

	// SaveExam recomputed the derived metadata; mirror it for the response.
	exam.Metadata.UploadedQuestions = len(exam.Questions)
	exam.Metadata.MissingQuestions = store.MissingNumbers(exam.Questions, exam.Metadata.TotalQuestions)
	exam.Metadata.HasMissingQuestions = len(exam.Metadata.MissingQuestions) > 0

	resp := uploadResponse{
		Exam:     exam.Exam,
		Provider: exam.Provider,
		Metadata: exam.Metadata,
		Message:  appI18n.T(r.Context(), "ExamSaved"),
	}
	if exam.Metadata.HasMissingQuestions {
		resp.Warning = appI18n.Tp(r.Context(), "MissingQuestionsWarning", len(exam.Metadata.MissingQuestions))
	}
	slog.Info("exam uploaded", "exam", exam.Exam, "provider", exam.Provider,
		"questions", len(exam.Questions), "missing", len(exam.Metadata.MissingQuestions))
	respondJSON(w, http.StatusCreated, resp)
}
