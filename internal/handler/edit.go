package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/abaev/quizdrill/internal/store"
)

// handleUpdateQuestion sets the verified answer and marked flag on a single
// question without touching its siblings.
func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	examName, provider := examKeyParams(r)
	number, ok := questionNumberParam(w, r)
	if !ok {
		return
	}
	var req struct {
		VerifiedAnswer string `json:"verifiedAnswer"`
		IsMarked       bool   `json:"isMarked"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.store.UpdateQuestion(examName, provider, number, req.VerifiedAnswer, req.IsMarked)
	if err != nil {
		if notFoundMessage(w, r, err, "QuestionNotFound") {
			return
		}
		storeError(w, r, err)
		return
	}
	slog.Debug("question updated", "exam", examName, "provider", provider,
		"question", number, "marked", req.IsMarked)
	respondMessage(w, r, http.StatusOK, "AnswerSaved")
}

// handleUpdateMetadata replaces the exam's session parameters and declared
// total, recomputing the missing set against the new total.
func (h *Handler) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	examName, provider := examKeyParams(r)
	var req struct {
		SessionTime         int `json:"sessionTime"`
		TotalQuestions      int `json:"totalQuestions"`
		QuestionsPerSession int `json:"questionsPerSession"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.store.UpdateMetadata(examName, provider, req.SessionTime, req.TotalQuestions, req.QuestionsPerSession)
	if err != nil {
		if notFoundMessage(w, r, err, "ExamNotFound") {
			return
		}
		if errors.Is(err, store.ErrValidation) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		storeError(w, r, err)
		return
	}
	slog.Info("exam settings updated", "exam", examName, "provider", provider,
		"sessionTime", req.SessionTime, "perSession", req.QuestionsPerSession)
	respondMessage(w, r, http.StatusOK, "SettingsSaved")
}
