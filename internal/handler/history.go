package handler

import (
	"net/http"

	appI18n "github.com/abaev/quizdrill/internal/i18n"
	"github.com/abaev/quizdrill/internal/model"
)

func attemptsResponse(w http.ResponseWriter, r *http.Request, attempts []model.Attempt) {
	if len(attempts) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{
			"attempts": []model.Attempt{},
			"message":  appI18n.T(r.Context(), "NoAttempts"),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

// handleExamAttempts lists the caller's attempts for one exam, newest first.
func (h *Handler) handleExamAttempts(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	examName, provider := examKeyParams(r)
	attempts, err := h.store.ListAttempts(p.Email, examName, provider)
	if err != nil {
		storeError(w, r, err)
		return
	}
	attemptsResponse(w, r, attempts)
}

// handleAllAttempts lists the caller's attempts across every registered exam.
func (h *Handler) handleAllAttempts(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	attempts, err := h.store.ListAllAttempts(p.Email)
	if err != nil {
		storeError(w, r, err)
		return
	}
	attemptsResponse(w, r, attempts)
}
