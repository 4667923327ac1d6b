package handler

import (
	"net/http"
	"time"

	appI18n "github.com/abaev/quizdrill/internal/i18n"
	"github.com/abaev/quizdrill/internal/model"
)

func (h *Handler) handleGetNote(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	examName, provider := examKeyParams(r)
	number, ok := questionNumberParam(w, r)
	if !ok {
		return
	}

	note, err := h.store.GetNote(p.Email, examName, provider, number)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if note == nil {
		// Absence is a normal state for a note, not an error.
		respondJSON(w, http.StatusOK, map[string]string{"text": ""})
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// handleSaveNote upserts the caller's note for one question. Empty text is a
// stored value like any other; notes are never deleted through this endpoint.
func (h *Handler) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	examName, provider := examKeyParams(r)
	number, ok := questionNumberParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	note := model.Note{
		Email:          p.Email,
		Exam:           examName,
		Provider:       provider,
		QuestionNumber: number,
		Text:           req.Text,
		UpdatedAt:      time.Now(),
	}
	if err := h.store.UpsertNote(note); err != nil {
		storeError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "NoteSaved")
}

type noteGroup struct {
	Exam     string       `json:"exam"`
	Provider string       `json:"provider"`
	Notes    []model.Note `json:"notes"`
}

// handleListNotes returns the caller's notes across every exam, grouped by
// exam in store order.
func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	notes, err := h.store.ListNotes(p.Email)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if len(notes) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{
			"groups":  []noteGroup{},
			"message": appI18n.T(r.Context(), "NoNotes"),
		})
		return
	}

	var groups []noteGroup
	for _, n := range notes {
		if len(groups) == 0 || groups[len(groups)-1].Exam != n.Exam || groups[len(groups)-1].Provider != n.Provider {
			groups = append(groups, noteGroup{Exam: n.Exam, Provider: n.Provider})
		}
		g := &groups[len(groups)-1]
		g.Notes = append(g.Notes, n)
	}
	respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}
