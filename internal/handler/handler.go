// Package handler exposes the JSON API. Each use case (practice, create,
// edit, history, notes) gets its own handler file behind the common
// (exam, provider) key parameters; no shared dispatch beyond the router.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abaev/quizdrill/internal/auth"
	appI18n "github.com/abaev/quizdrill/internal/i18n"
	"github.com/abaev/quizdrill/internal/model"
	"github.com/abaev/quizdrill/internal/session"
	"github.com/abaev/quizdrill/internal/store"
)

const sessionCookieName = "session"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Cached
	sessions *session.Manager
	verifier auth.Verifier
	config   model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Cached, v auth.Verifier, cfg model.ServerConfig) *Handler {
	return &Handler{
		store:    s,
		sessions: session.NewManager(),
		verifier: v,
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/auth/logout", h.handleLogout)
		r.Get("/me", h.handleMe)

		r.Post("/exams", h.handleUploadExam)
		r.Get("/exams", h.handleListExams)
		r.Get("/exams/{provider}/{exam}", h.handleGetExam)
		r.Put("/exams/{provider}/{exam}/metadata", h.handleUpdateMetadata)
		r.Put("/exams/{provider}/{exam}/questions/{number}", h.handleUpdateQuestion)
		r.Get("/exams/{provider}/{exam}/questions/{number}/note", h.handleGetNote)
		r.Put("/exams/{provider}/{exam}/questions/{number}/note", h.handleSaveNote)
		r.Get("/exams/{provider}/{exam}/batches", h.handleListBatches)
		r.Get("/exams/{provider}/{exam}/attempts", h.handleExamAttempts)

		r.Get("/attempts", h.handleAllAttempts)
		r.Get("/notes", h.handleListNotes)

		r.Post("/session", h.handleStartSession)
		r.Get("/session", h.handleGetSession)
		r.Delete("/session", h.handleDiscardSession)
		r.Post("/session/answer", h.handleAnswer)
		r.Post("/session/advance", h.handleAdvance)
		r.Post("/session/submit", h.handleSubmit)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondMessage sends a localized single-message body.
func respondMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"message": appI18n.T(r.Context(), msgID)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// examKeyParams pulls the (exam, provider) natural key from the URL.
func examKeyParams(r *http.Request) (exam, provider string) {
	return chi.URLParam(r, "exam"), chi.URLParam(r, "provider")
}

func questionNumberParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid question number"})
		return 0, false
	}
	return n, true
}

// storeError reports a failed store call. The client keeps its draft and
// decides whether to retry; nothing is retried here.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("store operation failed", "error", err)
	respondMessage(w, r, http.StatusInternalServerError, "SaveFailed")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.verifier.Verify(req.Token)
	if err != nil {
		respondMessage(w, r, http.StatusUnauthorized, "LoginRequired")
		return
	}
	if err := auth.Authorize(p, h.config.AllowedEmail); err != nil {
		slog.Warn("login rejected", "email", p.Email)
		respondMessage(w, r, http.StatusForbidden, "Unauthorized")
		return
	}

	token, err := h.store.CreateAuthSession(p.Email, p.Name)
	if err != nil {
		storeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("user logged in", "email", p.Email)
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}
	if p := model.PrincipalFromContext(r.Context()); p != nil {
		h.sessions.Discard(p.Email)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.PrincipalFromContext(r.Context()))
}

// requireAuth short-circuits unauthenticated or unauthorized requests before
// any core operation runs.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondMessage(w, r, http.StatusUnauthorized, "LoginRequired")
			return
		}

		sess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			respondMessage(w, r, http.StatusUnauthorized, "LoginRequired")
			return
		}
		if sess == nil {
			respondMessage(w, r, http.StatusUnauthorized, "LoginRequired")
			return
		}
		// Re-check the allow list on every request: a login that predates an
		// allow-list change must not keep working.
		p := model.Principal{Email: sess.Email, Name: sess.Name}
		if err := auth.Authorize(p, h.config.AllowedEmail); err != nil {
			respondMessage(w, r, http.StatusForbidden, "Unauthorized")
			return
		}

		ctx := model.ContextWithPrincipal(r.Context(), &p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func notFoundMessage(w http.ResponseWriter, r *http.Request, err error, msgID string) bool {
	if errors.Is(err, store.ErrNotFound) {
		respondMessage(w, r, http.StatusNotFound, msgID)
		return true
	}
	return false
}
