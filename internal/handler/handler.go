// Package handler exposes the JSON API: the student-facing join/exam/attempt
// endpoints and the cookie-authenticated admin endpoints teachers use to
// create exams and run live sessions.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hamidullo/eduexam/internal/flow"
	appI18n "github.com/hamidullo/eduexam/internal/i18n"
	"github.com/hamidullo/eduexam/internal/model"
	"github.com/hamidullo/eduexam/internal/store"
)

// Config holds handler-level settings.
type Config struct {
	SecureCookies bool
}

// QuestionParser turns raw exam text into structured questions. It is an
// interface so the admin import endpoints can be tested without an LLM.
type QuestionParser interface {
	ParseQuestions(ctx context.Context, text string) ([]model.Question, error)
	FixFormatting(ctx context.Context, text string) string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	parser   QuestionParser
	flow     *flow.Controller
	validate *validator.Validate
	config   Config
}

// New creates a new Handler. parser may be nil when no LLM is configured; the
// import endpoints then answer 503.
func New(s *store.Store, p QuestionParser, fc *flow.Controller, cfg Config) *Handler {
	return &Handler{
		store:    s,
		parser:   p,
		flow:     fc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/join", h.handleJoin)
		r.Get("/exams/{code}", h.handleExamView)
		r.Post("/exams/{code}/attempts", h.handleBeginAttempt)
		r.Get("/exams/{code}/attempts/resume", h.handleResumeAttempt)
		r.Put("/attempts/{attemptID}/answers", h.handleSyncAnswers)
		r.Post("/attempts/{attemptID}/finish", h.handleFinishAttempt)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.handleLogin)
			r.Post("/logout", h.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth)
				r.Get("/exams", h.handleListExams)
				r.Post("/exams", h.handleCreateExam)
				r.Get("/exams/{code}/export", h.handleExportExam)
				r.Post("/exams/{code}/sessions", h.handleStartSession)
				r.Post("/sessions/{sessionID}/end", h.handleEndSession)
				r.Get("/sessions", h.handleListSessions)
				r.Get("/attempts", h.handleListAttempts)
				r.Post("/import", h.handleImport)
				r.Post("/autofix", h.handleAutofix)
			})
		})
	})
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError writes a localized error message.
func respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

// decodeRequest decodes the JSON body into dst and runs struct validation.
// A false return means the response has already been written.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}
