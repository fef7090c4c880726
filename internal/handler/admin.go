package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hamidullo/eduexam/internal/code"
	appI18n "github.com/hamidullo/eduexam/internal/i18n"
	"github.com/hamidullo/eduexam/internal/model"
)

// codeRetries bounds how often a freshly generated code is redrawn on
// collision before the request fails.
const codeRetries = 5

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		slog.Error("list exams", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	respondJSON(w, http.StatusOK, exams)
}

type createExamRequest struct {
	Title           string           `json:"title" validate:"required"`
	Month           int              `json:"month" validate:"min=1,max=16"`
	Mode            model.ExamMode   `json:"mode" validate:"required,oneof=ADULT KIDS"`
	DurationMinutes int              `json:"duration_minutes" validate:"min=1"`
	Questions       []model.Question `json:"questions" validate:"required,min=1"`
}

// createExam validates the questions, draws a unique short code and stores
// the exam. A false second return means the response was already written.
func (h *Handler) createExam(w http.ResponseWriter, r *http.Request, req createExamRequest) (model.Exam, bool) {
	for i, q := range req.Questions {
		if err := q.Validate(); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("question %d: %v", i+1, err),
			})
			return model.Exam{}, false
		}
	}

	shortCode, err := h.uniqueShortCode()
	if err != nil {
		slog.Error("generate short code", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return model.Exam{}, false
	}

	exam, err := h.store.InsertExam(model.Exam{
		ShortCode:       shortCode,
		Title:           req.Title,
		Month:           req.Month,
		Mode:            req.Mode,
		DurationMinutes: req.DurationMinutes,
		Questions:       req.Questions,
	})
	if err != nil {
		slog.Error("insert exam", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return model.Exam{}, false
	}

	slog.Info("created exam", "short_code", exam.ShortCode, "title", exam.Title, "questions", len(exam.Questions))
	return exam, true
}

// uniqueShortCode draws short codes until one is unused.
func (h *Handler) uniqueShortCode() (string, error) {
	for i := 0; i < codeRetries; i++ {
		c := code.NewShortCode()
		existing, err := h.store.GetExamByCode(c)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no unused short code after %d tries", codeRetries)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	exam, ok := h.createExam(w, r, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, exam)
}

type importRequest struct {
	Title           string         `json:"title" validate:"required"`
	Month           int            `json:"month" validate:"min=1,max=16"`
	Mode            model.ExamMode `json:"mode" validate:"required,oneof=ADULT KIDS"`
	DurationMinutes int            `json:"duration_minutes" validate:"min=1"`
	Text            string         `json:"text" validate:"required"`
}

// handleImport runs the LLM parse over raw exam text and stores the resulting
// exam in one step.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.parser == nil {
		respondError(w, r, http.StatusServiceUnavailable, "ParseFailed")
		return
	}

	var req importRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	questions, err := h.parser.ParseQuestions(r.Context(), req.Text)
	if err != nil {
		slog.Error("parse questions", "error", err)
		respondError(w, r, http.StatusUnprocessableEntity, "ParseFailed")
		return
	}

	exam, ok := h.createExam(w, r, createExamRequest{
		Title:           req.Title,
		Month:           req.Month,
		Mode:            req.Mode,
		DurationMinutes: req.DurationMinutes,
		Questions:       questions,
	})
	if !ok {
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"exam":    exam,
		"message": appI18n.Tp(r.Context(), "QuestionsParsed", len(questions)),
	})
}

type autofixRequest struct {
	Text string `json:"text" validate:"required"`
}

// handleAutofix reformats messy exam text into the house format for teacher
// review. It never fails the text: worst case it comes back unchanged.
func (h *Handler) handleAutofix(w http.ResponseWriter, r *http.Request) {
	if h.parser == nil {
		respondError(w, r, http.StatusServiceUnavailable, "ParseFailed")
		return
	}

	var req autofixRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"text": h.parser.FixFormatting(r.Context(), req.Text),
	})
}

// handleStartSession opens a live window on an exam under a fresh join code.
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	exam := h.getExam(w, r)
	if exam == nil {
		return
	}

	joinCode, err := h.uniqueJoinCode()
	if err != nil {
		slog.Error("generate join code", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	sess, err := h.store.InsertSession(model.Session{
		JoinCode:      joinCode,
		ExamShortCode: exam.ShortCode,
	})
	if err != nil {
		slog.Error("insert session", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	slog.Info("started session", "session_id", sess.ID, "join_code", sess.JoinCode, "short_code", exam.ShortCode)
	respondJSON(w, http.StatusCreated, map[string]any{
		"session": sess,
		"message": appI18n.Td(r.Context(), "SessionStarted", map[string]any{"Code": sess.JoinCode}),
	})
}

// uniqueJoinCode draws join codes until one is free among active sessions.
// Codes of ended sessions may be reused.
func (h *Handler) uniqueJoinCode() (string, error) {
	for i := 0; i < codeRetries; i++ {
		c := code.NewJoinCode()
		existing, err := h.store.FindActiveSessionByJoinCode(c)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no unused join code after %d tries", codeRetries)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.store.GetSession(sessionID)
	if err != nil {
		slog.Error("get session", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if sess == nil {
		respondError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	if err := h.store.EndSession(sessionID); err != nil {
		slog.Error("end session", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	slog.Info("ended session", "session_id", sessionID, "join_code", sess.JoinCode)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListActiveSessions()
	if err != nil {
		slog.Error("list sessions", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// handleListAttempts returns attempts, optionally filtered by ?exam=CODE.
func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	var (
		attempts []model.Attempt
		err      error
	)
	if shortCode := r.URL.Query().Get("exam"); shortCode != "" {
		attempts, err = h.store.ListAttemptsForExam(shortCode)
	} else {
		attempts, err = h.store.ListAttempts()
	}
	if err != nil {
		slog.Error("list attempts", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	respondJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleExportExam(w http.ResponseWriter, r *http.Request) {
	exam := h.getExam(w, r)
	if exam == nil {
		return
	}

	export, err := h.store.ExportExamResults(exam.ShortCode)
	if err != nil {
		slog.Error("export exam", "short_code", exam.ShortCode, "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	respondJSON(w, http.StatusOK, export)
}
