package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hamidullo/eduexam/internal/code"
	"github.com/hamidullo/eduexam/internal/flow"
	"github.com/hamidullo/eduexam/internal/model"
)

// attemptCookieName is the per-exam resumption pointer. Scoping it to the exam
// short code lets one browser hold attempts on different exams at once.
func attemptCookieName(shortCode string) string {
	return "attempt_" + shortCode
}

func (h *Handler) setAttemptCookie(w http.ResponseWriter, shortCode, attemptID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     attemptCookieName(shortCode),
		Value:    attemptID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}

func (h *Handler) clearAttemptCookie(w http.ResponseWriter, shortCode string) {
	http.SetCookie(w, &http.Cookie{
		Name:     attemptCookieName(shortCode),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}

type joinRequest struct {
	Code string `json:"code" validate:"required"`
}

// handleJoin resolves a 6-digit join code to the exam behind the active
// session carrying it.
func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	if !code.ValidJoinCode(req.Code) {
		respondError(w, r, http.StatusBadRequest, "InvalidJoinCode")
		return
	}

	sess, err := h.store.FindActiveSessionByJoinCode(req.Code)
	if err != nil {
		slog.Error("find session by join code", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if sess == nil {
		respondError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"session_id":      sess.ID,
		"exam_short_code": sess.ExamShortCode,
	})
}

// studentQuestion is a question as shown to a student: no correct answer.
type studentQuestion struct {
	ID      string             `json:"id"`
	Text    string             `json:"text"`
	Type    model.QuestionType `json:"type"`
	Options []model.Option     `json:"options,omitempty"`
	Points  int                `json:"points"`
}

// studentExam is the exam view served to students. Grading happens on the
// server, so correct answers never leave it.
type studentExam struct {
	ShortCode       string            `json:"short_code"`
	Title           string            `json:"title"`
	Month           int               `json:"month"`
	Mode            model.ExamMode    `json:"mode"`
	DurationMinutes int               `json:"duration_minutes"`
	Questions       []studentQuestion `json:"questions"`
}

func studentExamView(e model.Exam) studentExam {
	view := studentExam{
		ShortCode:       e.ShortCode,
		Title:           e.Title,
		Month:           e.Month,
		Mode:            e.Mode,
		DurationMinutes: e.DurationMinutes,
	}
	for _, q := range e.Questions {
		view.Questions = append(view.Questions, studentQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: q.Options,
			Points:  q.Points,
		})
	}
	return view
}

// getExam loads the exam from the URL short code, answering 404 itself when
// the exam does not exist.
func (h *Handler) getExam(w http.ResponseWriter, r *http.Request) *model.Exam {
	exam, err := h.store.GetExamByCode(chi.URLParam(r, "code"))
	if err != nil {
		slog.Error("get exam", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return nil
	}
	if exam == nil {
		respondError(w, r, http.StatusNotFound, "ExamNotFound")
		return nil
	}
	return exam
}

func (h *Handler) handleExamView(w http.ResponseWriter, r *http.Request) {
	exam := h.getExam(w, r)
	if exam == nil {
		return
	}
	respondJSON(w, http.StatusOK, studentExamView(*exam))
}

type beginRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// handleBeginAttempt registers the student and starts their countdown. The
// attempt ID goes back both in the body and as the resumption cookie.
func (h *Handler) handleBeginAttempt(w http.ResponseWriter, r *http.Request) {
	exam := h.getExam(w, r)
	if exam == nil {
		return
	}

	var req beginRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	attempt, err := h.flow.Begin(*exam, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, flow.ErrNameRequired) {
			respondError(w, r, http.StatusBadRequest, "NameRequired")
			return
		}
		slog.Error("begin attempt", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	h.setAttemptCookie(w, exam.ShortCode, attempt.ID)
	respondJSON(w, http.StatusCreated, map[string]any{
		"attempt_id":        attempt.ID,
		"started_at":        attempt.StartedAt,
		"remaining_seconds": int(exam.Duration().Seconds()),
	})
}

// handleResumeAttempt restores an interrupted attempt from the cookie set at
// begin. An expired attempt is finalized as a timeout and answered with 410 so
// the client shows the result screen instead of the exam.
func (h *Handler) handleResumeAttempt(w http.ResponseWriter, r *http.Request) {
	exam := h.getExam(w, r)
	if exam == nil {
		return
	}

	cookie, err := r.Cookie(attemptCookieName(exam.ShortCode))
	if err != nil || cookie.Value == "" {
		respondError(w, r, http.StatusNotFound, "AttemptNotFound")
		return
	}

	resumed, err := h.flow.Resume(*exam, cookie.Value)
	switch {
	case errors.Is(err, flow.ErrNoResume):
		h.clearAttemptCookie(w, exam.ShortCode)
		respondError(w, r, http.StatusNotFound, "AttemptNotFound")
		return
	case errors.Is(err, flow.ErrExpired):
		h.clearAttemptCookie(w, exam.ShortCode)
		respondError(w, r, http.StatusGone, "TimeExpired")
		return
	case err != nil:
		slog.Error("resume attempt", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"attempt_id":        resumed.Attempt.ID,
		"first_name":        resumed.Attempt.FirstName,
		"last_name":         resumed.Attempt.LastName,
		"answers":           resumed.Attempt.Answers,
		"started_at":        resumed.Attempt.StartedAt,
		"remaining_seconds": int(resumed.Remaining.Seconds()),
	})
}

type syncRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

// handleSyncAnswers is the periodic answer save. Syncing a finalized attempt
// succeeds without effect.
func (h *Handler) handleSyncAnswers(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")

	var req syncRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	attempt, err := h.store.GetAttempt(attemptID)
	if err != nil {
		slog.Error("get attempt", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if attempt == nil {
		respondError(w, r, http.StatusNotFound, "AttemptNotFound")
		return
	}

	if err := h.flow.Sync(attemptID, req.Answers); err != nil {
		slog.Error("sync answers", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type finishRequest struct {
	Answers map[string]string `json:"answers"`
}

// handleFinishAttempt is the student's manual submission. The body is
// optional; without it the answers last synced to the server are scored.
func (h *Handler) handleFinishAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")

	var req finishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	attempt, err := h.store.GetAttempt(attemptID)
	if err != nil {
		slog.Error("get attempt", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if attempt == nil {
		respondError(w, r, http.StatusNotFound, "AttemptNotFound")
		return
	}

	exam, err := h.store.GetExamByCode(attempt.ExamShortCode)
	if err != nil || exam == nil {
		slog.Error("get exam for finish", "short_code", attempt.ExamShortCode, "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	final, err := h.flow.Finish(*exam, attemptID, req.Answers, model.AttemptFinished)
	switch {
	case errors.Is(err, flow.ErrAlreadyFinalized):
		respondError(w, r, http.StatusConflict, "AttemptFinalized")
		return
	case errors.Is(err, flow.ErrAttemptNotFound):
		respondError(w, r, http.StatusNotFound, "AttemptNotFound")
		return
	case err != nil:
		slog.Error("finish attempt", "error", err)
		respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	h.clearAttemptCookie(w, exam.ShortCode)
	respondJSON(w, http.StatusOK, map[string]any{
		"attempt_id":    final.ID,
		"status":        final.Status,
		"score":         final.Score,
		"correct_count": final.CorrectCount,
		"wrong_count":   final.WrongCount,
		"submitted_at":  final.SubmittedAt,
	})
}
