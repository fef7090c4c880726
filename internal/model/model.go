package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UserRole represents an admin user's access level.
type UserRole string

const (
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a teacher/admin account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType distinguishes multiple-choice from free-text questions.
type QuestionType string

const (
	QuestionChoice QuestionType = "CHOICE"
	QuestionText   QuestionType = "TEXT"
)

// ExamMode selects the audience an exam is written for.
type ExamMode string

const (
	ModeAdult ExamMode = "ADULT"
	ModeKids  ExamMode = "KIDS"
)

// AttemptStatus represents the status of a student attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptFinished   AttemptStatus = "finished"
	AttemptTimeout    AttemptStatus = "timeout"
)

// SessionStatus represents the status of a live exam session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Option is one selectable answer of a CHOICE question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a single exam question. Options is empty for TEXT questions.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Points        int          `json:"points"`
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is empty")
	}
	if q.Points <= 0 {
		return fmt.Errorf("question %q: points must be positive", q.Text)
	}
	switch q.Type {
	case QuestionChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %q: CHOICE needs at least 2 options", q.Text)
		}
		for _, opt := range q.Options {
			if opt.Key == q.CorrectAnswer {
				return nil
			}
		}
		return fmt.Errorf("question %q: correct answer %q matches no option key", q.Text, q.CorrectAnswer)
	case QuestionText:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return fmt.Errorf("question %q: correct answer is empty", q.Text)
		}
		return nil
	default:
		return fmt.Errorf("question %q: unknown type %q", q.Text, q.Type)
	}
}

// Exam is an immutable exam definition. Questions are embedded; they are not
// separately addressable records.
type Exam struct {
	ID              string     `json:"id"`
	ShortCode       string     `json:"short_code"`
	Title           string     `json:"title"`
	Month           int        `json:"month"`
	Mode            ExamMode   `json:"mode"`
	DurationMinutes int        `json:"duration_minutes"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Duration returns the exam's time limit.
func (e Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Attempt is one student's run through one exam. Attempts are never deleted.
type Attempt struct {
	ID            string            `json:"id"`
	ExamShortCode string            `json:"exam_short_code"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	StartedAt     time.Time         `json:"started_at"`
	SubmittedAt   *time.Time        `json:"submitted_at,omitempty"`
	Score         int               `json:"score"`
	CorrectCount  int               `json:"correct_count"`
	WrongCount    int               `json:"wrong_count"`
	Answers       map[string]string `json:"answers"`
	Status        AttemptStatus     `json:"status"`
}

// Session is a teacher-activated live window binding a join code to an exam.
type Session struct {
	ID            string        `json:"id"`
	JoinCode      string        `json:"join_code"`
	ExamShortCode string        `json:"exam_short_code"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}
