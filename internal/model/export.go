package model

import "time"

// AttemptResult is one finalized attempt in an export.
type AttemptResult struct {
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	Status       AttemptStatus     `json:"status"`
	StartedAt    time.Time         `json:"started_at"`
	SubmittedAt  *time.Time        `json:"submitted_at,omitempty"`
	Score        int               `json:"score"`
	CorrectCount int               `json:"correct_count"`
	WrongCount   int               `json:"wrong_count"`
	Answers      map[string]string `json:"answers"`
}

// ExamExport is the top-level export document for one exam's results.
type ExamExport struct {
	ExamID       string          `json:"exam_id"`
	ShortCode    string          `json:"short_code"`
	Title        string          `json:"title"`
	Month        int             `json:"month"`
	Mode         ExamMode        `json:"mode"`
	NumQuestions int             `json:"num_questions"`
	TotalPoints  int             `json:"total_points"`
	Results      []AttemptResult `json:"results"`
}
