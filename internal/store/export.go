package store

import (
	"fmt"

	"github.com/hamidullo/eduexam/internal/model"
)

// ExportExamResults builds the export document for one exam: exam metadata
// plus every finalized attempt against it. In-progress attempts are skipped;
// they have no result yet.
func (s *Store) ExportExamResults(shortCode string) (*model.ExamExport, error) {
	exam, err := s.GetExamByCode(shortCode)
	if err != nil {
		return nil, fmt.Errorf("get exam %s: %w", shortCode, err)
	}
	if exam == nil {
		return nil, fmt.Errorf("exam %s not found", shortCode)
	}

	attempts, err := s.ListAttemptsForExam(shortCode)
	if err != nil {
		return nil, fmt.Errorf("list attempts for %s: %w", shortCode, err)
	}

	totalPoints := 0
	for _, q := range exam.Questions {
		totalPoints += q.Points
	}

	export := &model.ExamExport{
		ExamID:       exam.ID,
		ShortCode:    exam.ShortCode,
		Title:        exam.Title,
		Month:        exam.Month,
		Mode:         exam.Mode,
		NumQuestions: len(exam.Questions),
		TotalPoints:  totalPoints,
	}

	for _, a := range attempts {
		if a.Status == model.AttemptInProgress {
			continue
		}
		export.Results = append(export.Results, model.AttemptResult{
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			Status:       a.Status,
			StartedAt:    a.StartedAt,
			SubmittedAt:  a.SubmittedAt,
			Score:        a.Score,
			CorrectCount: a.CorrectCount,
			WrongCount:   a.WrongCount,
			Answers:      a.Answers,
		})
	}

	return export, nil
}
