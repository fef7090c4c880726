package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hamidullo/eduexam/internal/model"
)

// InsertExam stores an exam. A missing ID or creation timestamp is generated,
// matching insert-with-defaults semantics; the short code must already be set
// by the caller.
func (s *Store) InsertExam(e model.Exam) (model.Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return model.Exam{}, fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO exams (id, short_code, title, month, mode, duration_minutes, questions_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ShortCode, e.Title, e.Month, e.Mode, e.DurationMinutes, string(questions), e.CreatedAt,
	)
	if err != nil {
		return model.Exam{}, err
	}
	return e, nil
}

// GetExamByCode returns the exam with the given short code, or nil if absent.
func (s *Store) GetExamByCode(shortCode string) (*model.Exam, error) {
	row := s.db.QueryRow(
		`SELECT id, short_code, title, month, mode, duration_minutes, questions_json, created_at
		 FROM exams WHERE short_code = ?`, shortCode,
	)
	e, err := scanExam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(
		`SELECT id, short_code, title, month, mode, duration_minutes, questions_json, created_at
		 FROM exams ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ExamCount returns the number of stored exams.
func (s *Store) ExamCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (model.Exam, error) {
	var e model.Exam
	var questions string
	err := row.Scan(&e.ID, &e.ShortCode, &e.Title, &e.Month, &e.Mode, &e.DurationMinutes, &questions, &e.CreatedAt)
	if err != nil {
		return model.Exam{}, err
	}
	decodeJSONColumn("exams", e.ID, questions, &e.Questions)
	return e, nil
}
