package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/hamidullo/eduexam/internal/model"
)

// InsertAttempt stores a new attempt, generating the ID when absent.
func (s *Store) InsertAttempt(a model.Attempt) (model.Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = model.AttemptInProgress
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO attempts (id, exam_short_code, first_name, last_name, started_at, submitted_at,
		                       score, correct_count, wrong_count, answers_json, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ExamShortCode, a.FirstName, a.LastName, a.StartedAt, a.SubmittedAt,
		a.Score, a.CorrectCount, a.WrongCount, string(answers), a.Status,
	)
	if err != nil {
		return model.Attempt{}, err
	}
	return a, nil
}

// GetAttempt returns an attempt by ID, or nil if absent.
func (s *Store) GetAttempt(id string) (*model.Attempt, error) {
	row := s.db.QueryRow(
		`SELECT id, exam_short_code, first_name, last_name, started_at, submitted_at,
		        score, correct_count, wrong_count, answers_json, status
		 FROM attempts WHERE id = ?`, id,
	)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAnswers overwrites the answer map of an in-progress attempt. Finalized
// attempts are left untouched so a late periodic sync can never clobber the
// final snapshot.
func (s *Store) SaveAnswers(id string, answers map[string]string) error {
	if answers == nil {
		answers = map[string]string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE attempts SET answers_json = ? WHERE id = ? AND status = ?`,
		string(data), id, model.AttemptInProgress,
	)
	return err
}

// FinalizeAttempt writes the result of finalization onto an in-progress
// attempt: final answers, score, counts, submission time and terminal status.
// Returns false when the attempt was already finalized (or missing), so
// finalization is first-writer-wins.
func (s *Store) FinalizeAttempt(a model.Attempt) (bool, error) {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return false, fmt.Errorf("marshal answers: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE attempts
		 SET submitted_at = ?, score = ?, correct_count = ?, wrong_count = ?, answers_json = ?, status = ?
		 WHERE id = ? AND status = ?`,
		a.SubmittedAt, a.Score, a.CorrectCount, a.WrongCount, string(answers), a.Status,
		a.ID, model.AttemptInProgress,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAttempts returns all attempts, newest first.
func (s *Store) ListAttempts() ([]model.Attempt, error) {
	return s.queryAttempts(
		`SELECT id, exam_short_code, first_name, last_name, started_at, submitted_at,
		        score, correct_count, wrong_count, answers_json, status
		 FROM attempts ORDER BY started_at DESC, id`,
	)
}

// ListAttemptsByStatus returns attempts with the given status, newest first.
func (s *Store) ListAttemptsByStatus(status model.AttemptStatus) ([]model.Attempt, error) {
	return s.queryAttempts(
		`SELECT id, exam_short_code, first_name, last_name, started_at, submitted_at,
		        score, correct_count, wrong_count, answers_json, status
		 FROM attempts WHERE status = ? ORDER BY started_at DESC, id`, status,
	)
}

// ListAttemptsForExam returns all attempts against one exam, newest first.
func (s *Store) ListAttemptsForExam(shortCode string) ([]model.Attempt, error) {
	return s.queryAttempts(
		`SELECT id, exam_short_code, first_name, last_name, started_at, submitted_at,
		        score, correct_count, wrong_count, answers_json, status
		 FROM attempts WHERE exam_short_code = ? ORDER BY started_at DESC, id`, shortCode,
	)
}

func (s *Store) queryAttempts(query string, args ...any) ([]model.Attempt, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func scanAttempt(row rowScanner) (model.Attempt, error) {
	var a model.Attempt
	var answers string
	var submitted sql.NullTime
	err := row.Scan(&a.ID, &a.ExamShortCode, &a.FirstName, &a.LastName, &a.StartedAt, &submitted,
		&a.Score, &a.CorrectCount, &a.WrongCount, &answers, &a.Status)
	if err != nil {
		return model.Attempt{}, err
	}
	if submitted.Valid {
		t := submitted.Time
		a.SubmittedAt = &t
	}
	a.Answers = map[string]string{}
	decodeJSONColumn("attempts", a.ID, answers, &a.Answers)
	return a, nil
}
