package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hamidullo/eduexam/internal/model"
)

// InsertSession stores a new live session, generating ID and creation time
// when absent.
func (s *Store) InsertSession(sess model.Session) (model.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.Status == "" {
		sess.Status = model.SessionActive
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, join_code, exam_short_code, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.JoinCode, sess.ExamShortCode, sess.Status, sess.CreatedAt,
	)
	if err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// GetSession returns a session by ID, or nil if absent.
func (s *Store) GetSession(id string) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRow(
		`SELECT id, join_code, exam_short_code, status, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.JoinCode, &sess.ExamShortCode, &sess.Status, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// FindActiveSessionByJoinCode returns the active session carrying the given
// join code, or nil when no such session exists. Ended sessions never match,
// so a reused code cannot resurrect an old window.
func (s *Store) FindActiveSessionByJoinCode(joinCode string) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRow(
		`SELECT id, join_code, exam_short_code, status, created_at
		 FROM sessions WHERE join_code = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		joinCode, model.SessionActive,
	).Scan(&sess.ID, &sess.JoinCode, &sess.ExamShortCode, &sess.Status, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// EndSession transitions a session to ended. Ending an already-ended or
// missing session is a no-op.
func (s *Store) EndSession(id string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET status = ? WHERE id = ?`, model.SessionEnded, id,
	)
	return err
}

// ListActiveSessions returns all active sessions, newest first.
func (s *Store) ListActiveSessions() ([]model.Session, error) {
	rows, err := s.db.Query(
		`SELECT id, join_code, exam_short_code, status, created_at
		 FROM sessions WHERE status = ? ORDER BY created_at DESC, id`, model.SessionActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.JoinCode, &sess.ExamShortCode, &sess.Status, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ActiveSessionForExam returns the most recent active session for an exam, or
// nil. Nothing prevents several active sessions per exam; callers that care
// get the newest one.
func (s *Store) ActiveSessionForExam(shortCode string) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRow(
		`SELECT id, join_code, exam_short_code, status, created_at
		 FROM sessions WHERE exam_short_code = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		shortCode, model.SessionActive,
	).Scan(&sess.ID, &sess.JoinCode, &sess.ExamShortCode, &sess.Status, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
