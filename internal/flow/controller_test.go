package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamidullo/eduexam/internal/model"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// memStore is an in-memory AttemptStore/SweepStore with the same semantics as
// the SQLite store: generated IDs, nil for absent rows, first-writer-wins
// finalization, sync only while in progress.
type memStore struct {
	attempts map[string]model.Attempt
	exams    map[string]model.Exam
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{attempts: map[string]model.Attempt{}, exams: map[string]model.Exam{}}
}

func (m *memStore) InsertAttempt(a model.Attempt) (model.Attempt, error) {
	if a.ID == "" {
		m.nextID++
		a.ID = string(rune('a' + m.nextID))
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memStore) GetAttempt(id string) (*model.Attempt, error) {
	a, ok := m.attempts[id]
	if !ok {
		return nil, nil
	}
	cp := a
	return &cp, nil
}

func (m *memStore) SaveAnswers(id string, answers map[string]string) error {
	a, ok := m.attempts[id]
	if !ok || a.Status != model.AttemptInProgress {
		return nil
	}
	a.Answers = answers
	m.attempts[id] = a
	return nil
}

func (m *memStore) FinalizeAttempt(a model.Attempt) (bool, error) {
	prev, ok := m.attempts[a.ID]
	if !ok || prev.Status != model.AttemptInProgress {
		return false, nil
	}
	m.attempts[a.ID] = a
	return true, nil
}

func (m *memStore) ListAttemptsByStatus(status model.AttemptStatus) ([]model.Attempt, error) {
	var out []model.Attempt
	for _, a := range m.attempts {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetExamByCode(shortCode string) (*model.Exam, error) {
	e, ok := m.exams[shortCode]
	if !ok {
		return nil, nil
	}
	cp := e
	return &cp, nil
}

func testExam() model.Exam {
	return model.Exam{
		ID:              "ex1",
		ShortCode:       "AB12CD",
		Title:           "Grammar basics",
		Month:           1,
		Mode:            model.ModeAdult,
		DurationMinutes: 1,
		Questions:       sampleQuestions(),
	}
}

func newTestController(t *testing.T) (*Controller, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock()
	return NewController(store, WithClock(clock)), store, clock
}

func TestBeginValidatesName(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	exam := testExam()

	_, err := ctrl.Begin(exam, "", "Karimov")
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = ctrl.Begin(exam, "Aziz", "   ")
	assert.ErrorIs(t, err, ErrNameRequired)

	a, err := ctrl.Begin(exam, "  Aziz ", "Karimov")
	require.NoError(t, err)
	assert.Equal(t, "Aziz", a.FirstName)
	assert.Equal(t, "Karimov", a.LastName)
	assert.Equal(t, model.AttemptInProgress, a.Status)
	assert.Equal(t, exam.ShortCode, a.ExamShortCode)
	assert.NotEmpty(t, a.ID)
}

func TestResumeRestoresState(t *testing.T) {
	ctrl, _, clock := newTestController(t)
	exam := testExam()

	a, err := ctrl.Begin(exam, "Aziz", "Karimov")
	require.NoError(t, err)
	require.NoError(t, ctrl.Sync(a.ID, map[string]string{"q1": "A"}))

	clock.Advance(20 * time.Second)
	r1, err := ctrl.Resume(exam, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, r1.Attempt.ID)
	assert.Equal(t, "Aziz", r1.Attempt.FirstName)
	assert.Equal(t, map[string]string{"q1": "A"}, r1.Attempt.Answers)
	assert.Equal(t, 40*time.Second, r1.Remaining)

	// Resumption is idempotent; time-left only decreases.
	r2, err := ctrl.Resume(exam, a.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.Attempt, r2.Attempt)
	assert.LessOrEqual(t, r2.Remaining, r1.Remaining)

	clock.Advance(5 * time.Second)
	r3, err := ctrl.Resume(exam, a.ID)
	require.NoError(t, err)
	assert.Less(t, r3.Remaining, r2.Remaining)
}

func TestResumeExpiredMarksTimeout(t *testing.T) {
	ctrl, store, clock := newTestController(t)
	exam := testExam()

	a, err := ctrl.Begin(exam, "Aziz", "Karimov")
	require.NoError(t, err)
	require.NoError(t, ctrl.Sync(a.ID, map[string]string{"q1": "A"}))

	clock.Advance(exam.Duration())
	_, err = ctrl.Resume(exam, a.ID)
	assert.ErrorIs(t, err, ErrExpired)

	stored, err := store.GetAttempt(a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.AttemptTimeout, stored.Status)
	// Timed-out attempts are still scored from the last synced answers.
	assert.Equal(t, 5, stored.Score)
	assert.Equal(t, 1, stored.CorrectCount)
}

func TestResumeMissingOrFinalized(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	exam := testExam()

	_, err := ctrl.Resume(exam, "nope")
	assert.ErrorIs(t, err, ErrNoResume)

	a, err := ctrl.Begin(exam, "Aziz", "Karimov")
	require.NoError(t, err)
	_, err = ctrl.Finish(exam, a.ID, nil, model.AttemptFinished)
	require.NoError(t, err)

	_, err = ctrl.Resume(exam, a.ID)
	assert.ErrorIs(t, err, ErrNoResume)
}

func TestFinishScoresAndStamps(t *testing.T) {
	ctrl, store, clock := newTestController(t)
	exam := testExam()

	a, err := ctrl.Begin(exam, "Aziz", "Karimov")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	fin, err := ctrl.Finish(exam, a.ID, map[string]string{"q1": "A", "q2": " Children "}, model.AttemptFinished)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptFinished, fin.Status)
	assert.Equal(t, 15, fin.Score)
	assert.Equal(t, 2, fin.CorrectCount)
	assert.Equal(t, 0, fin.WrongCount)
	require.NotNil(t, fin.SubmittedAt)
	assert.Equal(t, clock.Now(), *fin.SubmittedAt)

	stored, _ := store.GetAttempt(a.ID)
	assert.Equal(t, fin, *stored)

	// Finalization is terminal.
	_, err = ctrl.Finish(exam, a.ID, nil, model.AttemptFinished)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestFinishAfterGraceBecomesTimeout(t *testing.T) {
	ctrl, store, clock := newTestController(t)
	exam := testExam()

	a, err := ctrl.Begin(exam, "Aziz", "Karimov")
	require.NoError(t, err)

	// Well past deadline+grace the submission window is closed: the client's
	// finish is recorded as a timeout, still scored from its answers.
	clock.Advance(exam.Duration() + 20*time.Second)
	fin, err := ctrl.Finish(exam, a.ID, map[string]string{"q1": "A"}, model.AttemptFinished)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTimeout, fin.Status)
	assert.Equal(t, 5, fin.Score)

	stored, _ := store.GetAttempt(a.ID)
	assert.Equal(t, model.AttemptTimeout, stored.Status)
}

func TestFinishWithinGrace(t *testing.T) {
	ctrl, _, clock := newTestController(t)
	exam := testExam()

	a, err := ctrl.Begin(exam, "Aziz", "Karimov")
	require.NoError(t, err)

	// One second past the deadline is still inside the grace window.
	clock.Advance(exam.Duration() + time.Second)
	fin, err := ctrl.Finish(exam, a.ID, map[string]string{"q1": "A"}, model.AttemptFinished)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptFinished, fin.Status)

	// Exactly at deadline+grace the sweeper's claim wins.
	b, err := ctrl.Begin(exam, "Botir", "Saidov")
	require.NoError(t, err)
	clock.Advance(exam.Duration() + DefaultGrace)
	fin, err = ctrl.Finish(exam, b.ID, nil, model.AttemptFinished)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTimeout, fin.Status)
}

func TestFinishUnknownAttempt(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	_, err := ctrl.Finish(testExam(), "nope", nil, model.AttemptFinished)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestSyncAfterFinalizeIsNoop(t *testing.T) {
	ctrl, store, _ := newTestController(t)
	exam := testExam()

	a, err := ctrl.Begin(exam, "Aziz", "Karimov")
	require.NoError(t, err)
	fin, err := ctrl.Finish(exam, a.ID, map[string]string{"q1": "A"}, model.AttemptFinished)
	require.NoError(t, err)

	// A straggling periodic sync must not clobber the final snapshot.
	require.NoError(t, ctrl.Sync(a.ID, map[string]string{"q1": "B"}))
	stored, _ := store.GetAttempt(a.ID)
	assert.Equal(t, fin.Answers, stored.Answers)
	assert.Equal(t, fin.Score, stored.Score)
}

func TestSweeperTimesOutOverdueAttempts(t *testing.T) {
	ctrl, store, clock := newTestController(t)
	exam := testExam()
	store.exams[exam.ShortCode] = exam

	fresh, err := ctrl.Begin(exam, "Fresh", "Student")
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	late, err := ctrl.Begin(exam, "Late", "Student")
	require.NoError(t, err)

	sweeper := NewSweeper(store, ctrl, time.Second)

	// Nobody is overdue yet.
	assert.Equal(t, 0, sweeper.Sweep())

	// First attempt passes duration+grace, second is still inside its window.
	clock.Advance(exam.Duration() - 30*time.Second + DefaultGrace)
	assert.Equal(t, 1, sweeper.Sweep())

	a1, _ := store.GetAttempt(fresh.ID)
	assert.Equal(t, model.AttemptTimeout, a1.Status)
	assert.Equal(t, 0, a1.Score)
	a2, _ := store.GetAttempt(late.ID)
	assert.Equal(t, model.AttemptInProgress, a2.Status)

	// Sweeping again finds nothing new for the already-finalized attempt.
	clock.Advance(time.Hour)
	assert.Equal(t, 1, sweeper.Sweep())
	a2, _ = store.GetAttempt(late.ID)
	assert.Equal(t, model.AttemptTimeout, a2.Status)
}
