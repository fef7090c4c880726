package flow

import (
	"errors"
	"strings"
	"time"

	"github.com/hamidullo/eduexam/internal/model"
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// DefaultGrace is how long after the countdown hits zero an attempt may still
// be finalized by the client before the sweeper claims it as a timeout.
const DefaultGrace = 2 * time.Second

var (
	// ErrNameRequired rejects registration with an empty first or last name.
	ErrNameRequired = errors.New("first and last name are required")
	// ErrNoResume means there is nothing to resume: the attempt is missing or
	// already finalized. Callers fall through to LOGIN without surfacing it.
	ErrNoResume = errors.New("no resumable attempt")
	// ErrExpired means the resumed attempt's time window had already passed;
	// it has been finalized as a timeout.
	ErrExpired = errors.New("attempt time window expired")
	// ErrAttemptNotFound is returned for operations against an unknown attempt.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAlreadyFinalized rejects a second finalization.
	ErrAlreadyFinalized = errors.New("attempt already finalized")
)

// AttemptStore is the slice of persistence the controller needs.
type AttemptStore interface {
	GetAttempt(id string) (*model.Attempt, error)
	InsertAttempt(a model.Attempt) (model.Attempt, error)
	SaveAnswers(id string, answers map[string]string) error
	FinalizeAttempt(a model.Attempt) (bool, error)
}

// Controller drives attempts through the lifecycle against a store.
type Controller struct {
	store AttemptStore
	clock Clock
	grace time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithGrace replaces the post-deadline grace period.
func WithGrace(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.grace = d }
}

// NewController creates a controller with the system clock and default grace.
func NewController(store AttemptStore, opts ...Option) *Controller {
	ctrl := &Controller{store: store, clock: systemClock{}, grace: DefaultGrace}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// Begin handles EventRegister: it validates the student's name and inserts a
// fresh in-progress attempt with the countdown anchored at now. The caller is
// responsible for handing the returned attempt ID back to the client as its
// resumption pointer.
func (c *Controller) Begin(exam model.Exam, firstName, lastName string) (model.Attempt, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return model.Attempt{}, ErrNameRequired
	}
	if _, err := Next(StateLogin, EventRegister); err != nil {
		return model.Attempt{}, err
	}
	return c.store.InsertAttempt(model.Attempt{
		ExamShortCode: exam.ShortCode,
		FirstName:     firstName,
		LastName:      lastName,
		StartedAt:     c.clock.Now(),
		Answers:       map[string]string{},
		Status:        model.AttemptInProgress,
	})
}

// Resumed is the state restored to a returning client.
type Resumed struct {
	Attempt   model.Attempt
	Remaining time.Duration
}

// Resume handles EventResume for a stored attempt pointer. A missing or
// already-finalized attempt yields ErrNoResume. An in-progress attempt whose
// window has passed is finalized as a timeout (scored from its last synced
// answers) and yields ErrExpired; the caller must clear the client pointer.
// Otherwise the attempt and its recomputed time-left are returned unchanged,
// so resuming twice without writes restores identical state.
func (c *Controller) Resume(exam model.Exam, attemptID string) (*Resumed, error) {
	a, err := c.store.GetAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Status != model.AttemptInProgress {
		return nil, ErrNoResume
	}
	remaining := Remaining(a.StartedAt, exam.Duration(), c.clock.Now())
	if remaining <= 0 {
		if _, err := c.finalize(exam, *a, a.Answers, model.AttemptTimeout); err != nil && !errors.Is(err, ErrAlreadyFinalized) {
			return nil, err
		}
		return nil, ErrExpired
	}
	if _, err := Next(StateLogin, EventResume); err != nil {
		return nil, err
	}
	return &Resumed{Attempt: *a, Remaining: remaining}, nil
}

// Sync persists the current answer map against an in-progress attempt. It is
// the periodic best-effort save: syncing a finalized or unknown attempt is a
// silent no-op so a straggling timer can never disturb a final result.
func (c *Controller) Sync(attemptID string, answers map[string]string) error {
	return c.store.SaveAnswers(attemptID, answers)
}

// Finish finalizes an attempt with EventFinish (manual submission) or
// EventTimeout. A nil answer map scores the answers last synced to the store.
func (c *Controller) Finish(exam model.Exam, attemptID string, answers map[string]string, status model.AttemptStatus) (model.Attempt, error) {
	if status != model.AttemptFinished && status != model.AttemptTimeout {
		return model.Attempt{}, errors.New("finalization status must be finished or timeout")
	}
	a, err := c.store.GetAttempt(attemptID)
	if err != nil {
		return model.Attempt{}, err
	}
	if a == nil {
		return model.Attempt{}, ErrAttemptNotFound
	}
	event := EventFinish
	if status == model.AttemptTimeout {
		event = EventTimeout
	}
	if _, err := Next(AttemptState(a.Status), event); err != nil {
		return model.Attempt{}, ErrAlreadyFinalized
	}
	if answers == nil {
		answers = a.Answers
	}
	// The submission window closes at deadline+grace. A client finishing
	// later than that lost the race with the sweep; the attempt is claimed
	// as a timeout either way, scored from whatever answers arrived.
	if status == model.AttemptFinished && c.Expired(*a, exam.Duration()) {
		status = model.AttemptTimeout
	}
	return c.finalize(exam, *a, answers, status)
}

// Expired reports whether an in-progress attempt is past its deadline plus
// the grace period, i.e. eligible for the timeout sweep.
func (c *Controller) Expired(a model.Attempt, duration time.Duration) bool {
	return c.clock.Now().Sub(a.StartedAt) >= duration+c.grace
}

// finalize is the shared tail of every path out of TESTING: score, stamp,
// persist, first writer wins.
func (c *Controller) finalize(exam model.Exam, a model.Attempt, answers map[string]string, status model.AttemptStatus) (model.Attempt, error) {
	if answers == nil {
		answers = map[string]string{}
	}
	res := Score(exam.Questions, answers)
	now := c.clock.Now()
	a.SubmittedAt = &now
	a.Score = res.Score
	a.CorrectCount = res.Correct
	a.WrongCount = res.Wrong
	a.Answers = answers
	a.Status = status

	ok, err := c.store.FinalizeAttempt(a)
	if err != nil {
		return model.Attempt{}, err
	}
	if !ok {
		return model.Attempt{}, ErrAlreadyFinalized
	}
	return a, nil
}
