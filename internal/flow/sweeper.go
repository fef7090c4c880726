package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/hamidullo/eduexam/internal/model"
)

// SweepStore is the slice of persistence the sweeper needs on top of what the
// controller already uses.
type SweepStore interface {
	ListAttemptsByStatus(status model.AttemptStatus) ([]model.Attempt, error)
	GetExamByCode(shortCode string) (*model.Exam, error)
}

// Sweeper finalizes overdue attempts as timeouts. The browser drives its own
// countdown, but only the sweep guarantees an abandoned attempt (closed tab,
// lost connection) still reaches the timeout state.
type Sweeper struct {
	store    SweepStore
	ctrl     *Controller
	interval time.Duration
}

// NewSweeper creates a sweeper that scans every interval.
func NewSweeper(store SweepStore, ctrl *Controller, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, ctrl: ctrl, interval: interval}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep finalizes every in-progress attempt whose deadline plus grace has
// passed, and returns how many it timed out. Failures are logged and skipped;
// the next sweep retries naturally.
func (s *Sweeper) Sweep() int {
	attempts, err := s.store.ListAttemptsByStatus(model.AttemptInProgress)
	if err != nil {
		slog.Error("sweep: list attempts", "error", err)
		return 0
	}

	exams := make(map[string]*model.Exam)
	timedOut := 0
	for _, a := range attempts {
		exam, ok := exams[a.ExamShortCode]
		if !ok {
			exam, err = s.store.GetExamByCode(a.ExamShortCode)
			if err != nil {
				slog.Error("sweep: get exam", "short_code", a.ExamShortCode, "error", err)
				continue
			}
			exams[a.ExamShortCode] = exam
		}
		if exam == nil {
			// Attempt against a vanished exam; nothing to score it with.
			slog.Warn("sweep: attempt references unknown exam", "attempt_id", a.ID, "short_code", a.ExamShortCode)
			continue
		}
		if !s.ctrl.Expired(a, exam.Duration()) {
			continue
		}
		if _, err := s.ctrl.Finish(*exam, a.ID, nil, model.AttemptTimeout); err != nil {
			// ErrAlreadyFinalized just means the student's own submission won.
			if err != ErrAlreadyFinalized {
				slog.Error("sweep: finalize attempt", "attempt_id", a.ID, "error", err)
			}
			continue
		}
		slog.Info("timed out overdue attempt", "attempt_id", a.ID, "short_code", a.ExamShortCode)
		timedOut++
	}
	return timedOut
}
