// Package flow implements the attempt lifecycle: the state machine a student
// moves through while taking an exam, exact-match scoring, and the server-side
// timeout sweep. It has no HTTP or storage dependencies beyond the narrow
// interfaces it accepts, and all time handling goes through an injectable
// clock so tests can simulate the passage of time.
package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/hamidullo/eduexam/internal/model"
)

// State is a position in the attempt lifecycle.
type State string

const (
	// StateLogin: no attempt exists yet; the student is entering their name.
	StateLogin State = "LOGIN"
	// StateReady: the attempt is created, the countdown has not started.
	StateReady State = "READY"
	// StateTesting: the countdown is running and answers are being collected.
	StateTesting State = "TESTING"
	// StateFinished: terminal; the attempt has been finalized.
	StateFinished State = "FINISHED"
)

// Event is a lifecycle trigger.
type Event string

const (
	// EventRegister submits the student's name and creates the attempt.
	EventRegister Event = "register"
	// EventBegin starts the countdown.
	EventBegin Event = "begin"
	// EventResume restores an unexpired in-progress attempt after a reload,
	// jumping straight into TESTING.
	EventResume Event = "resume"
	// EventFinish is the student's manual submission.
	EventFinish Event = "finish"
	// EventTimeout is the automatic submission when time runs out.
	EventTimeout Event = "timeout"
)

// ErrInvalidTransition is returned by Next for an event the current state
// does not accept.
type ErrInvalidTransition struct {
	From  State
	Event Event
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("event %q not allowed in state %q", e.Event, e.From)
}

var transitions = map[State]map[Event]State{
	StateLogin: {
		EventRegister: StateReady,
		EventResume:   StateTesting,
	},
	StateReady: {
		EventBegin: StateTesting,
	},
	StateTesting: {
		EventFinish:  StateFinished,
		EventTimeout: StateFinished,
	},
	// StateFinished is terminal.
}

// Next is the pure transition function: given the current state and an event
// it returns the next state, or ErrInvalidTransition. The lifecycle is
// linear; there is no way back to LOGIN or READY once TESTING begins.
func Next(s State, e Event) (State, error) {
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, &ErrInvalidTransition{From: s, Event: e}
}

// AttemptState maps a persisted attempt status onto the lifecycle. Stored
// attempts are never in LOGIN or READY: the record only exists once
// registration happened, and a reload lands in TESTING via resume.
func AttemptState(status model.AttemptStatus) State {
	if status == model.AttemptInProgress {
		return StateTesting
	}
	return StateFinished
}

// Normalize prepares an answer for comparison: surrounding whitespace is
// insignificant and matching is case-insensitive.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Result is the outcome of scoring one attempt.
type Result struct {
	Score   int
	Correct int
	Wrong   int
}

// Score grades an answer map against the exam's questions. A question earns
// its full point value on an exact normalized match and zero otherwise; an
// unanswered question counts as wrong. Correct+Wrong always equals the number
// of questions.
func Score(questions []model.Question, answers map[string]string) Result {
	var r Result
	for _, q := range questions {
		if Normalize(answers[q.ID]) == Normalize(q.CorrectAnswer) {
			r.Score += q.Points
			r.Correct++
		} else {
			r.Wrong++
		}
	}
	return r
}

// Remaining returns how much exam time is left at now, never negative.
func Remaining(startedAt time.Time, duration time.Duration, now time.Time) time.Duration {
	left := duration - now.Sub(startedAt)
	if left < 0 {
		return 0
	}
	return left
}
