package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamidullo/eduexam/internal/model"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		event   Event
		want    State
		wantErr bool
	}{
		{"register", StateLogin, EventRegister, StateReady, false},
		{"begin", StateReady, EventBegin, StateTesting, false},
		{"resume skips ready", StateLogin, EventResume, StateTesting, false},
		{"manual finish", StateTesting, EventFinish, StateFinished, false},
		{"timeout finish", StateTesting, EventTimeout, StateFinished, false},
		{"no begin before register", StateLogin, EventBegin, StateLogin, true},
		{"no finish before testing", StateReady, EventFinish, StateReady, true},
		{"finished is terminal", StateFinished, EventFinish, StateFinished, true},
		{"no re-register", StateTesting, EventRegister, StateTesting, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				var invalid *ErrInvalidTransition
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "went", Normalize("  Went "))
	assert.Equal(t, "children", Normalize("CHILDREN"))
	assert.Equal(t, "", Normalize("   "))
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{
			ID:   "q1",
			Text: "Past tense of go?",
			Type: model.QuestionChoice,
			Options: []model.Option{
				{Key: "A", Text: "Went"},
				{Key: "B", Text: "Gone"},
			},
			CorrectAnswer: "A",
			Points:        5,
		},
		{
			ID:            "q2",
			Text:          "Plural of child?",
			Type:          model.QuestionText,
			CorrectAnswer: "children",
			Points:        10,
		},
	}
}

func TestScore(t *testing.T) {
	questions := sampleQuestions()

	tests := []struct {
		name    string
		answers map[string]string
		want    Result
	}{
		{"all correct", map[string]string{"q1": "A", "q2": "children"}, Result{Score: 15, Correct: 2, Wrong: 0}},
		{"case and whitespace ignored", map[string]string{"q1": " a ", "q2": "Children"}, Result{Score: 15, Correct: 2, Wrong: 0}},
		{"partial", map[string]string{"q1": "B", "q2": "children"}, Result{Score: 10, Correct: 1, Wrong: 1}},
		{"no answers", nil, Result{Score: 0, Correct: 0, Wrong: 2}},
		{"near miss earns nothing", map[string]string{"q2": "childrens"}, Result{Score: 0, Correct: 0, Wrong: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(questions, tt.answers))
			// Correct+Wrong always covers every question.
			got := Score(questions, tt.answers)
			assert.Equal(t, len(questions), got.Correct+got.Wrong)
		})
	}
}

func TestScoreOrderIndependent(t *testing.T) {
	questions := sampleQuestions()
	reversed := []model.Question{questions[1], questions[0]}
	answers := map[string]string{"q1": "A", "q2": "wrong"}
	assert.Equal(t, Score(questions, answers), Score(reversed, answers))
}

func TestRemaining(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	dur := 10 * time.Minute

	assert.Equal(t, 10*time.Minute, Remaining(start, dur, start))
	assert.Equal(t, 7*time.Minute, Remaining(start, dur, start.Add(3*time.Minute)))
	assert.Equal(t, time.Duration(0), Remaining(start, dur, start.Add(10*time.Minute)))
	assert.Equal(t, time.Duration(0), Remaining(start, dur, start.Add(time.Hour)))
}
