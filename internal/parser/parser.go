// Package parser turns unstructured exam text into structured questions via an
// OpenAI-compatible LLM. The model's output is never trusted as-is: it must
// pass the JSON schema and the model-level question invariants before an exam
// can be built from it.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hamidullo/eduexam/internal/model"
)

// DefaultPoints is assigned when the source text names no point value.
const DefaultPoints = 5

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new parser client. baseURL may be empty for the default
// OpenAI endpoint, or point at any compatible server.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the configured endpoint and model respond at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
	})
	if err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

// ParseQuestions extracts structured questions from messy source text. Each
// returned question carries a fresh ID and has passed validation; any schema
// or invariant violation fails the whole parse rather than silently dropping
// questions.
func (c *Client) ParseQuestions(ctx context.Context, text string) ([]model.Question, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("source text is empty")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: parseSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := []byte(resp.Choices[0].Message.Content)
	slog.Debug("parse response", "raw", string(raw))

	if err := validateQuestionsJSON(raw); err != nil {
		return nil, fmt.Errorf("parse output rejected: %w", err)
	}

	var out struct {
		Questions []model.Question `json:"questions"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode parse output: %w", err)
	}
	return finishQuestions(out.Questions)
}

// finishQuestions stamps fresh ids, fills in the default point value where
// the source text named none, and runs the model-level invariants.
func finishQuestions(questions []model.Question) ([]model.Question, error) {
	for i := range questions {
		questions[i].ID = uuid.NewString()
		if questions[i].Points == 0 {
			questions[i].Points = DefaultPoints
		}
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return questions, nil
}

// FixFormatting rewrites messy source text into the house question format so a
// teacher can review and correct it before parsing. On any failure the
// original text is returned unchanged; reformatting is best effort.
func (c *Client) FixFormatting(ctx context.Context, text string) string {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fixSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		slog.Warn("auto-fix formatting failed", "error", err)
		return text
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return text
	}
	return resp.Choices[0].Message.Content
}

const parseSystemPrompt = `You format exam tests for an education platform.
Analyze the provided unstructured text and extract its questions, answer
options and correct answers.

Rules:
1. Classify every question as either "CHOICE" (multiple choice) or "TEXT" (short written answer).
2. For CHOICE questions, extract the options with their keys (A, B, C, D).
3. For CHOICE questions, correctAnswer must be the key of the correct option.
4. Look for the correct answer and the point value in the text. If no point value is given, assign 5 points.
5. Respond ONLY with a JSON object of this shape:
{"questions": [{"text": "...", "type": "CHOICE", "options": [{"key": "A", "text": "..."}], "correctAnswer": "A", "points": 5}]}`

const fixSystemPrompt = `Rewrite the provided messy exam text into this standard format.
Every question starts with #Q.

#Q [Question text]
A) ...
B) ...
ANSWER: [Correct answer]
POINTS: [Point value]

Respond with the reformatted text only, no commentary.`
