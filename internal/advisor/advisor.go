// Package advisor is the boundary to the external generative-AI
// collaborator. It produces quiz questions and a short coaching insight,
// and is allowed to fail: every operation degrades to a deterministic
// local result so the review flow keeps working fully offline.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/conorfennell/recall/internal/domain"
)

// FallbackInsight is shown whenever the external call cannot be made or
// fails. It is fixed so offline behavior is fully deterministic.
const FallbackInsight = "Consistent daily reviews are the key to building long-term memory structures. Focus on your weakest concepts first!"

// Config holds the advisor configuration. The API key is deliberately not
// part of it: the key is passed per call so a key change in settings takes
// effect immediately, with no cached client keyed by credential.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: 30 * time.Second,
	}
}

// Advisor talks to an OpenAI-compatible chat completion endpoint.
type Advisor struct {
	config Config
}

// New creates an advisor with the given configuration, filling in defaults
// for unset values.
func New(cfg Config) *Advisor {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Advisor{config: cfg}
}

func (a *Advisor) client(apiKey string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = a.config.BaseURL
	return openai.NewClientWithConfig(clientConfig)
}

func (a *Advisor) chat(ctx context.Context, apiKey, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	resp, err := a.client(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Insight analyzes the collection's retention scores and returns a short
// coaching string. It never returns an error: any failure, including a
// missing API key, yields the fixed fallback text.
func (a *Advisor) Insight(ctx context.Context, apiKey string, concepts []domain.Concept) string {
	if apiKey == "" {
		return FallbackInsight
	}

	parts := make([]string, 0, len(concepts))
	for _, c := range concepts {
		parts = append(parts, fmt.Sprintf("%s (%d%%)", c.Title, c.RetentionScore))
	}
	prompt := fmt.Sprintf(
		"Analyze the following academic concept retention scores and provide a brief (2-sentence) coaching insight for the student: %s",
		strings.Join(parts, ", "),
	)

	text, err := a.chat(ctx, apiKey, "You are a concise study coach.", prompt)
	if err != nil {
		slog.Warn("Insight generation failed, using fallback", "error", err)
		return FallbackInsight
	}
	if text == "" {
		return FallbackInsight
	}
	return text
}

// Quiz generates three multiple-choice questions for a concept. On any
// failure, or with no API key, it returns the deterministic local fallback
// derived from the concept's own fields.
func (a *Advisor) Quiz(ctx context.Context, apiKey string, c domain.Concept) []domain.Question {
	if apiKey == "" {
		return FallbackQuiz(c)
	}

	prompt := fmt.Sprintf(
		`Generate 3 high-quality multiple choice questions to test the understanding of the following academic concept:
Title: %s
Subject: %s
Description: %s

Respond with only a JSON array; each element must have the keys "question", "options" (exactly 4 strings), "correctAnswerIndex" and "explanation".`,
		c.Title, c.Subject, c.Description,
	)

	text, err := a.chat(ctx, apiKey, "You generate quizzes as strict JSON with no surrounding prose.", prompt)
	if err != nil {
		slog.Warn("Quiz generation failed, using fallback", "concept", c.ID, "error", err)
		return FallbackQuiz(c)
	}

	questions, err := parseQuestions(text)
	if err != nil {
		slog.Warn("Quiz response unusable, using fallback", "concept", c.ID, "error", err)
		return FallbackQuiz(c)
	}
	return questions
}

func parseQuestions(text string) ([]domain.Question, error) {
	// Models occasionally wrap the JSON in a code fence.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var questions []domain.Question
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz JSON: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("quiz response held no questions")
	}
	for i, q := range questions {
		if len(q.Options) != 4 || q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			return nil, fmt.Errorf("question %d is malformed", i)
		}
	}
	return questions, nil
}

// FallbackQuiz derives exactly three questions mechanically from the
// concept's own fields. The true fact is always option 0.
func FallbackQuiz(c domain.Concept) []domain.Question {
	return []domain.Question{
		{
			Question:           fmt.Sprintf("What is the core concept behind %q?", c.Title),
			Options:            []string{c.Description, "None of the above", "All of the above", "Not enough information"},
			CorrectAnswerIndex: 0,
			Explanation:        c.Description,
		},
		{
			Question:           fmt.Sprintf("%q belongs to which subject?", c.Title),
			Options:            []string{c.Subject, "Art", "Music", "Sports"},
			CorrectAnswerIndex: 0,
			Explanation:        fmt.Sprintf("%s is a topic in %s.", c.Title, c.Subject),
		},
		{
			Question:           fmt.Sprintf("What is the difficulty level of %q?", c.Title),
			Options:            []string{string(c.Difficulty), "Impossible", "Trivial", "Unknown"},
			CorrectAnswerIndex: 0,
			Explanation:        fmt.Sprintf("This concept is rated as %s.", c.Difficulty),
		},
	}
}
