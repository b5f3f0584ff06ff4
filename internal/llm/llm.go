// Package llm wraps an OpenAI-compatible chat API for quiz generation,
// grading, coaching feedback, and chunk summarization.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AnchitSingh/AI-Study-Coach/internal/llm/prompts"
	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
	"github.com/AnchitSingh/AI-Study-Coach/internal/summarize"

	openai "github.com/sashabaranov/go-openai"
)

// Retry schedules, tiered by failure class. Rate limits get long waits
// because quota windows reset on the minute; transient server errors
// recover faster.
var (
	rateLimitWaits   = []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	serverErrorWaits = []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
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

// complete runs one chat completion with tiered retries. jsonMode requests
// the JSON-object response format.
func (c *Client) complete(ctx context.Context, system, user string, temperature float32, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("LLM returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err

		wait, retryable := retryWait(err, attempt)
		if !retryable {
			return "", fmt.Errorf("LLM API call: %w", lastErr)
		}
		slog.Warn("LLM call failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// retryWait classifies an API error and returns the wait before the next
// attempt, or retryable=false when the error class or attempt count rules
// out another try.
func retryWait(err error, attempt int) (time.Duration, bool) {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	switch {
	case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
		if attempt < len(rateLimitWaits) {
			return rateLimitWaits[attempt], true
		}
	case apiErr.HTTPStatusCode >= 500:
		if attempt < len(serverErrorWaits) {
			return serverErrorWaits[attempt], true
		}
	}
	return 0, false
}

// GenerateQuizRaw asks for quiz JSON for the given source. The caller owns
// parsing and repair; this returns the raw model output.
func (c *Client) GenerateQuizRaw(ctx context.Context, req prompts.QuizRequest) (string, error) {
	return c.complete(ctx, prompts.QuizSystem, prompts.BuildQuizPrompt(req), 0.7, true)
}

// GenerateStory asks for a Markdown explanation of the source's topic.
func (c *Client) GenerateStory(ctx context.Context, src model.FinalizedSource, storyStyle string) (string, error) {
	out, err := c.complete(ctx, prompts.StorySystem, prompts.BuildStoryPrompt(src, storyStyle), 0.8, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// EvaluateRaw asks for a JSON grading verdict on a subjective answer.
// The caller owns parsing and repair of the verdict.
func (c *Client) EvaluateRaw(ctx context.Context, q model.Question, userAnswer string) (string, error) {
	return c.complete(ctx, prompts.EvaluateSystem, prompts.BuildEvaluatePrompt(q, userAnswer), 0.3, true)
}

// GenerateFeedback asks for plain-text coaching feedback from quiz stats.
func (c *Client) GenerateFeedback(ctx context.Context, title, subject string, stats map[string]any) (string, error) {
	out, err := c.complete(ctx, prompts.FeedbackSystem, prompts.BuildFeedbackPrompt(title, subject, stats), 0.6, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RepairJSON asks the model to fix a malformed JSON document. It satisfies
// airesp.RepairFunc.
func (c *Client) RepairJSON(ctx context.Context, candidate string) (string, error) {
	return c.complete(ctx, prompts.RepairSystem, candidate, 0.0, true)
}

// SummarizerFactory adapts the client to summarize.Factory, creating one
// summarization capability per finalize call.
type SummarizerFactory struct {
	Client *Client
}

// Availability probes the API with a model listing. A reachable endpoint
// reports "readily"; anything else is unavailable.
func (f *SummarizerFactory) Availability(ctx context.Context) (string, error) {
	if f.Client == nil {
		return "", summarize.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := f.Client.api.ListModels(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", summarize.ErrUnavailable, err)
	}
	return summarize.StatusReadily, nil
}

// New creates a summarizer instance primed with the quiz's shared context.
func (f *SummarizerFactory) New(ctx context.Context, shared summarize.SharedContext) (summarize.Capability, error) {
	if f.Client == nil {
		return nil, summarize.ErrUnavailable
	}
	system := prompts.SummarizeSystem
	if s := shared.String(); s != "" {
		system += "\n\nSTUDY CONTEXT:\n" + s
	}
	return &summarizer{client: f.Client, system: system}, nil
}

type summarizer struct {
	client *Client
	system string
}

func (s *summarizer) Summarize(ctx context.Context, text string, opts summarize.CallOptions) (string, error) {
	callCtx := opts.Context
	if callCtx == "" {
		callCtx = summarize.DefaultCallContext
	}
	user := "FOCUS: " + callCtx + "\n\nTEXT:\n" + text
	out, err := s.client.complete(ctx, s.system, user, 0.2, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *summarizer) Close() error { return nil }
