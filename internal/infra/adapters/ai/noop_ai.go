package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter answers locally for dev runs without provider keys.
// Classification prompts get a general_question JSON so the pipeline
// degrades the same way it does with a real model.
type NoopAIAdapter struct {
	log    *zerolog.Logger
	delay  time.Duration
	tokens *TokenCounter
}

func NewNoopAIAdapter(log *zerolog.Logger) *NoopAIAdapter {
	return &NoopAIAdapter{log: log, delay: 100 * time.Millisecond, tokens: NewTokenCounter("")}
}

func (a *NoopAIAdapter) wait(ctx context.Context) error {
	select {
	case <-time.After(a.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *NoopAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	text, _, err := a.ChatWithUsage(ctx, model, messages)
	return text, err
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if err := a.wait(ctx); err != nil {
		return "", adapter.Usage{}, err
	}
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	a.log.Debug().Str("model", model).Int("messages", len(messages)).Msg("noop-ai chat")

	reply := "This is a noop AI response."
	if strings.Contains(last, `"intent"`) {
		reply = `{"intent": "general_question", "confidence": 0.5, "parameters": {}, "requires_confirmation": false}`
	}
	in := a.tokens.CountMessages(messages)
	out := a.tokens.Count(reply)
	return reply, adapter.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}, nil
}

func (a *NoopAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return a.tokens.CountMessages(messages), nil
}

func (a *NoopAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{
		Name:        "noop-ai-model",
		Description: "Noop AI model for testing",
		MaxTokens:   1024,
		Supports:    []string{"chat"},
	}, nil
}

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-ai-model"}, nil
}
