package ai

import (
	"context"

	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*limitedAI)(nil)

// limitedAI bounds in-flight generation and token-count calls to one
// provider. Listing and model info are local and pass straight through.
type limitedAI struct {
	adapter.AIServiceAdapter
	provider string
	slots    chan struct{}
}

// NewLimitedAI caps concurrent calls to inner at limit; limit <= 0 returns
// inner unchanged. A caller waiting for a slot gives up when ctx ends.
func NewLimitedAI(inner adapter.AIServiceAdapter, provider string, limit int) adapter.AIServiceAdapter {
	if limit <= 0 {
		return inner
	}
	return &limitedAI{AIServiceAdapter: inner, provider: provider, slots: make(chan struct{}, limit)}
}

func (l *limitedAI) do(ctx context.Context, call func() error) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	metrics.SetAIInflight(l.provider, len(l.slots))
	defer func() {
		<-l.slots
		metrics.SetAIInflight(l.provider, len(l.slots))
	}()
	return call()
}

func (l *limitedAI) Chat(ctx context.Context, model string, messages []adapter.Message) (text string, err error) {
	err = l.do(ctx, func() error {
		text, err = l.AIServiceAdapter.Chat(ctx, model, messages)
		return err
	})
	return text, err
}

func (l *limitedAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (text string, usage adapter.Usage, err error) {
	err = l.do(ctx, func() error {
		text, usage, err = l.AIServiceAdapter.ChatWithUsage(ctx, model, messages)
		return err
	})
	return text, usage, err
}

func (l *limitedAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (n int, err error) {
	err = l.do(ctx, func() error {
		n, err = l.AIServiceAdapter.CountTokens(ctx, model, messages)
		return err
	})
	return n, err
}
