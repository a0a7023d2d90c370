package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/infra/logging"
	"codehub-mentor/internal/infra/metrics"
)

var _ adapter.TextGenerator = (*FallbackGenerator)(nil)

type FallbackOptions struct {
	Models      []string      // provider model names tried after the preferred one
	Attempts    int           // per model
	BackoffBase time.Duration // wait (attempt+1)*BackoffBase after a retryable failure
	CallTimeout time.Duration // per attempt; 0 disables

	// ProviderOf labels metrics; defaults to "ai".
	ProviderOf func(model string) string
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// FallbackGenerator resolves a model key and walks the fallback chain until
// one model answers.
type FallbackGenerator struct {
	ai   adapter.AIServiceAdapter
	reg  *Registry
	opts FallbackOptions
	log  *zerolog.Logger
}

func NewFallbackGenerator(ai adapter.AIServiceAdapter, reg *Registry, opts FallbackOptions, log *zerolog.Logger) *FallbackGenerator {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BackoffBase < 0 {
		opts.BackoffBase = 0
	}
	if opts.ProviderOf == nil {
		opts.ProviderOf = func(string) string { return "ai" }
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &FallbackGenerator{ai: ai, reg: reg, opts: opts, log: log}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// chain is the preferred model followed by the fallbacks, deduplicated.
func (g *FallbackGenerator) chain(preferred string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(g.opts.Models)+1)
	for _, m := range append([]string{preferred}, g.opts.Models...) {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Generate returns the first successful completion. When every model fails
// the error wraps domain.ErrUpstreamUnavailable.
func (g *FallbackGenerator) Generate(ctx context.Context, modelKey string, messages []adapter.Message) (adapter.Completion, error) {
	log := logging.With(ctx, g.log)
	defer logging.TraceDuration(log, "FallbackGenerator.Generate")()

	pref := g.reg.ResolveOrDefault(modelKey)
	var lastErr error

	for _, model := range g.chain(pref.Model) {
		provider := g.opts.ProviderOf(model)

	attempts:
		for attempt := 0; attempt < g.opts.Attempts; attempt++ {
			text, usage, err := g.call(ctx, provider, model, messages)
			if err == nil {
				c := adapter.Completion{
					Text:          text,
					ModelKey:      g.reg.KeyFor(model),
					Model:         model,
					ModelName:     g.reg.DisplayName(model),
					Usage:         usage,
					Fallback:      model != pref.Model,
					PreferredName: pref.DisplayName,
				}
				if c.Fallback {
					metrics.IncAIFallback(pref.Model, model)
					log.Warn().Str("preferred", pref.Model).Str("served_by", model).Msg("served by fallback model")
				}
				return c, nil
			}
			lastErr = err

			class := classify(ctx, err)
			log.Warn().Err(err).
				Str("model", model).
				Int("attempt", attempt+1).
				Str("class", class.String()).
				Msg("generation attempt failed")

			switch class {
			case failCanceled:
				return adapter.Completion{}, ctx.Err()
			case failPermanent:
				break attempts
			}
			metrics.IncAIRetry(model, class.String())
			if attempt == g.opts.Attempts-1 {
				break
			}
			if err := g.opts.Sleep(ctx, time.Duration(attempt+1)*g.opts.BackoffBase); err != nil {
				return adapter.Completion{}, err
			}
		}
	}

	metrics.IncAIExhausted()
	log.Error().Err(lastErr).Msg("all models failed")
	return adapter.Completion{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, lastErr)
}

func (g *FallbackGenerator) call(ctx context.Context, provider, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	callCtx := ctx
	if g.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.opts.CallTimeout)
		defer cancel()
	}
	start := time.Now()
	text, usage, err := g.ai.ChatWithUsage(callCtx, model, messages)
	metrics.ObserveChatUsage(provider, model, usage.PromptTokens, usage.CompletionTokens,
		int(time.Since(start).Milliseconds()), err == nil)
	return text, usage, err
}
