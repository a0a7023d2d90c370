package ai

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"codehub-mentor/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*MultiAIAdapter)(nil)

// MultiAIAdapter fronts several provider adapters and picks one per call
// from the model name. Routing order: explicit model map, name rules,
// then the default provider.
type MultiAIAdapter struct {
	defaultProvider string
	byProvider      map[string]adapter.AIServiceAdapter
	modelToProvider map[string]string
}

// nameRules match model names no registry entry claims.
var nameRules = []struct {
	match    func(model string) bool
	provider string
}{
	{func(m string) bool { return strings.Contains(m, "/") }, ProviderOpenRouter},
	{func(m string) bool { return strings.HasPrefix(m, "gemini") }, ProviderGemini},
	{func(m string) bool { return strings.HasPrefix(m, "gpt") || strings.HasPrefix(m, "o1") }, ProviderOpenAI},
}

func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.AIServiceAdapter,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	norm := make(map[string]string, len(modelToProvider))
	for model, p := range modelToProvider {
		norm[model] = strings.ToLower(p)
	}
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: norm,
	}
}

// ProviderOf names the provider a call for model would be sent to. Rules
// only apply when their provider is configured.
func (m *MultiAIAdapter) ProviderOf(model string) string {
	if p, ok := m.modelToProvider[model]; ok && p != "" {
		return p
	}
	l := strings.ToLower(model)
	for _, r := range nameRules {
		if !r.match(l) {
			continue
		}
		if _, ok := m.byProvider[r.provider]; ok {
			return r.provider
		}
	}
	return m.defaultProvider
}

func (m *MultiAIAdapter) route(model string) (adapter.AIServiceAdapter, error) {
	if a := m.byProvider[m.ProviderOf(model)]; a != nil {
		return a, nil
	}
	if a := m.byProvider[m.defaultProvider]; a != nil {
		return a, nil
	}
	// permanent, so the fallback chain skips the model
	return nil, &StatusError{Provider: "router", Code: http.StatusNotFound, Msg: "no provider configured for " + model}
}

// ListModels merges registry models with what each provider reports.
// A provider that fails to list is skipped.
func (m *MultiAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{}, len(m.modelToProvider))
	for model := range m.modelToProvider {
		set[model] = struct{}{}
	}
	for _, a := range m.byProvider {
		names, err := a.ListModels(ctx)
		if err != nil {
			continue
		}
		for _, n := range names {
			if n != "" {
				set[n] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MultiAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	a, err := m.route(model)
	if err != nil {
		return adapter.ModelInfo{Name: model}, nil
	}
	return a.GetModelInfo(model)
}

func (m *MultiAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	a, err := m.route(model)
	if err != nil {
		return 0, err
	}
	return a.CountTokens(ctx, model, messages)
}

func (m *MultiAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	text, _, err := m.ChatWithUsage(ctx, model, messages)
	return text, err
}

func (m *MultiAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	a, err := m.route(model)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	return a.ChatWithUsage(ctx, model, messages)
}
