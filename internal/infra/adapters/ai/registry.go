package ai

import (
	"fmt"
	"sort"
	"strings"

	"codehub-mentor/internal/domain/ports/adapter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderNoop       = "noop"
)

// ModelSpec is one selectable model.
type ModelSpec struct {
	Key         string `json:"key"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// BuiltinModels is the selectable model table.
var BuiltinModels = []ModelSpec{
	{Key: "openrouter_gemini", Provider: ProviderOpenRouter, Model: "google/gemini-2.0-flash-exp:free", DisplayName: "Gemini 2.0 Flash"},
	{Key: "openrouter_amazon_nova", Provider: ProviderOpenRouter, Model: "amazon/nova-2-lite-v1:free", DisplayName: "Amazon Nova 2 Lite"},
	{Key: "openrouter_deepseek", Provider: ProviderOpenRouter, Model: "nex-agi/deepseek-v3.1-nex-n1:free", DisplayName: "DeepSeek V3.1"},
	{Key: "openrouter_deepseek_r1t2", Provider: ProviderOpenRouter, Model: "tngtech/deepseek-r1t2-chimera:free", DisplayName: "DeepSeek R1T2 Chimera"},
	{Key: "openrouter_katcoder", Provider: ProviderOpenRouter, Model: "kwaipilot/kat-coder-pro:free", DisplayName: "Kat Coder Pro"},
	{Key: "openrouter_nemotron", Provider: ProviderOpenRouter, Model: "nvidia/nemotron-nano-12b-v2-vl:free", DisplayName: "Nemotron Nano 12B"},
	{Key: "openrouter_deepseek_r1t", Provider: ProviderOpenRouter, Model: "tngtech/deepseek-r1t-chimera:free", DisplayName: "DeepSeek R1T Chimera"},
	{Key: "openrouter_glm4", Provider: ProviderOpenRouter, Model: "z-ai/glm-4.5-air:free", DisplayName: "GLM 4.5 Air"},
	{Key: "openrouter_tng_r1t", Provider: ProviderOpenRouter, Model: "tngtech/tng-r1t-chimera:free", DisplayName: "TNG R1T Chimera"},
	{Key: "openrouter_qwen3_coder", Provider: ProviderOpenRouter, Model: "qwen/qwen3-coder:free", DisplayName: "Qwen3 Coder"},
	{Key: "openrouter_gpt_oss", Provider: ProviderOpenRouter, Model: "openai/gpt-oss-20b:free", DisplayName: "GPT OSS 20B"},
	{Key: "gemini_direct", Provider: ProviderGemini, Model: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash (direct)"},
	{Key: "openai_gpt4", Provider: ProviderOpenAI, Model: "gpt-4o-mini", DisplayName: "GPT-4o mini"},
	{Key: "local", Provider: ProviderNoop, Model: "noop-ai-model", DisplayName: "Local (offline)"},
}

// fallbackNames labels models that only appear in the fallback chain.
var fallbackNames = map[string]string{
	"mistralai/mistral-7b-instruct:free":    "Mistral 7B",
	"meta-llama/llama-3.2-3b-instruct:free": "Llama 3.2 3B",
	"qwen/qwen-2-7b-instruct:free":          "Qwen 2 7B",
	"openchat/openchat-7b:free":             "OpenChat 7B",
	"huggingfaceh4/zephyr-7b-beta:free":     "Zephyr 7B",
}

// Registry resolves model keys to provider models. Built once at startup
// and read-only afterwards.
type Registry struct {
	specs      map[string]ModelSpec
	byModel    map[string]ModelSpec
	aliases    map[string]string
	defaultKey string
}

// NewRegistry keeps only the specs whose provider is available. Legacy keys
// google_gemini and gemini map to the direct Gemini model when that provider
// is configured and to openrouter_gemini otherwise.
func NewRegistry(specs []ModelSpec, available map[string]bool, defaultKey string) (*Registry, error) {
	r := &Registry{
		specs:   map[string]ModelSpec{},
		byModel: map[string]ModelSpec{},
		aliases: map[string]string{},
	}
	for _, s := range specs {
		if !available[s.Provider] {
			continue
		}
		r.specs[s.Key] = s
		if _, ok := r.byModel[s.Model]; !ok {
			r.byModel[s.Model] = s
		}
	}
	if len(r.specs) == 0 {
		return nil, fmt.Errorf("ai registry: no model has a configured provider")
	}

	gemini := "openrouter_gemini"
	if _, ok := r.specs["gemini_direct"]; ok {
		gemini = "gemini_direct"
	}
	for _, legacy := range []string{"google_gemini", "gemini"} {
		r.aliases[legacy] = gemini
	}
	r.aliases["openrouter"] = "openrouter_gemini"
	r.aliases["openai"] = "openai_gpt4"

	key := r.canonical(defaultKey)
	if _, ok := r.specs[key]; !ok {
		key = r.keys()[0]
	}
	r.defaultKey = key
	return r, nil
}

func (r *Registry) canonical(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if a, ok := r.aliases[key]; ok {
		return a
	}
	return key
}

func (r *Registry) keys() []string {
	out := make([]string, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the ModelSpec for a key or alias; "" resolves to the default.
func (r *Registry) Resolve(key string) (ModelSpec, bool) {
	if strings.TrimSpace(key) == "" {
		return r.Default(), true
	}
	s, ok := r.specs[r.canonical(key)]
	return s, ok
}

// ResolveOrDefault never fails: unknown keys get the default model.
func (r *Registry) ResolveOrDefault(key string) ModelSpec {
	if s, ok := r.Resolve(key); ok {
		return s
	}
	return r.Default()
}

func (r *Registry) Default() ModelSpec { return r.specs[r.defaultKey] }

// List returns every available model in display order (builtin table order).
func (r *Registry) List() []ModelSpec {
	out := make([]ModelSpec, 0, len(r.specs))
	for _, s := range BuiltinModels {
		if spec, ok := r.specs[s.Key]; ok {
			out = append(out, spec)
		}
	}
	for _, k := range r.keys() {
		if !isBuiltin(k) {
			out = append(out, r.specs[k])
		}
	}
	return out
}

// DisplayName returns a friendly label for a provider model name.
func (r *Registry) DisplayName(model string) string {
	if s, ok := r.byModel[model]; ok && s.DisplayName != "" {
		return s.DisplayName
	}
	if n, ok := fallbackNames[model]; ok {
		return n
	}
	return model
}

// KeyFor returns the registry key serving a provider model, if any.
func (r *Registry) KeyFor(model string) string {
	return r.byModel[model].Key
}

// ModelProviders maps provider model names to providers for request routing.
func (r *Registry) ModelProviders() map[string]string {
	out := make(map[string]string, len(r.byModel))
	for m, s := range r.byModel {
		out[m] = s.Provider
	}
	return out
}

func isBuiltin(key string) bool {
	for _, s := range BuiltinModels {
		if s.Key == key {
			return true
		}
	}
	return false
}

var _ adapter.ModelCatalog = (*Registry)(nil)

func (r *Registry) option(s ModelSpec) adapter.ModelOption {
	return adapter.ModelOption{
		Key:         s.Key,
		Provider:    s.Provider,
		Model:       s.Model,
		DisplayName: s.DisplayName,
		Description: s.Description,
		Default:     s.Key == r.defaultKey,
	}
}

func (r *Registry) Models() []adapter.ModelOption {
	specs := r.List()
	out := make([]adapter.ModelOption, 0, len(specs))
	for _, s := range specs {
		out = append(out, r.option(s))
	}
	return out
}

func (r *Registry) Lookup(key string) (adapter.ModelOption, bool) {
	if strings.TrimSpace(key) == "" {
		return adapter.ModelOption{}, false
	}
	s, ok := r.specs[r.canonical(key)]
	if !ok {
		return adapter.ModelOption{}, false
	}
	return r.option(s), true
}
