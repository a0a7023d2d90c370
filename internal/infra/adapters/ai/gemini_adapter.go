package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"codehub-mentor/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter calls the Gemini API directly through the genai SDK. Each
// call is a single GenerateContent request carrying the whole transcript.
type GeminiAdapter struct {
	client *genai.Client
	model  string
	maxOut int
	tokens *TokenCounter
}

type GeminiOptions struct {
	APIKey  string
	BaseURL string
	Model   string // used when the caller passes ""
	MaxOut  int
	Tokens  *TokenCounter // estimate when the API cannot count
}

func NewGeminiAdapter(ctx context.Context, o GeminiOptions) (*GeminiAdapter, error) {
	if o.APIKey == "" {
		return nil, errors.New("gemini api key empty")
	}
	if o.Model == "" {
		o.Model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      o.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.BaseURL},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: o.Model, maxOut: o.MaxOut, tokens: o.Tokens}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{g.model}, nil
}

func (g *GeminiAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	model = modelOrDefault(model, g.model)
	m, err := g.client.Models.Get(context.Background(), model, nil)
	if err != nil {
		return adapter.ModelInfo{Name: model}, nil
	}
	return adapter.ModelInfo{
		Name:        m.Name,
		Description: m.Description,
		MaxTokens:   int(m.InputTokenLimit),
		Supports:    m.SupportedActions,
	}, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	_, contents := toGenAI(messages)
	resp, err := g.client.Models.CountTokens(ctx, modelOrDefault(model, g.model), contents, nil)
	if err != nil {
		if g.tokens != nil {
			return g.tokens.CountMessages(messages), nil
		}
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	text, _, err := g.ChatWithUsage(ctx, model, messages)
	return text, err
}

func (g *GeminiAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	system, contents := toGenAI(messages)
	if len(contents) == 0 {
		return "", adapter.Usage{}, errors.New("gemini: no user or model turns")
	}

	cfg := &genai.GenerateContentConfig{}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelOrDefault(model, g.model), contents, cfg)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", adapter.Usage{}, errors.New("gemini: empty candidate")
	}

	var u adapter.Usage
	if md := resp.UsageMetadata; md != nil {
		u = adapter.Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}
	}
	return text, u, nil
}

// toGenAI folds system messages into one instruction; Gemini turns are
// either user or model.
func toGenAI(msgs []adapter.Message) (string, []*genai.Content) {
	var sys []string
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			sys = append(sys, m.Content)
		case "assistant", "model":
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(sys, "\n\n"), out
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
