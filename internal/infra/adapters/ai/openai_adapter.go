package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"codehub-mentor/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter on the Chat Completions
// API. Any OpenAI-compatible gateway works through the base URL; OpenRouter
// is wired this way with its attribution headers.
type OpenAIAdapter struct {
	client   openai.Client
	provider string
	model    string
	maxOut   int
	tokens   *TokenCounter
}

type OpenAIOptions struct {
	Provider string // label used in logs/metrics, e.g. "openai" | "openrouter"
	APIKey   string
	BaseURL  string
	Model    string // default model when the caller passes ""
	MaxOut   int
	Headers  map[string]string
	Tokens   *TokenCounter
}

func NewOpenAIAdapter(o OpenAIOptions) (*OpenAIAdapter, error) {
	if o.APIKey == "" {
		return nil, errors.New(o.Provider + " api key empty")
	}
	if o.Model == "" {
		o.Model = "gpt-4o-mini"
	}
	if o.Provider == "" {
		o.Provider = "openai"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		// retries are owned by the fallback chain
		option.WithMaxRetries(0),
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(o.BaseURL, "/")+"/"))
	}
	for k, v := range o.Headers {
		if v != "" {
			opts = append(opts, option.WithHeader(k, v))
		}
	}
	return &OpenAIAdapter{
		client:   openai.NewClient(opts...),
		provider: o.Provider,
		model:    o.Model,
		maxOut:   o.MaxOut,
		tokens:   o.Tokens,
	}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.model}, nil
}

func (o *OpenAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	if model == "" {
		model = o.model
	}
	return adapter.ModelInfo{
		Name:        model,
		Description: o.provider + " chat completions model",
		MaxTokens:   o.maxOut,
		Supports:    []string{"text"},
	}, nil
}

// CountTokens is a local estimate; the API has no counting endpoint.
func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return o.tokens.CountMessages(messages), nil
}

func (o *OpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	text, _, err := o.ChatWithUsage(ctx, model, messages)
	return text, err
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, errors.New(o.provider + ": no messages")
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelOrDefault(model, o.model)),
		Messages: toOpenAIMessages(messages),
	}
	if o.maxOut > 0 {
		params.MaxTokens = openai.Int(int64(o.maxOut))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", adapter.Usage{}, err
	}

	text := ""
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			text = c.Message.Content
			break
		}
	}
	if text == "" {
		return "", adapter.Usage{}, errors.New(o.provider + ": no choice content")
	}

	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if u.TotalTokens == 0 {
		u.PromptTokens = o.tokens.CountMessages(messages)
		u.CompletionTokens = o.tokens.Count(text)
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return text, u, nil
}

func toOpenAIMessages(msgs []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant", "model":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
