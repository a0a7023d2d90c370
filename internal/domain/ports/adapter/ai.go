package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ModelInfo describes a model.
type ModelInfo struct {
	Name        string
	Description string
	MaxTokens   int
	Supports    []string
}

// Usage for a single chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIServiceAdapter is the port for a single LLM provider.
type AIServiceAdapter interface {
	ListModels(ctx context.Context) ([]string, error)
	GetModelInfo(model string) (ModelInfo, error)

	// CountTokens returns prompt tokens for the provided messages
	// (best-effort when exact counting isn't available).
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)

	// Chat returns only the assistant text
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// ChatWithUsage returns assistant text + usage as reported by the provider.
	ChatWithUsage(ctx context.Context, model string, messages []Message) (string, Usage, error)
}

// Completion is the answer of a TextGenerator along with where it came from.
type Completion struct {
	Text          string
	ModelKey      string // registry key of the model that answered, if registered
	Model         string // provider model name
	ModelName     string // display name
	Usage         Usage
	Fallback      bool // a model other than the preferred one answered
	PreferredName string
}

// TextGenerator is the text-generation capability used by the mentor
// pipeline: it resolves a model key and hides provider fallback.
type TextGenerator interface {
	Generate(ctx context.Context, modelKey string, messages []Message) (Completion, error)
}

// ModelOption is one user-selectable model.
type ModelOption struct {
	Key         string `json:"key"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// ModelCatalog lists the models a user may pick as preferred.
type ModelCatalog interface {
	Models() []ModelOption
	// Lookup resolves a key or legacy alias to its canonical option.
	Lookup(key string) (ModelOption, bool)
}
