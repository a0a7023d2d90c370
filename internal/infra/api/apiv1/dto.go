package apiv1

import (
	"time"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/adapter"
)

type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Sender    string         `json:"sender"`
	Body      string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Tokens    int            `json:"tokens_used"`
	CreatedAt time.Time      `json:"created_at"`
}

type Session struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	Type                 string     `json:"session_type"`
	Status               string     `json:"status"`
	Title                string     `json:"title"`
	AwaitingConfirmation bool       `json:"awaiting_confirmation"`
	PendingIntent        string     `json:"pending_intent,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	Messages             []Message  `json:"messages,omitempty"`
}

type Model struct {
	Key         string `json:"key"`
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
}

type createSessionRequest struct {
	SessionType string `json:"session_type"`
}

type sendMessageRequest struct {
	Message       string `json:"message"`
	ExecuteAction bool   `json:"execute_action"`
}

type sendMessageResponse struct {
	UserMessage      Message       `json:"user_message"`
	AssistantMessage Message       `json:"assistant_message"`
	Action           *model.Action `json:"action,omitempty"`
}

type Feedback struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session"`
	MessageID string    `json:"message"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback"`
	IsHelpful bool      `json:"is_helpful"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type feedbackRequest struct {
	Rating    int    `json:"rating"`
	Feedback  string `json:"feedback"`
	IsHelpful *bool  `json:"is_helpful"`
}

type updateProfileRequest struct {
	PreferredModel string `json:"preferred_model"`
}

func toMessage(m model.ChatMessage) Message {
	return Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender:    string(m.Sender),
		Body:      m.Body,
		Metadata:  m.Metadata,
		Tokens:    m.Tokens,
		CreatedAt: m.CreatedAt,
	}
}

func toMessages(ms []model.ChatMessage) []Message {
	out := make([]Message, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMessage(m))
	}
	return out
}

func toSession(s *model.ChatSession) Session {
	out := Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Type:      string(s.Type),
		Status:    string(s.Status),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		EndedAt:   s.EndedAt,
	}
	if s.State.Awaiting() {
		out.AwaitingConfirmation = true
		out.PendingIntent = string(s.State.Intent)
	}
	if len(s.Messages) > 0 {
		out.Messages = toMessages(s.Messages)
	}
	return out
}

func toModel(o adapter.ModelOption) Model {
	return Model{
		Key:         o.Key,
		Provider:    o.Provider,
		Name:        o.Model,
		DisplayName: o.DisplayName,
		Description: o.Description,
		Default:     o.Default,
	}
}

func toFeedback(f model.MessageFeedback) Feedback {
	return Feedback{
		ID:        f.ID,
		SessionID: f.SessionID,
		MessageID: f.MessageID,
		Rating:    f.Rating,
		Feedback:  f.Comment,
		IsHelpful: f.Helpful,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
