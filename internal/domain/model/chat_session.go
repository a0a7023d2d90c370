package model

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"codehub-mentor/internal/domain"
)

type ChatSessionStatus string

const (
	ChatSessionActive   ChatSessionStatus = "active"
	ChatSessionEnded    ChatSessionStatus = "ended"
	ChatSessionArchived ChatSessionStatus = "archived"
)

type SessionType string

const (
	SessionGeneral         SessionType = "general_chat"
	SessionCodeAnalysis    SessionType = "code_analysis"
	SessionProjectGuidance SessionType = "project_guidance"
	SessionLearningHelp    SessionType = "learning_help"
	SessionDebugging       SessionType = "debugging"
	SessionOptimization    SessionType = "optimization"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionGeneral, SessionCodeAnalysis, SessionProjectGuidance,
		SessionLearningHelp, SessionDebugging, SessionOptimization:
		return true
	}
	return false
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

const titleMaxRunes = 60

// ConversationPhase is the confirmation state of a session.
type ConversationPhase string

const (
	PhaseIdle                 ConversationPhase = "idle"
	PhaseAwaitingConfirmation ConversationPhase = "awaiting_confirmation"
)

// ConversationState is persisted on the session row. Data is the serialized
// action payload proposed to the user (project details, post content, ...).
type ConversationState struct {
	Phase      ConversationPhase `json:"phase"`
	Intent     Intent            `json:"intent,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
	ProposedAt *time.Time        `json:"proposed_at,omitempty"`
}

func IdleState() ConversationState { return ConversationState{Phase: PhaseIdle} }

func AwaitingState(intent Intent, data json.RawMessage, at time.Time) ConversationState {
	return ConversationState{Phase: PhaseAwaitingConfirmation, Intent: intent, Data: data, ProposedAt: &at}
}

func (s ConversationState) Awaiting() bool { return s.Phase == PhaseAwaitingConfirmation }

// ChatMessage is one immutable turn of a session.
type ChatMessage struct {
	ID        string
	SessionID string
	Sender    Sender
	Body      string
	Metadata  map[string]any
	Tokens    int
	CreatedAt time.Time
}

func NewChatMessage(sessionID string, sender Sender, body string, tokens int, meta map[string]any) *ChatMessage {
	now := time.Now().UTC()
	if meta == nil {
		meta = map[string]any{}
	}
	return &ChatMessage{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		SessionID: sessionID,
		Sender:    sender,
		Body:      body,
		Metadata:  meta,
		Tokens:    tokens,
		CreatedAt: now,
	}
}

// ChatSession is the aggregate root for a conversation with the mentor.
type ChatSession struct {
	ID        string
	UserID    string
	Type      SessionType
	Status    ChatSessionStatus
	Title     string
	State     ConversationState
	CreatedAt time.Time
	UpdatedAt time.Time
	EndedAt   *time.Time
	Messages  []ChatMessage
}

func NewChatSession(userID string, typ SessionType) (*ChatSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	if typ == "" {
		typ = SessionGeneral
	}
	if !typ.Valid() {
		return nil, domain.NewValidationError("session_type", "unknown session type")
	}
	now := time.Now().UTC()
	return &ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Status:    ChatSessionActive,
		State:     IdleState(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *ChatSession) OwnedBy(userID string) bool { return s.UserID == userID }

func (s *ChatSession) Active() bool { return s.Status == ChatSessionActive }

func (s *ChatSession) End(at time.Time) {
	s.Status = ChatSessionEnded
	s.EndedAt = &at
	s.UpdatedAt = at
}

// TitleFrom derives a session title from the first user message.
func TitleFrom(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if utf8.RuneCountInString(msg) <= titleMaxRunes {
		return msg
	}
	r := []rune(msg)
	return strings.TrimSpace(string(r[:titleMaxRunes])) + "..."
}

func (s *ChatSession) GetRecentMessages(n int) []ChatMessage {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
