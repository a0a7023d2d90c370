package repository

import (
	"context"
	"time"

	"codehub-mentor/internal/domain/model"
)

// -----------------------------
// Chat Sessions
// -----------------------------

type ChatSessionRepository interface {
	Save(ctx context.Context, tx Tx, session *model.ChatSession) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ChatSession, error)
	FindAllByUser(ctx context.Context, tx Tx, userID string) ([]*model.ChatSession, error)
	UpdateStatus(ctx context.Context, tx Tx, sessionID string, status model.ChatSessionStatus) error

	// SetState overwrites the conversation state of a session.
	SetState(ctx context.Context, tx Tx, sessionID string, state model.ConversationState) error
	// ClaimPending atomically moves an awaiting session back to idle and
	// returns the state it held. Returns domain.ErrNotFound when the session
	// was not awaiting confirmation (already claimed or never proposed).
	ClaimPending(ctx context.Context, tx Tx, sessionID string) (model.ConversationState, error)
	// ExpirePending resets every confirmation proposed before cutoff to idle
	// and reports how many sessions changed.
	ExpirePending(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)

	SaveMessage(ctx context.Context, tx Tx, message *model.ChatMessage) error
	// ListMessages returns messages in creation order; limit<=0 returns all.
	ListMessages(ctx context.Context, tx Tx, sessionID string, limit int) ([]model.ChatMessage, error)
	// LastAssistantMessage returns nil, nil when none exists.
	LastAssistantMessage(ctx context.Context, tx Tx, sessionID string) (*model.ChatMessage, error)
	// FindMessage returns domain.ErrNotFound when the message does not belong
	// to the session.
	FindMessage(ctx context.Context, tx Tx, sessionID, messageID string) (*model.ChatMessage, error)
}

type FeedbackRepository interface {
	// Upsert stores f, replacing an earlier rating of the same message by the
	// same user. f is updated with the stored id and timestamps.
	Upsert(ctx context.Context, tx Tx, f *model.MessageFeedback) error
	ListBySession(ctx context.Context, tx Tx, sessionID string) ([]model.MessageFeedback, error)
}

type MentorProfileRepository interface {
	// GetOrCreate returns the profile, inserting an empty one on first use.
	GetOrCreate(ctx context.Context, tx Tx, userID string) (*model.MentorProfile, error)
	Save(ctx context.Context, tx Tx, p *model.MentorProfile) error
}
