package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"codehub-mentor/internal/domain"
)

const (
	MinRating = 1
	MaxRating = 5

	feedbackMaxRunes = 2000
)

// MessageFeedback is a user's rating of one assistant message. A user holds
// at most one feedback per message; rating again replaces it.
type MessageFeedback struct {
	ID        string
	UserID    string
	SessionID string
	MessageID string
	Rating    int
	Comment   string
	Helpful   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMessageFeedback validates the rating and comment. Helpful defaults to
// rating >= 3 when not given.
func NewMessageFeedback(userID, sessionID, messageID string, rating int, comment string, helpful *bool) (*MessageFeedback, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, domain.NewValidationError("rating", "must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > feedbackMaxRunes {
		return nil, domain.NewValidationError("feedback", "must be at most 2000 characters")
	}
	h := rating >= 3
	if helpful != nil {
		h = *helpful
	}
	now := time.Now().UTC()
	return &MessageFeedback{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		MessageID: messageID,
		Rating:    rating,
		Comment:   comment,
		Helpful:   h,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
