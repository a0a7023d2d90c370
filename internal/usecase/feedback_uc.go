package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/logging"
	"codehub-mentor/internal/infra/metrics"
)

// FeedbackUseCase records user ratings of assistant replies.
type FeedbackUseCase struct {
	sessions repository.ChatSessionRepository
	feedback repository.FeedbackRepository
	log      *zerolog.Logger
}

func NewFeedbackUseCase(sessions repository.ChatSessionRepository, feedback repository.FeedbackRepository, log *zerolog.Logger) *FeedbackUseCase {
	return &FeedbackUseCase{sessions: sessions, feedback: feedback, log: log}
}

type FeedbackInput struct {
	Rating  int
	Comment string
	Helpful *bool
}

// Rate stores the user's rating of an assistant message in their own
// session. Rating the same message again replaces the earlier rating.
func (uc *FeedbackUseCase) Rate(ctx context.Context, userID, sessionID, messageID string, in FeedbackInput) (*model.MessageFeedback, error) {
	ctx = logging.WithSessID(logging.WithUserID(ctx, userID), sessionID)
	defer logging.TraceDuration(uc.log, "FeedbackUC.Rate")()

	f, err := model.NewMessageFeedback(userID, sessionID, messageID, in.Rating, in.Comment, in.Helpful)
	if err != nil {
		return nil, err
	}
	s, err := uc.sessions.FindByID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.OwnedBy(userID) {
		return nil, domain.ErrUnauthorized
	}
	msg, err := uc.sessions.FindMessage(ctx, repository.NoTX, sessionID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Sender != model.SenderAssistant {
		return nil, domain.NewValidationError("message_id", "only assistant messages can be rated")
	}
	if err := uc.feedback.Upsert(ctx, repository.NoTX, f); err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}
	metrics.IncFeedback(f.Rating)
	logging.With(ctx, uc.log).Info().Str("message_id", messageID).Int("rating", f.Rating).Msg("feedback recorded")
	return f, nil
}

func (uc *FeedbackUseCase) List(ctx context.Context, userID, sessionID string) ([]model.MessageFeedback, error) {
	defer logging.TraceDuration(uc.log, "FeedbackUC.List")()

	s, err := uc.sessions.FindByID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.OwnedBy(userID) {
		return nil, domain.ErrUnauthorized
	}
	return uc.feedback.ListBySession(ctx, repository.NoTX, sessionID)
}
