package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/logging"
	"codehub-mentor/internal/infra/metrics"
)

// SessionUseCase manages the lifecycle of a user's chat sessions.
type SessionUseCase struct {
	sessions repository.ChatSessionRepository
	log      *zerolog.Logger
}

func NewSessionUseCase(sessions repository.ChatSessionRepository, log *zerolog.Logger) *SessionUseCase {
	return &SessionUseCase{sessions: sessions, log: log}
}

func (uc *SessionUseCase) Create(ctx context.Context, userID string, typ model.SessionType) (*model.ChatSession, error) {
	defer logging.TraceDuration(uc.log, "SessionUC.Create")()

	s, err := model.NewChatSession(userID, typ)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Save(ctx, repository.NoTX, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	logging.With(logging.WithSessID(ctx, s.ID), uc.log).Info().Str("type", string(s.Type)).Msg("chat session created")
	return s, nil
}

func (uc *SessionUseCase) List(ctx context.Context, userID string) ([]*model.ChatSession, error) {
	defer logging.TraceDuration(uc.log, "SessionUC.List")()
	return uc.sessions.FindAllByUser(ctx, repository.NoTX, userID)
}

// Get returns the session with its messages. Sessions of other users are
// reported as ErrUnauthorized.
func (uc *SessionUseCase) Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	defer logging.TraceDuration(uc.log, "SessionUC.Get")()

	s, err := uc.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := uc.sessions.ListMessages(ctx, repository.NoTX, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	s.Messages = msgs
	return s, nil
}

func (uc *SessionUseCase) End(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	defer logging.TraceDuration(uc.log, "SessionUC.End")()

	s, err := uc.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return s, nil
	}
	s.End(time.Now().UTC())
	if err := uc.sessions.UpdateStatus(ctx, repository.NoTX, s.ID, s.Status); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	return s, nil
}

func (uc *SessionUseCase) Messages(ctx context.Context, userID, sessionID string, limit int) ([]model.ChatMessage, error) {
	defer logging.TraceDuration(uc.log, "SessionUC.Messages")()

	if _, err := uc.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return uc.sessions.ListMessages(ctx, repository.NoTX, sessionID, limit)
}

// ExpireConfirmations drops pending confirmations older than ttl so a late
// "yes" is treated as a new message instead of executing a stale proposal.
func (uc *SessionUseCase) ExpireConfirmations(ctx context.Context, ttl time.Duration) (int64, error) {
	defer logging.TraceDuration(uc.log, "SessionUC.ExpireConfirmations")()

	n, err := uc.sessions.ExpirePending(ctx, repository.NoTX, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, err
	}
	metrics.AddConfirmations("expired", n)
	if n > 0 {
		uc.log.Info().Int64("sessions", n).Dur("ttl", ttl).Msg("expired pending confirmations")
	}
	return n, nil
}

func (uc *SessionUseCase) owned(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	s, err := uc.sessions.FindByID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.OwnedBy(userID) {
		return nil, domain.ErrUnauthorized
	}
	return s, nil
}
