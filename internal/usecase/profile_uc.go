package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/logging"
)

// ProfileView is a mentor profile with its resolved model.
type ProfileView struct {
	UserID            string               `json:"user_id"`
	PreferredModel    string               `json:"preferred_model"`
	Model             *adapter.ModelOption `json:"model,omitempty"`
	TotalInteractions int                  `json:"total_interactions"`
	TotalTokensUsed   int                  `json:"total_tokens_used"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

type ProfileUseCase struct {
	profiles     repository.MentorProfileRepository
	catalog      adapter.ModelCatalog
	defaultModel string
	log          *zerolog.Logger
}

func NewProfileUseCase(profiles repository.MentorProfileRepository, catalog adapter.ModelCatalog, defaultModel string, log *zerolog.Logger) *ProfileUseCase {
	return &ProfileUseCase{profiles: profiles, catalog: catalog, defaultModel: defaultModel, log: log}
}

func (uc *ProfileUseCase) Get(ctx context.Context, userID string) (*ProfileView, error) {
	defer logging.TraceDuration(uc.log, "ProfileUC.Get")()

	p, err := uc.profiles.GetOrCreate(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	return uc.view(p), nil
}

// SetPreferredModel stores the canonical key of a registered model. Unknown
// keys are validation errors.
func (uc *ProfileUseCase) SetPreferredModel(ctx context.Context, userID, key string) (*ProfileView, error) {
	defer logging.TraceDuration(uc.log, "ProfileUC.SetPreferredModel")()

	opt, ok := uc.catalog.Lookup(key)
	if !ok {
		return nil, domain.NewValidationError("preferred_model", fmt.Sprintf("unknown model %q", key))
	}
	p, err := uc.profiles.GetOrCreate(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	p.PreferredModel = opt.Key
	p.UpdatedAt = time.Now().UTC()
	if err := uc.profiles.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	logging.With(ctx, uc.log).Info().Str("model", opt.Key).Msg("preferred model changed")
	return uc.view(p), nil
}

func (uc *ProfileUseCase) Models() []adapter.ModelOption {
	return uc.catalog.Models()
}

func (uc *ProfileUseCase) view(p *model.MentorProfile) *ProfileView {
	v := &ProfileView{
		UserID:            p.UserID,
		PreferredModel:    p.PreferredModel,
		TotalInteractions: p.TotalInteractions,
		TotalTokensUsed:   p.TotalTokensUsed,
		UpdatedAt:         p.UpdatedAt,
	}
	key := p.PreferredModel
	if key == "" {
		key = uc.defaultModel
	}
	if opt, ok := uc.catalog.Lookup(key); ok {
		v.Model = &opt
	}
	return v
}
