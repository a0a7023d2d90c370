package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
)

var _ repository.MentorProfileRepository = (*MentorProfileRepo)(nil)

type MentorProfileRepo struct {
	pool *pgxpool.Pool
}

func NewMentorProfileRepo(pool *pgxpool.Pool) *MentorProfileRepo {
	return &MentorProfileRepo{pool: pool}
}

// GetOrCreate inserts an empty profile on first use. The no-op update makes
// RETURNING yield the existing row as well.
func (r *MentorProfileRepo) GetOrCreate(ctx context.Context, qx repository.Tx, userID string) (*model.MentorProfile, error) {
	const q = `
INSERT INTO mentor_profiles (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING user_id, preferred_model, total_interactions, total_tokens_used, created_at, updated_at;`
	var p model.MentorProfile
	if err := pickRow(ctx, r.pool, qx, q, userID).Scan(
		&p.UserID, &p.PreferredModel, &p.TotalInteractions, &p.TotalTokensUsed, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("get or create profile: %w", mapErr(err))
	}
	return &p, nil
}

func (r *MentorProfileRepo) Save(ctx context.Context, qx repository.Tx, p *model.MentorProfile) error {
	const q = `
INSERT INTO mentor_profiles (user_id, preferred_model, total_interactions, total_tokens_used, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id) DO UPDATE SET
  preferred_model = EXCLUDED.preferred_model,
  total_interactions = EXCLUDED.total_interactions,
  total_tokens_used = EXCLUDED.total_tokens_used,
  updated_at = EXCLUDED.updated_at;`
	if _, err := execWith(ctx, r.pool, qx, q, p.UserID, p.PreferredModel, p.TotalInteractions, p.TotalTokensUsed, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("save profile: %w", mapErr(err))
	}
	return nil
}
