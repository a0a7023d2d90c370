package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
)

var _ repository.FeedbackRepository = (*FeedbackRepo)(nil)

type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

// Upsert keeps the original id and created_at when the user rates the same
// message again.
func (r *FeedbackRepo) Upsert(ctx context.Context, qx repository.Tx, f *model.MessageFeedback) error {
	const q = `
INSERT INTO message_feedback (id, user_id, session_id, message_id, rating, feedback, is_helpful, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id, message_id) DO UPDATE SET
  rating = EXCLUDED.rating,
  feedback = EXCLUDED.feedback,
  is_helpful = EXCLUDED.is_helpful,
  updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at;`
	if err := pickRow(ctx, r.pool, qx, q,
		f.ID, f.UserID, f.SessionID, f.MessageID, f.Rating, f.Comment, f.Helpful, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return fmt.Errorf("upsert feedback: %w", mapErr(err))
	}
	return nil
}

func (r *FeedbackRepo) ListBySession(ctx context.Context, qx repository.Tx, sessionID string) ([]model.MessageFeedback, error) {
	const q = `
SELECT id, user_id, session_id, message_id, rating, feedback, is_helpful, created_at, updated_at
  FROM message_feedback
 WHERE session_id=$1
 ORDER BY created_at DESC, id;`
	rows, err := queryRows(ctx, r.pool, qx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()
	var out []model.MessageFeedback
	for rows.Next() {
		var f model.MessageFeedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.SessionID, &f.MessageID, &f.Rating, &f.Comment, &f.Helpful, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
