package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
)

var _ repository.CommunityRepository = (*CommunityRepo)(nil)

type CommunityRepo struct {
	pool *pgxpool.Pool
}

func NewCommunityRepo(pool *pgxpool.Pool) *CommunityRepo {
	return &CommunityRepo{pool: pool}
}

func (r *CommunityRepo) CreatePost(ctx context.Context, qx repository.Tx, p *model.Post) error {
	const q = `INSERT INTO posts (user_id, content) VALUES ($1,$2) RETURNING id, created_at;`
	if err := pickRow(ctx, r.pool, qx, q, p.UserID, p.Content).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("create post: %w", mapErr(err))
	}
	return nil
}

func (r *CommunityRepo) FindPost(ctx context.Context, qx repository.Tx, id int64) (*model.Post, error) {
	const q = `
SELECT p.id, p.user_id, p.content, p.likes_count, p.comments_count, p.created_at,
       COALESCE(array_agg(h.name ORDER BY h.name) FILTER (WHERE h.name IS NOT NULL), '{}')
  FROM posts p
  LEFT JOIN post_hashtags ph ON ph.post_id = p.id
  LEFT JOIN hashtags h ON h.id = ph.hashtag_id
 WHERE p.id=$1
 GROUP BY p.id;`
	var p model.Post
	if err := pickRow(ctx, r.pool, qx, q, id).Scan(&p.ID, &p.UserID, &p.Content, &p.LikesCount,
		&p.CommentsCount, &p.CreatedAt, &p.Hashtags); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// AttachHashtag get-or-creates the tag and links it. usage_count is bumped
// only when the link is new, so a tag counts once per post.
func (r *CommunityRepo) AttachHashtag(ctx context.Context, qx repository.Tx, postID int64, name string) (*model.Hashtag, error) {
	const upsert = `
INSERT INTO hashtags (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id;`
	h := model.Hashtag{Name: name}
	if err := pickRow(ctx, r.pool, qx, upsert, name).Scan(&h.ID); err != nil {
		return nil, fmt.Errorf("upsert hashtag: %w", mapErr(err))
	}

	tag, err := execWith(ctx, r.pool, qx,
		`INSERT INTO post_hashtags (post_id, hashtag_id) VALUES ($1,$2) ON CONFLICT DO NOTHING;`, postID, h.ID)
	if err != nil {
		return nil, fmt.Errorf("link hashtag: %w", mapErr(err))
	}
	if tag.RowsAffected() > 0 {
		if _, err := execWith(ctx, r.pool, qx, `UPDATE hashtags SET usage_count = usage_count + 1 WHERE id=$1;`, h.ID); err != nil {
			return nil, fmt.Errorf("bump hashtag: %w", err)
		}
	}
	if err := pickRow(ctx, r.pool, qx, `SELECT usage_count FROM hashtags WHERE id=$1;`, h.ID).Scan(&h.UsageCount); err != nil {
		return nil, mapErr(err)
	}
	return &h, nil
}

func (r *CommunityRepo) AddLike(ctx context.Context, qx repository.Tx, postID int64, userID string) (int, error) {
	tag, err := execWith(ctx, r.pool, qx,
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING;`, postID, userID)
	if err != nil {
		return 0, fmt.Errorf("like post: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrAlreadyExists
	}
	var n int
	const q = `UPDATE posts SET likes_count = likes_count + 1 WHERE id=$1 RETURNING likes_count;`
	if err := pickRow(ctx, r.pool, qx, q, postID).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *CommunityRepo) CreateComment(ctx context.Context, qx repository.Tx, c *model.Comment) error {
	const q = `INSERT INTO post_comments (post_id, user_id, content) VALUES ($1,$2,$3) RETURNING id, created_at;`
	if err := pickRow(ctx, r.pool, qx, q, c.PostID, c.AuthorID, c.Content).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("create comment: %w", mapErr(err))
	}
	if _, err := execWith(ctx, r.pool, qx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id=$1;`, c.PostID); err != nil {
		return fmt.Errorf("bump comments: %w", err)
	}
	return nil
}

func (r *CommunityRepo) FindFollow(ctx context.Context, qx repository.Tx, followerID, followingID string) (*model.Follow, error) {
	const q = `SELECT follower_id, following_id, status, created_at FROM user_follows WHERE follower_id=$1 AND following_id=$2;`
	var f model.Follow
	var status string
	if err := pickRow(ctx, r.pool, qx, q, followerID, followingID).Scan(&f.FollowerID, &f.FollowingID, &status, &f.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	f.Status = model.FollowStatus(status)
	return &f, nil
}

func (r *CommunityRepo) UpsertFollow(ctx context.Context, qx repository.Tx, f *model.Follow) error {
	const q = `
INSERT INTO user_follows (follower_id, following_id, status, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (follower_id, following_id) DO UPDATE SET
  status = EXCLUDED.status,
  created_at = EXCLUDED.created_at;`
	if _, err := execWith(ctx, r.pool, qx, q, f.FollowerID, f.FollowingID, string(f.Status), f.CreatedAt); err != nil {
		return fmt.Errorf("upsert follow: %w", mapErr(err))
	}
	return nil
}

func (r *CommunityRepo) DeleteFollow(ctx context.Context, qx repository.Tx, followerID, followingID string) error {
	tag, err := execWith(ctx, r.pool, qx, `DELETE FROM user_follows WHERE follower_id=$1 AND following_id=$2;`, followerID, followingID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
