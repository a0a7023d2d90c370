package repository

import (
	"context"

	"codehub-mentor/internal/domain/model"
)

type ProjectRepository interface {
	Create(ctx context.Context, tx Tx, p *model.Project) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Project, error)
	ListOwned(ctx context.Context, tx Tx, ownerID string) ([]*model.Project, error)
	ListMemberOf(ctx context.Context, tx Tx, userID string) ([]*model.Project, error)

	FindMember(ctx context.Context, tx Tx, projectID, userID string) (*model.ProjectMember, error)
	// UpsertMember inserts or replaces the membership row.
	UpsertMember(ctx context.Context, tx Tx, m *model.ProjectMember) error
}

type CommunityRepository interface {
	CreatePost(ctx context.Context, tx Tx, p *model.Post) error
	FindPost(ctx context.Context, tx Tx, id int64) (*model.Post, error)
	// AttachHashtag get-or-creates the tag, links it to the post and bumps
	// its usage count.
	AttachHashtag(ctx context.Context, tx Tx, postID int64, name string) (*model.Hashtag, error)

	// AddLike returns domain.ErrAlreadyExists when already liked.
	AddLike(ctx context.Context, tx Tx, postID int64, userID string) (int, error)
	CreateComment(ctx context.Context, tx Tx, c *model.Comment) error

	FindFollow(ctx context.Context, tx Tx, followerID, followingID string) (*model.Follow, error)
	UpsertFollow(ctx context.Context, tx Tx, f *model.Follow) error
	DeleteFollow(ctx context.Context, tx Tx, followerID, followingID string) error
}
