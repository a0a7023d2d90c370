package repository

import (
	"context"

	"codehub-mentor/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
	Search(ctx context.Context, tx Tx, query, excludeID string, limit int) ([]*model.User, error)
}

type LearningRepository interface {
	FindPath(ctx context.Context, tx Tx, id int64) (*model.CareerPath, error)
	FindPathByName(ctx context.Context, tx Tx, name string) (*model.CareerPath, error)
	SearchPaths(ctx context.Context, tx Tx, query string, limit int) ([]*model.CareerPath, error)
	SearchModules(ctx context.Context, tx Tx, query string, limit int) ([]*model.LearningModule, error)
	ListPaths(ctx context.Context, tx Tx, limit int) ([]*model.CareerPath, error)

	// CreateEnrollment returns domain.ErrAlreadyExists when the user is
	// already enrolled in the path.
	CreateEnrollment(ctx context.Context, tx Tx, e *model.Enrollment) error
	FindEnrollment(ctx context.Context, tx Tx, userID string, pathID int64) (*model.Enrollment, error)
	DeleteEnrollment(ctx context.Context, tx Tx, userID string, pathID int64) error
	ListEnrollments(ctx context.Context, tx Tx, userID string) ([]*model.Enrollment, error)
}
