//go:build integration

package postgres

import (
	"context"
	"testing"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearningRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewLearningRepo(testPool)

	cleanup(t)
	seedUser(t, "u1", "learner")
	reactID := seedPath(t, "React Developer", "Build UIs with React", "JSX", "Hooks")
	seedPath(t, "Backend with Go", "Services in Go")

	paths, err := repo.SearchPaths(ctx, nil, "REACT", 5)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, 2, paths[0].ModuleCount)

	mods, err := repo.SearchModules(ctx, nil, "hooks", 5)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "React Developer", mods[0].PathName)

	require.NoError(t, repo.CreateEnrollment(ctx, nil, &model.Enrollment{UserID: "u1", PathID: reactID}))
	err = repo.CreateEnrollment(ctx, nil, &model.Enrollment{UserID: "u1", PathID: reactID})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	list, err := repo.ListEnrollments(ctx, nil, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1, "second enrollment must not insert a row")

	require.NoError(t, repo.DeleteEnrollment(ctx, nil, "u1", reactID))
	assert.ErrorIs(t, repo.DeleteEnrollment(ctx, nil, "u1", reactID), domain.ErrNotFound)
}

func TestCommunityRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewCommunityRepo(testPool)
	tm := NewTxManager(testPool)

	cleanup(t)
	seedUser(t, "u1", "alice")
	seedUser(t, "u2", "bob")

	var post model.Post
	err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		post = model.Post{UserID: "u1", Content: "Learning Go today"}
		if err := repo.CreatePost(ctx, tx, &post); err != nil {
			return err
		}
		for _, tag := range model.NormalizeHashtags([]string{"#Go", " learning ", "GO"}) {
			if _, err := repo.AttachHashtag(ctx, tx, post.ID, tag); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	h, err := repo.AttachHashtag(ctx, nil, post.ID, "go")
	require.NoError(t, err)
	assert.Equal(t, 1, h.UsageCount, "a tag counts once per post")

	n, err := repo.AddLike(ctx, nil, post.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = repo.AddLike(ctx, nil, post.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = repo.UpsertFollow(ctx, nil, &model.Follow{FollowerID: "u1", FollowingID: "u1", Status: model.FollowPending})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "self follow violates the check constraint")

	require.NoError(t, repo.UpsertFollow(ctx, nil, &model.Follow{FollowerID: "u1", FollowingID: "u2", Status: model.FollowPending}))
	f, err := repo.FindFollow(ctx, nil, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, model.FollowPending, f.Status)
	require.NoError(t, repo.DeleteFollow(ctx, nil, "u1", "u2"))
	assert.ErrorIs(t, repo.DeleteFollow(ctx, nil, "u1", "u2"), domain.ErrNotFound)
}

func TestTxManager_NestedCallsShareOneTransaction(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	tm := NewTxManager(testPool)
	learning := NewLearningRepo(testPool)

	cleanup(t)
	seedUser(t, "u1", "learner")
	pathID := seedPath(t, "Python Basics", "Start with Python")

	err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, outer repository.Tx) error {
		return tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, inner repository.Tx) error {
			assert.Same(t, outer, inner)
			if err := learning.CreateEnrollment(ctx, inner, &model.Enrollment{UserID: "u1", PathID: pathID}); err != nil {
				return err
			}
			return domain.ErrInvalidArgument
		})
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	list, err := learning.ListEnrollments(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Empty(t, list, "inner failure rolls back the outer transaction")
}
