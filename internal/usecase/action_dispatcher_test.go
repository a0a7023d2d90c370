//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/usecase"
)

type dispatcherEnv struct {
	d         *usecase.ActionDispatcher
	users     *MockUserRepo
	learning  *MockLearningRepo
	projects  *MockProjectRepo
	community *MockCommunityRepo
	tm        *MockTxManager
}

func testUsers() []*model.User {
	return []*model.User{
		{ID: "u1", Username: "alice", FirstName: "Alice", LastName: "Doe", Program: "BSCS"},
		{ID: "u2", Username: "bob", FirstName: "Bob", LastName: "Cruz", Program: "BSIT"},
	}
}

func testPaths() []*model.CareerPath {
	return []*model.CareerPath{
		{ID: 1, Name: "React Fundamentals", Description: "Components and hooks", ModuleCount: 8},
		{ID: 2, Name: "Python Basics", Description: "Start programming", ModuleCount: 6},
	}
}

func newDispatcherEnv() *dispatcherEnv {
	e := &dispatcherEnv{
		users:     NewMockUserRepo(testUsers()...),
		learning:  NewMockLearningRepo(testPaths()...),
		projects:  NewMockProjectRepo(),
		community: NewMockCommunityRepo(),
		tm:        NewMockTxManager(),
	}
	e.d = usecase.NewActionDispatcher(e.users, e.learning, e.projects, e.community, e.tm, newTestLogger())
	return e
}

func TestDispatcher_EnrollIsIdempotent(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	first := e.d.EnrollInPath(ctx, "u1", 1)
	require.True(t, first.Success)
	assert.Equal(t, "Successfully enrolled in React Fundamentals!", first.Message)

	second := e.d.EnrollInPath(ctx, "u1", 1)
	assert.True(t, second.Success)
	assert.Nil(t, second.Error)
	assert.Equal(t, "You are already enrolled in React Fundamentals", second.Message)
	assert.Equal(t, true, second.Payload["already_enrolled"])
	assert.Equal(t, 1, e.learning.EnrollmentCount("u1"))

	missing := e.d.EnrollInPath(ctx, "u1", 99)
	assert.Equal(t, domain.KindNotFound, missing.Kind())
	assert.Equal(t, "Course not found", missing.Message)
}

func TestDispatcher_StoreErrorsAreUnexpected(t *testing.T) {
	e := newDispatcherEnv()
	e.tm.WithTxFunc = func(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
		return errors.New("connection reset")
	}
	res := e.d.EnrollInPath(context.Background(), "u1", 1)
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindUnexpected, res.Kind())
	assert.Equal(t, "Error enrolling: connection reset", res.Message)
}

func TestDispatcher_Unenroll(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	res := e.d.UnenrollFromPath(ctx, "u1", 2)
	assert.Equal(t, domain.KindNotFound, res.Kind())
	assert.Equal(t, "You are not enrolled in Python Basics", res.Message)

	require.True(t, e.d.EnrollInPath(ctx, "u1", 2).Success)
	res = e.d.UnenrollFromPath(ctx, "u1", 2)
	assert.True(t, res.Success)
	assert.Zero(t, e.learning.EnrollmentCount("u1"))
}

func TestDispatcher_SearchCourses(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	res := e.d.SearchCourses(ctx, "react")
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Payload["total"])
	paths := res.Payload["paths"].([]map[string]any)
	assert.Equal(t, int64(1), paths[0]["id"])

	res = e.d.SearchCourses(ctx, "react fundamentals")
	assert.NotNil(t, res.Payload["exact_match"])

	res = e.d.SearchCourses(ctx, "haskell")
	require.True(t, res.Success)
	assert.Equal(t, 0, res.Payload["total"])
	assert.Equal(t, []string{"React Fundamentals", "Python Basics"}, res.Payload["suggestions"])

	res = e.d.SearchCourses(ctx, "  ")
	assert.Equal(t, domain.KindValidation, res.Kind())
}

func TestDispatcher_CreateProjectDefaults(t *testing.T) {
	e := newDispatcherEnv()

	res := e.d.CreateProject(context.Background(), "u1", usecase.ProjectDraft{Title: "Todo App", Description: "Track tasks"})
	require.True(t, res.Success)
	assert.Equal(t, "Project 'Todo App' created successfully!", res.Message)

	p := res.Payload["project"].(map[string]any)
	assert.Equal(t, model.ProjectStatusPlanning, p["status"])
	assert.Equal(t, model.ProjectVisibilityPrivate, p["visibility"])
	assert.Equal(t, model.ProjectTypeWebApp, p["project_type"])
	assert.Equal(t, model.ProjectLanguagePython, p["programming_language"])

	owner, err := e.projects.FindMember(context.Background(), nil, p["id"].(string), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.MembershipActive, owner.Status)

	unnamed := e.d.CreateProject(context.Background(), "u1", usecase.ProjectDraft{})
	require.True(t, unnamed.Success)
	assert.Equal(t, "New Project", unnamed.Payload["project"].(map[string]any)["name"])

	long := e.d.CreateProject(context.Background(), "u1", usecase.ProjectDraft{Name: strings.Repeat("é", 201)})
	assert.Equal(t, domain.KindValidation, long.Kind())
	assert.Equal(t, 2, e.projects.Count())
}

func TestDispatcher_PostHashtagsAreNormalized(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	res := e.d.CreateCommunityPost(ctx, "u1", "Shipped my first API", []string{"#Foo", " bar ", "FOO"})
	require.True(t, res.Success)
	assert.Equal(t, "Post published successfully!", res.Message)
	post := res.Payload["post"].(map[string]any)
	assert.Equal(t, []string{"foo", "bar"}, post["hashtags"])
	assert.Equal(t, 1, e.community.Hashtag("foo").UsageCount)
	assert.Equal(t, 1, e.community.Hashtag("bar").UsageCount)

	require.True(t, e.d.CreateCommunityPost(ctx, "u2", "Me too", []string{"foo"}).Success)
	assert.Equal(t, 2, e.community.Hashtag("foo").UsageCount)

	empty := e.d.CreateCommunityPost(ctx, "u1", "   ", nil)
	assert.Equal(t, domain.KindValidation, empty.Kind())
	assert.Equal(t, 2, e.community.PostCount())
}

func TestDispatcher_Follow(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	self := e.d.FollowUser(ctx, "u1", "@alice")
	assert.Equal(t, domain.KindValidation, self.Kind())
	assert.Equal(t, "You can't follow yourself", self.Message)

	ok := e.d.FollowUser(ctx, "u1", "bob")
	require.True(t, ok.Success)
	assert.Equal(t, "Follow request sent to @bob!", ok.Message)

	again := e.d.FollowUser(ctx, "u1", "bob")
	assert.Equal(t, domain.KindConflict, again.Kind())
	assert.Equal(t, "pending", again.Payload["status"])

	// a rejected request may be sent again
	require.NoError(t, e.community.UpsertFollow(ctx, nil, &model.Follow{
		FollowerID: "u1", FollowingID: "u2", Status: model.FollowRejected, CreatedAt: time.Now(),
	}))
	reopened := e.d.FollowUser(ctx, "u1", "bob")
	require.True(t, reopened.Success)
	f, err := e.community.FindFollow(ctx, nil, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, model.FollowPending, f.Status)

	missing := e.d.FollowUser(ctx, "u1", "ghost")
	assert.Equal(t, "User @ghost not found", missing.Message)

	assert.True(t, e.d.UnfollowUser(ctx, "u1", "bob").Success)
	notFollowing := e.d.UnfollowUser(ctx, "u1", "bob")
	assert.Equal(t, "You are not following @bob", notFollowing.Message)
}

func TestDispatcher_JoinProject(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	created := e.d.CreateProject(ctx, "u1", usecase.ProjectDraft{Name: "Chat Bot"})
	require.True(t, created.Success)
	id := created.Payload["project"].(map[string]any)["id"].(string)

	owner := e.d.RequestToJoinProject(ctx, "u1", id, "hi")
	assert.Equal(t, domain.KindConflict, owner.Kind())

	res := e.d.RequestToJoinProject(ctx, "u2", id, "I'd like to help")
	require.True(t, res.Success)
	assert.Equal(t, "Join request sent for Chat Bot!", res.Message)

	dup := e.d.RequestToJoinProject(ctx, "u2", id, "again")
	assert.Equal(t, domain.KindConflict, dup.Kind())
	assert.Equal(t, "You are already a member of this project", dup.Message)

	missing := e.d.RequestToJoinProject(ctx, "u2", "nope", "hi")
	assert.Equal(t, "Project not found", missing.Message)
}

func TestDispatcher_LikeAndComment(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	post := e.d.CreateCommunityPost(ctx, "u2", "Hello world", nil)
	require.True(t, post.Success)
	id := post.Payload["post"].(map[string]any)["id"].(int64)

	like := e.d.LikePost(ctx, "u1", id)
	require.True(t, like.Success)
	assert.Equal(t, 1, like.Payload["likes_count"])

	dup := e.d.LikePost(ctx, "u1", id)
	assert.Equal(t, "You already liked this post", dup.Message)

	assert.Equal(t, "Post not found", e.d.LikePost(ctx, "u1", 999).Message)

	comment := e.d.CommentOnPost(ctx, "u1", id, "Nice!")
	require.True(t, comment.Success)
	assert.Equal(t, "Comment added!", comment.Message)
	assert.Equal(t, domain.KindValidation, e.d.CommentOnPost(ctx, "u1", id, " ").Kind())
}

func TestDispatcher_ReadOnlyViews(t *testing.T) {
	e := newDispatcherEnv()
	ctx := context.Background()

	progress := e.d.GetUserProgress(ctx, "u1")
	require.True(t, progress.Success)
	assert.Equal(t, 0, progress.Payload["total"])

	require.True(t, e.d.EnrollInPath(ctx, "u1", 2).Success)
	require.True(t, e.d.CreateProject(ctx, "u1", usecase.ProjectDraft{Name: "Mine"}).Success)

	progress = e.d.GetUserProgress(ctx, "u1")
	courses := progress.Payload["enrolled_courses"].([]map[string]any)
	require.Len(t, courses, 1)
	assert.Equal(t, "Python Basics", courses[0]["name"])

	projects := e.d.GetUserProjects(ctx, "u1")
	assert.Equal(t, 1, projects.Payload["total"])

	users := e.d.SearchUsers(ctx, "u1", "@b")
	require.True(t, users.Success)
	found := users.Payload["users"].([]map[string]any)
	require.Len(t, found, 1)
	assert.Equal(t, "bob", found[0]["username"])
}
