package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/logging"
)

const (
	searchLimit      = 5
	userSearchLimit  = 10
	projectNameLimit = 200
)

// ProjectDraft is the input of CreateProject. Zero fields take defaults.
type ProjectDraft struct {
	Name                string   `json:"name,omitempty"`
	Title               string   `json:"title,omitempty"`
	Description         string   `json:"description,omitempty"`
	ProjectType         string   `json:"project_type,omitempty"`
	ProgrammingLanguage string   `json:"programming_language,omitempty"`
	TechStack           []string `json:"tech_stack,omitempty"`
	Status              string   `json:"status,omitempty"`
	Visibility          string   `json:"visibility,omitempty"`
}

// ActionDispatcher performs the side effects a chat turn can request on
// behalf of a user. Every operation reports its outcome as an ActionResult.
type ActionDispatcher struct {
	users     repository.UserRepository
	learning  repository.LearningRepository
	projects  repository.ProjectRepository
	community repository.CommunityRepository
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewActionDispatcher(
	users repository.UserRepository,
	learning repository.LearningRepository,
	projects repository.ProjectRepository,
	community repository.CommunityRepository,
	tm repository.TransactionManager,
	log *zerolog.Logger,
) *ActionDispatcher {
	return &ActionDispatcher{users: users, learning: learning, projects: projects, community: community, tm: tm, log: log}
}

// unexpected logs a store failure and wraps it into a failed result that
// keeps the original message.
func (d *ActionDispatcher) unexpected(ctx context.Context, op, msg string, err error) model.ActionResult {
	logging.With(ctx, d.log).Error().Err(err).Str("op", op).Msg("action failed")
	return model.Failed(domain.KindUnexpected, fmt.Sprintf("%s: %v", msg, err), err.Error())
}

func (d *ActionDispatcher) SearchCourses(ctx context.Context, query string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.SearchCourses")()

	query = strings.TrimSpace(query)
	if query == "" {
		return model.Failed(domain.KindValidation, "Tell me what to search for.", "empty query")
	}
	paths, err := d.learning.SearchPaths(ctx, repository.NoTX, query, searchLimit)
	if err != nil {
		return d.unexpected(ctx, "search_paths", "Error searching courses", err)
	}
	modules, err := d.learning.SearchModules(ctx, repository.NoTX, query, searchLimit)
	if err != nil {
		return d.unexpected(ctx, "search_modules", "Error searching courses", err)
	}

	pathOut := make([]map[string]any, 0, len(paths))
	var exact map[string]any
	for _, p := range paths {
		s := p.Summary()
		pathOut = append(pathOut, s)
		if exact == nil && strings.EqualFold(p.Name, query) {
			exact = s
		}
	}
	modOut := make([]map[string]any, 0, len(modules))
	for _, m := range modules {
		modOut = append(modOut, m.Summary())
	}

	total := len(pathOut) + len(modOut)
	res := model.Succeeded(fmt.Sprintf("Found %d results for %q", total, query), map[string]any{
		"query":   query,
		"paths":   pathOut,
		"modules": modOut,
		"total":   total,
	})
	if exact != nil {
		res = res.With("exact_match", exact)
	}
	if total == 0 {
		all, err := d.learning.ListPaths(ctx, repository.NoTX, searchLimit)
		if err == nil {
			names := make([]string, 0, len(all))
			for _, p := range all {
				names = append(names, p.Name)
			}
			res = res.With("suggestions", names)
		}
	}
	return res
}

func (d *ActionDispatcher) EnrollInPath(ctx context.Context, userID string, pathID int64) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.EnrollInPath")()

	var (
		path *model.CareerPath
		enr  *model.Enrollment
	)
	err := d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if path, err = d.learning.FindPath(ctx, tx, pathID); err != nil {
			return err
		}
		enr = &model.Enrollment{UserID: userID, PathID: pathID, Status: model.EnrollmentInProgress}
		return d.learning.CreateEnrollment(ctx, tx, enr)
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		return model.Failed(domain.KindNotFound, "Course not found", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		return model.Succeeded(fmt.Sprintf("You are already enrolled in %s", path.Name), nil).
			With("already_enrolled", true).
			With("path", path.Summary())
	default:
		return d.unexpected(ctx, "enroll", "Error enrolling", err)
	}

	enr.PathName = path.Name
	enr.PathDescription = path.Description
	enr.TotalModules = path.ModuleCount
	return model.Succeeded(fmt.Sprintf("Successfully enrolled in %s!", path.Name), map[string]any{
		"path":     path.Summary(),
		"progress": enr.Summary(),
	})
}

func (d *ActionDispatcher) UnenrollFromPath(ctx context.Context, userID string, pathID int64) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.UnenrollFromPath")()

	path, err := d.learning.FindPath(ctx, repository.NoTX, pathID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.Failed(domain.KindNotFound, "Course not found", err.Error())
		}
		return d.unexpected(ctx, "unenroll", "Error unenrolling", err)
	}
	err = d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return d.learning.DeleteEnrollment(ctx, tx, userID, pathID)
	})
	switch {
	case err == nil:
		return model.Succeeded(fmt.Sprintf("Successfully unenrolled from %s", path.Name), map[string]any{"path_name": path.Name})
	case errors.Is(err, domain.ErrNotFound):
		return model.Failed(domain.KindNotFound, fmt.Sprintf("You are not enrolled in %s", path.Name), "not enrolled").
			With("not_enrolled", true)
	default:
		return d.unexpected(ctx, "unenroll", "Error unenrolling", err)
	}
}

func (d *ActionDispatcher) CreateProject(ctx context.Context, userID string, draft ProjectDraft) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.CreateProject")()

	name := firstNonEmpty(draft.Name, draft.Title, "New Project")
	if utf8.RuneCountInString(name) > projectNameLimit {
		return model.Failed(domain.KindValidation,
			fmt.Sprintf("Project name must be at most %d characters", projectNameLimit), "name too long")
	}
	p := &model.Project{
		ID:                  uuid.NewString(),
		OwnerID:             userID,
		Name:                name,
		Description:         strings.TrimSpace(draft.Description),
		ProjectType:         firstNonEmpty(draft.ProjectType, model.ProjectTypeWebApp),
		ProgrammingLanguage: firstNonEmpty(draft.ProgrammingLanguage, model.ProjectLanguagePython),
		TechStack:           draft.TechStack,
		Status:              firstNonEmpty(draft.Status, model.ProjectStatusPlanning),
		Visibility:          firstNonEmpty(draft.Visibility, model.ProjectVisibilityPrivate),
		CreatedAt:           time.Now().UTC(),
	}

	err := d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := d.projects.Create(ctx, tx, p); err != nil {
			return err
		}
		owner, err := d.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		p.Owner = owner
		return d.projects.UpsertMember(ctx, tx, &model.ProjectMember{
			ProjectID: p.ID, UserID: userID, Role: "owner", Status: model.MembershipActive, CreatedAt: p.CreatedAt,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return model.Failed(domain.KindValidation, "Error creating project: invalid project data", err.Error())
		}
		return d.unexpected(ctx, "create_project", "Error creating project", err)
	}
	return model.Succeeded(fmt.Sprintf("Project '%s' created successfully!", p.Name), map[string]any{"project": p.Summary()})
}

// CreateCommunityPost normalizes hashtags before linking them, so "#Go" and
// "go" attach one tag whose usage count grows by one.
func (d *ActionDispatcher) CreateCommunityPost(ctx context.Context, userID, content string, hashtags []string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.CreateCommunityPost")()

	content = strings.TrimSpace(content)
	if content == "" {
		return model.Failed(domain.KindValidation, "Post content cannot be empty", "empty content")
	}
	post := &model.Post{UserID: userID, Content: content}
	var tags []*model.Hashtag

	err := d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := d.community.CreatePost(ctx, tx, post); err != nil {
			return err
		}
		for _, name := range model.NormalizeHashtags(hashtags) {
			h, err := d.community.AttachHashtag(ctx, tx, post.ID, name)
			if err != nil {
				return err
			}
			tags = append(tags, h)
			post.Hashtags = append(post.Hashtags, h.Name)
		}
		author, err := d.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		post.Author = author
		return nil
	})
	if err != nil {
		return d.unexpected(ctx, "create_post", "Error creating post", err)
	}

	usage := make(map[string]int, len(tags))
	for _, h := range tags {
		usage[h.Name] = h.UsageCount
	}
	return model.Succeeded("Post published successfully!", map[string]any{
		"post":          post.Summary(),
		"hashtag_usage": usage,
	})
}

func (d *ActionDispatcher) RequestToJoinProject(ctx context.Context, userID, projectID, message string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.RequestToJoinProject")()

	var project *model.Project
	err := d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if project, err = d.projects.FindByID(ctx, tx, projectID); err != nil {
			return err
		}
		if project.OwnerID == userID {
			return errOwnProject
		}
		m, err := d.projects.FindMember(ctx, tx, projectID, userID)
		switch {
		case err == nil && m.Status != model.MembershipRejected:
			return domain.ErrAlreadyExists
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return d.projects.UpsertMember(ctx, tx, &model.ProjectMember{
			ProjectID: projectID,
			UserID:    userID,
			Role:      "contributor",
			Status:    model.MembershipPending,
			Message:   strings.TrimSpace(message),
			CreatedAt: time.Now().UTC(),
		})
	})
	switch {
	case err == nil:
		return model.Succeeded(fmt.Sprintf("Join request sent for %s!", project.Name), map[string]any{"project": project.Summary()})
	case errors.Is(err, errOwnProject):
		return model.Failed(domain.KindConflict, "You own this project", "owner").With("already_member", true)
	case errors.Is(err, domain.ErrAlreadyExists):
		return model.Failed(domain.KindConflict, "You are already a member of this project", "already member").
			With("already_member", true)
	case errors.Is(err, domain.ErrNotFound):
		return model.Failed(domain.KindNotFound, "Project not found", err.Error())
	default:
		return d.unexpected(ctx, "join_project", "Error sending request", err)
	}
}

var errOwnProject = errors.New("user owns the project")

// FollowUser creates a pending follow. A previously rejected follow is
// re-opened as pending; pending or accepted ones are conflicts.
func (d *ActionDispatcher) FollowUser(ctx context.Context, userID, username string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.FollowUser")()

	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	target, err := d.users.FindByUsername(ctx, repository.NoTX, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.Failed(domain.KindNotFound, fmt.Sprintf("User @%s not found", username), err.Error())
		}
		return d.unexpected(ctx, "follow", "Error following user", err)
	}
	if target.ID == userID {
		return model.Failed(domain.KindValidation, "You can't follow yourself", "self follow")
	}

	var existing *model.Follow
	err = d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		f, err := d.community.FindFollow(ctx, tx, userID, target.ID)
		switch {
		case err == nil && f.Status != model.FollowRejected:
			existing = f
			return domain.ErrAlreadyExists
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return d.community.UpsertFollow(ctx, tx, &model.Follow{
			FollowerID: userID, FollowingID: target.ID, Status: model.FollowPending, CreatedAt: time.Now().UTC(),
		})
	})
	switch {
	case err == nil:
		return model.Succeeded(fmt.Sprintf("Follow request sent to @%s!", target.Username), map[string]any{"user": target.Summary()})
	case errors.Is(err, domain.ErrAlreadyExists):
		status := string(model.FollowPending)
		if existing != nil {
			status = string(existing.Status)
		}
		return model.Failed(domain.KindConflict, fmt.Sprintf("You are already following @%s", target.Username), "already following").
			With("already_following", true).
			With("status", status)
	default:
		return d.unexpected(ctx, "follow", "Error following user", err)
	}
}

func (d *ActionDispatcher) UnfollowUser(ctx context.Context, userID, username string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.UnfollowUser")()

	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	target, err := d.users.FindByUsername(ctx, repository.NoTX, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.Failed(domain.KindNotFound, fmt.Sprintf("User @%s not found", username), err.Error())
		}
		return d.unexpected(ctx, "unfollow", "Error unfollowing user", err)
	}
	err = d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return d.community.DeleteFollow(ctx, tx, userID, target.ID)
	})
	switch {
	case err == nil:
		return model.Succeeded(fmt.Sprintf("Unfollowed @%s", target.Username), map[string]any{"username": target.Username})
	case errors.Is(err, domain.ErrNotFound):
		return model.Failed(domain.KindNotFound, fmt.Sprintf("You are not following @%s", target.Username), "not following")
	default:
		return d.unexpected(ctx, "unfollow", "Error unfollowing user", err)
	}
}

func (d *ActionDispatcher) LikePost(ctx context.Context, userID string, postID int64) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.LikePost")()

	var likes int
	err := d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := d.community.FindPost(ctx, tx, postID); err != nil {
			return err
		}
		var err error
		likes, err = d.community.AddLike(ctx, tx, postID, userID)
		return err
	})
	switch {
	case err == nil:
		return model.Succeeded("Post liked!", map[string]any{"post_id": postID, "likes_count": likes})
	case errors.Is(err, domain.ErrAlreadyExists):
		return model.Failed(domain.KindConflict, "You already liked this post", "already liked")
	case errors.Is(err, domain.ErrNotFound):
		return model.Failed(domain.KindNotFound, "Post not found", err.Error())
	default:
		return d.unexpected(ctx, "like_post", "Error liking post", err)
	}
}

func (d *ActionDispatcher) CommentOnPost(ctx context.Context, userID string, postID int64, content string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.CommentOnPost")()

	content = strings.TrimSpace(content)
	if content == "" {
		return model.Failed(domain.KindValidation, "Comment cannot be empty", "empty content")
	}
	c := &model.Comment{PostID: postID, AuthorID: userID, Content: content}
	err := d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := d.community.FindPost(ctx, tx, postID); err != nil {
			return err
		}
		return d.community.CreateComment(ctx, tx, c)
	})
	switch {
	case err == nil:
		return model.Succeeded("Comment added!", map[string]any{"comment": map[string]any{
			"id":         c.ID,
			"post_id":    c.PostID,
			"content":    c.Content,
			"created_at": c.CreatedAt,
		}})
	case errors.Is(err, domain.ErrNotFound):
		return model.Failed(domain.KindNotFound, "Post not found", err.Error())
	default:
		return d.unexpected(ctx, "comment", "Error commenting", err)
	}
}

// SearchUsers matches usernames and names, never returning the caller.
func (d *ActionDispatcher) SearchUsers(ctx context.Context, userID, query string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.SearchUsers")()

	query = strings.TrimPrefix(strings.TrimSpace(query), "@")
	if query == "" {
		return model.Failed(domain.KindValidation, "Tell me who to look for.", "empty query")
	}
	users, err := d.users.Search(ctx, repository.NoTX, query, userID, userSearchLimit)
	if err != nil {
		return d.unexpected(ctx, "search_users", "Error searching users", err)
	}
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return model.Succeeded(fmt.Sprintf("Found %d users", len(out)), map[string]any{"users": out, "total": len(out)})
}

func (d *ActionDispatcher) GetUserProgress(ctx context.Context, userID string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.GetUserProgress")()

	list, err := d.learning.ListEnrollments(ctx, repository.NoTX, userID)
	if err != nil {
		return d.unexpected(ctx, "progress", "Error loading progress", err)
	}
	courses := make([]map[string]any, 0, len(list))
	for _, e := range list {
		courses = append(courses, e.Summary())
	}
	return model.Succeeded(fmt.Sprintf("You are enrolled in %d courses", len(courses)), map[string]any{
		"enrolled_courses": courses,
		"total":            len(courses),
	})
}

func (d *ActionDispatcher) GetUserProjects(ctx context.Context, userID string) model.ActionResult {
	defer logging.TraceDuration(d.log, "ActionDispatcher.GetUserProjects")()

	owned, err := d.projects.ListOwned(ctx, repository.NoTX, userID)
	if err != nil {
		return d.unexpected(ctx, "projects", "Error loading projects", err)
	}
	member, err := d.projects.ListMemberOf(ctx, repository.NoTX, userID)
	if err != nil {
		return d.unexpected(ctx, "projects", "Error loading projects", err)
	}
	summarize := func(ps []*model.Project) []map[string]any {
		out := make([]map[string]any, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Summary())
		}
		return out
	}
	total := len(owned) + len(member)
	return model.Succeeded(fmt.Sprintf("You have %d projects", total), map[string]any{
		"owned_projects":  summarize(owned),
		"member_projects": summarize(member),
		"total":           total,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
