package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/logging"
)

const confirmHint = "\n\nReply **yes** to confirm or **no** to cancel."

const enrollWhichCourse = "I couldn't determine which course to enroll you in. Try searching for a course first, then click Enroll."

func (uc *MentorChatUseCase) handleSearch(ctx context.Context, t *turn) reply {
	query := firstNonEmpty(t.class.Parameters.SearchQuery, t.class.Parameters.ActionTarget, t.text)
	res := uc.dispatcher.SearchCourses(ctx, query)
	if !res.Success {
		return reply{text: res.Message, action: resultAction(model.IntentSearch, res, model.ActionSearchResults, "")}
	}

	var b strings.Builder
	paths, _ := res.Payload["paths"].([]map[string]any)
	modules, _ := res.Payload["modules"].([]map[string]any)
	if len(paths)+len(modules) == 0 {
		fmt.Fprintf(&b, "I couldn't find any courses matching %q.", query)
		if names, _ := res.Payload["suggestions"].([]string); len(names) > 0 {
			b.WriteString("\n\nHere are some available courses:\n")
			for _, n := range names {
				fmt.Fprintf(&b, "- %s\n", n)
			}
		}
	} else {
		fmt.Fprintf(&b, "Here's what I found for %q:\n", query)
		if len(paths) > 0 {
			b.WriteString("\n**Courses:**\n")
			for _, p := range paths {
				fmt.Fprintf(&b, "- %v: %v\n", p["name"], p["description"])
			}
		}
		if len(modules) > 0 {
			b.WriteString("\n**Modules:**\n")
			for _, m := range modules {
				fmt.Fprintf(&b, "- %v (%v)\n", m["title"], m["path_name"])
			}
		}
		if len(paths) > 0 {
			b.WriteString("\nWant me to enroll you? Just say \"enroll me\".")
		}
	}

	action := resultAction(model.IntentSearch, res, model.ActionSearchResults, "/learning")
	action.Extra = map[string]any{"search_query": query, "results": res.Payload}
	return reply{
		text:   strings.TrimSpace(b.String()),
		action: action,
		meta:   map[string]any{"search_results": res.Payload},
	}
}

func (uc *MentorChatUseCase) handleEnroll(ctx context.Context, t *turn) reply {
	pathID := t.class.Parameters.PathID
	if pathID == 0 {
		pathID = uc.pathFromLastSearch(ctx, t.session.ID)
	}
	if t.execute || !t.class.RequiresConfirmation {
		return uc.runEnroll(ctx, t, pathID)
	}
	if pathID == 0 {
		text := "Would you like me to enroll you in a course? Once you confirm I'll ask which one." + confirmHint
		return uc.propose(model.IntentEnroll, text, pendingAction{})
	}

	path, err := uc.learning.FindPath(ctx, repository.NoTX, pathID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorReply("Course not found", model.IntentEnroll)
		}
		logging.With(ctx, uc.log).Error().Err(err).Msg("load path for proposal")
		return errorReply("I couldn't load that course right now. Please try again.", model.IntentEnroll)
	}
	text := fmt.Sprintf("Would you like me to enroll you in **%s**?", path.Name) + confirmHint
	return uc.propose(model.IntentEnroll, text, pendingAction{PathID: path.ID, PathName: path.Name})
}

func (uc *MentorChatUseCase) runEnroll(ctx context.Context, t *turn, pathID int64) reply {
	if pathID == 0 {
		pathID = uc.pathFromLastSearch(ctx, t.session.ID)
	}
	if pathID == 0 {
		return reply{text: enrollWhichCourse}
	}
	res := uc.dispatcher.EnrollInPath(ctx, t.userID, pathID)
	return reply{
		text:   res.Message,
		action: resultAction(model.IntentEnroll, res, model.ActionEnrolled, fmt.Sprintf("/learning/%d", pathID)),
	}
}

// pathFromLastSearch reads the first course of the last search shown in
// this session.
func (uc *MentorChatUseCase) pathFromLastSearch(ctx context.Context, sessionID string) int64 {
	last, err := uc.sessions.LastAssistantMessage(ctx, repository.NoTX, sessionID)
	if err != nil || last == nil {
		return 0
	}
	results, _ := last.Metadata["search_results"].(map[string]any)
	if results == nil {
		return 0
	}
	switch paths := results["paths"].(type) {
	case []map[string]any:
		if len(paths) > 0 {
			return anyInt(paths[0]["id"])
		}
	case []any:
		if len(paths) > 0 {
			if p, ok := paths[0].(map[string]any); ok {
				return anyInt(p["id"])
			}
		}
	}
	return 0
}

func anyInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

func (uc *MentorChatUseCase) handleUnenroll(ctx context.Context, t *turn) reply {
	pathID := t.class.Parameters.PathID
	if pathID == 0 {
		list, err := uc.learning.ListEnrollments(ctx, repository.NoTX, t.userID)
		if err != nil {
			logging.With(ctx, uc.log).Error().Err(err).Msg("list enrollments")
			return errorReply("I couldn't load your courses right now. Please try again.", model.IntentUnenroll)
		}
		if len(list) == 0 {
			return reply{text: "You're not enrolled in any courses yet!"}
		}
		target := strings.ToLower(firstNonEmpty(t.class.Parameters.ActionTarget, t.class.Parameters.SearchQuery))
		if target != "" {
			for _, e := range list {
				if strings.Contains(strings.ToLower(e.PathName), target) {
					pathID = e.PathID
					break
				}
			}
		}
		if pathID == 0 {
			var b strings.Builder
			b.WriteString("Which course would you like to unenroll from?\n\n")
			for _, e := range list {
				fmt.Fprintf(&b, "- %s\n", e.PathName)
			}
			b.WriteString("\nJust tell me the course name.")
			return reply{text: b.String()}
		}
	}
	res := uc.dispatcher.UnenrollFromPath(ctx, t.userID, pathID)
	return reply{text: res.Message, action: resultAction(model.IntentUnenroll, res, model.ActionUnenrolled, "/learning")}
}

func (uc *MentorChatUseCase) handleCreateProject(ctx context.Context, t *turn) reply {
	idea := firstNonEmpty(t.class.Parameters.Topic, t.class.Parameters.ActionTarget, t.text)
	proposal := uc.content.GenerateProjectDescription(ctx, t.modelKey, idea, nil)
	if t.execute || !t.class.RequiresConfirmation {
		if !proposal.Success {
			return errorReply("I couldn't generate the project details. Please try again or provide a title and brief description.", model.IntentCreateProject)
		}
		return uc.runCreateProject(ctx, t, proposal)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's a project based on your idea:\n\n**%s**\n\n%s\n", proposal.Title, proposal.Description)
	if len(proposal.Features) > 0 {
		b.WriteString("\n**Key features:**\n")
		for _, f := range proposal.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	fmt.Fprintf(&b, "\n**Tech stack:** %s\n\nShould I create this project for you?", proposal.TechStack)
	b.WriteString(confirmHint)
	return uc.propose(model.IntentCreateProject, b.String(), pendingAction{Project: &proposal})
}

func (uc *MentorChatUseCase) runCreateProject(ctx context.Context, t *turn, p ProjectProposal) reply {
	res := uc.dispatcher.CreateProject(ctx, t.userID, p.Draft())
	if !res.Success {
		msg := "Project creation failed: " + res.Message
		return reply{text: msg, action: resultAction(model.IntentCreateProject, res, model.ActionProjectCreated, "")}
	}
	nav := "/projects"
	if proj, ok := res.Payload["project"].(map[string]any); ok {
		nav = fmt.Sprintf("/projects/%v", proj["id"])
	}
	return reply{text: res.Message, action: resultAction(model.IntentCreateProject, res, model.ActionProjectCreated, nav)}
}

func (uc *MentorChatUseCase) handleCreatePost(ctx context.Context, t *turn) reply {
	topic := firstNonEmpty(t.class.Parameters.Topic, t.class.Parameters.ActionTarget, t.text)
	draft := uc.content.GeneratePostContent(ctx, t.userID, t.modelKey, topic, nil)
	if t.execute || !t.class.RequiresConfirmation {
		if !draft.Success {
			return errorReply("I couldn't generate the post content. Please try again with a clearer topic.", model.IntentCreatePost)
		}
		return uc.runCreatePost(ctx, t, draft)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's a draft post:\n\n%s\n", draft.Content)
	if tags := model.NormalizeHashtags(draft.Hashtags); len(tags) > 0 {
		b.WriteString("\n")
		for i, tag := range tags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + tag)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nShall I publish it?")
	b.WriteString(confirmHint)
	return uc.propose(model.IntentCreatePost, b.String(), pendingAction{Post: &draft})
}

func (uc *MentorChatUseCase) runCreatePost(ctx context.Context, t *turn, d PostDraft) reply {
	res := uc.dispatcher.CreateCommunityPost(ctx, t.userID, d.Content, d.Hashtags)
	if !res.Success {
		msg := "Post creation failed: " + res.Message
		return reply{text: msg, action: resultAction(model.IntentCreatePost, res, model.ActionPostCreated, "")}
	}
	return reply{text: res.Message, action: resultAction(model.IntentCreatePost, res, model.ActionPostCreated, "/community")}
}

func (uc *MentorChatUseCase) handleJoinProject(ctx context.Context, t *turn) reply {
	projectID := t.class.Parameters.ProjectID
	if projectID == "" {
		return reply{text: "Which project would you like to join? Open the project's page and ask me there, or tell me the project ID."}
	}
	project, err := uc.projects.FindByID(ctx, repository.NoTX, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorReply("Project not found", model.IntentJoinProject)
		}
		logging.With(ctx, uc.log).Error().Err(err).Msg("load project for join")
		return errorReply("I couldn't load that project right now. Please try again.", model.IntentJoinProject)
	}

	draft := uc.content.GenerateJoinRequestMessage(ctx, t.userID, t.modelKey, project.Name, project.Description)
	if t.execute || !t.class.RequiresConfirmation {
		return uc.runJoinProject(ctx, t, project.ID, draft.Text)
	}
	text := fmt.Sprintf("I'll send this request to join **%s**:\n\n> %s", project.Name, draft.Text) + confirmHint
	return uc.propose(model.IntentJoinProject, text, pendingAction{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Message:     draft.Text,
	})
}

func (uc *MentorChatUseCase) runJoinProject(ctx context.Context, t *turn, projectID, message string) reply {
	res := uc.dispatcher.RequestToJoinProject(ctx, t.userID, projectID, message)
	return reply{
		text:   res.Message,
		action: resultAction(model.IntentJoinProject, res, model.ActionInfo, "/projects/"+projectID),
	}
}

type destination struct {
	all  []string // every keyword must appear
	any  []string // at least one must appear
	path string
	name string
}

// destinations are checked in order; the first match wins.
var destinations = []destination{
	{any: []string{"learning", "course"}, path: "/learning", name: "Learning Center"},
	{any: []string{"project"}, path: "/projects", name: "Projects"},
	{any: []string{"community", "social", "feed"}, path: "/community", name: "Community"},
	{all: []string{"profile"}, any: []string{"my", "me"}, path: "/profile", name: "Your Profile"},
	{any: []string{"dashboard", "home"}, path: "/dashboard", name: "Dashboard"},
	{any: []string{"leaderboard", "ranking", "scores"}, path: "/leaderboard", name: "Leaderboard"},
	{any: []string{"chat", "message"}, path: "/community", name: "Community Chat"},
	{any: []string{"setting", "preference"}, path: "/settings", name: "Settings"},
	{any: []string{"notification", "alert"}, path: "/notifications", name: "Notifications"},
	{all: []string{"admin"}, any: []string{"panel", "dashboard"}, path: "/admin-dashboard", name: "Admin Dashboard"},
}

func (d destination) matches(lower string, words map[string]bool) bool {
	for _, k := range d.all {
		if !strings.Contains(lower, k) {
			return false
		}
	}
	for _, k := range d.any {
		// short pronouns must be whole words
		if len(k) <= 2 {
			if words[k] {
				return true
			}
			continue
		}
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (uc *MentorChatUseCase) handleNavigate(_ context.Context, t *turn) reply {
	lower := strings.ToLower(t.text)
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return !('a' <= r && r <= 'z') }) {
		words[w] = true
	}
	for _, d := range destinations {
		if d.matches(lower, words) {
			msg := fmt.Sprintf("Taking you to %s...", d.name)
			return reply{text: msg, action: &model.Action{
				Type:       model.ActionNavigate,
				ActionType: model.IntentNavigate,
				NavigateTo: d.path,
				Message:    msg,
				Extra:      map[string]any{"page_name": d.name},
			}}
		}
	}
	return reply{text: "Where would you like to go? I can take you to Learning, Projects, Community, Profile, Dashboard, or Leaderboard."}
}

func (uc *MentorChatUseCase) handleViewProgress(ctx context.Context, t *turn) reply {
	res := uc.dispatcher.GetUserProgress(ctx, t.userID)
	if !res.Success {
		return reply{text: res.Message, action: resultAction(model.IntentViewProgress, res, model.ActionProgressResults, "")}
	}
	courses, _ := res.Payload["enrolled_courses"].([]map[string]any)
	var b strings.Builder
	if len(courses) == 0 {
		b.WriteString("You're not enrolled in any courses yet. Want me to find one for you?")
	} else {
		fmt.Fprintf(&b, "You're enrolled in %d course(s):\n\n", len(courses))
		for _, c := range courses {
			fmt.Fprintf(&b, "- **%v** (%v modules completed, %v)\n", c["name"], c["completed_modules"], c["status"])
		}
	}
	action := resultAction(model.IntentViewProgress, res, model.ActionProgressResults, "/learning")
	action.Extra = map[string]any{"results": res.Payload}
	return reply{text: strings.TrimSpace(b.String()), action: action}
}

func (uc *MentorChatUseCase) handleViewProjects(ctx context.Context, t *turn) reply {
	res := uc.dispatcher.GetUserProjects(ctx, t.userID)
	if !res.Success {
		return reply{text: res.Message, action: resultAction(model.IntentViewMyProjects, res, model.ActionProjectsResults, "")}
	}
	owned, _ := res.Payload["owned_projects"].([]map[string]any)
	member, _ := res.Payload["member_projects"].([]map[string]any)
	var b strings.Builder
	if len(owned)+len(member) == 0 {
		b.WriteString("You don't have any projects yet. Tell me an idea and I can create one for you!")
	}
	if len(owned) > 0 {
		b.WriteString("**Your projects:**\n")
		for _, p := range owned {
			fmt.Fprintf(&b, "- %v (%v)\n", p["name"], p["status"])
		}
	}
	if len(member) > 0 {
		b.WriteString("\n**Projects you contribute to:**\n")
		for _, p := range member {
			fmt.Fprintf(&b, "- %v (%v)\n", p["name"], p["status"])
		}
	}
	action := resultAction(model.IntentViewMyProjects, res, model.ActionProjectsResults, "/projects")
	action.Extra = map[string]any{"results": res.Payload}
	return reply{text: strings.TrimSpace(b.String()), action: action}
}

func (t *turn) username() string {
	if u := strings.TrimPrefix(t.class.Parameters.Username, "@"); u != "" {
		return u
	}
	return mentionedUsername(t.text)
}

func (uc *MentorChatUseCase) handleFollow(ctx context.Context, t *turn) reply {
	username := t.username()
	if username == "" {
		return reply{text: "Who would you like to follow? Please mention their username with @, e.g., 'follow @john'"}
	}
	res := uc.dispatcher.FollowUser(ctx, t.userID, username)
	nav := ""
	if u, ok := res.Payload["user"].(map[string]any); ok {
		nav = fmt.Sprintf("/user/%v", u["id"])
	}
	return reply{text: res.Message, action: resultAction(model.IntentFollowUser, res, model.ActionUserFollowed, nav)}
}

func (uc *MentorChatUseCase) handleUnfollow(ctx context.Context, t *turn) reply {
	username := t.username()
	if username == "" {
		return reply{text: "Who would you like to unfollow? Please mention their username."}
	}
	res := uc.dispatcher.UnfollowUser(ctx, t.userID, username)
	return reply{text: res.Message, action: resultAction(model.IntentUnfollowUser, res, model.ActionUserUnfollowed, "")}
}

var profileStopwords = map[string]bool{
	"show": true, "view": true, "see": true, "open": true, "profile": true, "profiles": true,
	"user": true, "the": true, "of": true, "me": true, "who": true, "is": true, "s": true,
	"please": true, "can": true, "you": true, "i": true, "want": true, "to": true, "a": true,
}

// lookupName returns the mentioned or extracted username for a user lookup.
func (t *turn) lookupName() string {
	if u := t.username(); u != "" {
		return u
	}
	for _, w := range strings.FieldsFunc(strings.ToLower(t.text), func(r rune) bool {
		return r == ' ' || r == '\'' || r == '?' || r == '!' || r == ',' || r == '.'
	}) {
		if !profileStopwords[w] {
			return w
		}
	}
	return ""
}

// findUser returns the first search hit for name, or nil.
func (uc *MentorChatUseCase) findUser(ctx context.Context, t *turn, name string) (map[string]any, model.ActionResult) {
	res := uc.dispatcher.SearchUsers(ctx, t.userID, name)
	if !res.Success {
		return nil, res
	}
	users, _ := res.Payload["users"].([]map[string]any)
	if len(users) == 0 {
		return nil, res
	}
	return users[0], res
}

func (uc *MentorChatUseCase) handleViewProfile(ctx context.Context, t *turn) reply {
	name := t.lookupName()
	if name == "" {
		return reply{text: "Whose profile would you like to view? Just mention their @username."}
	}
	u, res := uc.findUser(ctx, t, name)
	if u == nil {
		if !res.Success {
			return reply{text: res.Message, action: resultAction(model.IntentViewUserProfile, res, model.ActionNavigate, "")}
		}
		return reply{text: fmt.Sprintf("I couldn't find a user with username '%s'. Please check the spelling.", name)}
	}
	msg := fmt.Sprintf("Found %v (@%v). Opening their profile...", u["full_name"], u["username"])
	return reply{text: msg, action: &model.Action{
		Type:       model.ActionNavigate,
		ActionType: model.IntentViewUserProfile,
		NavigateTo: fmt.Sprintf("/user/%v", u["id"]),
		Message:    msg,
		Extra:      map[string]any{"user": u},
	}}
}

func (uc *MentorChatUseCase) handleSendMessage(ctx context.Context, t *turn) reply {
	name := t.username()
	if name == "" {
		return reply{text: "Who would you like to message? Please mention their @username."}
	}
	u, res := uc.findUser(ctx, t, name)
	if u == nil {
		if !res.Success {
			return reply{text: res.Message, action: resultAction(model.IntentSendMessage, res, model.ActionNavigate, "")}
		}
		return reply{text: fmt.Sprintf("I couldn't find a user with username '%s'.", name)}
	}
	msg := fmt.Sprintf("Opening chat with %v (@%v)...", u["full_name"], u["username"])
	return reply{text: msg, action: &model.Action{
		Type:       model.ActionNavigate,
		ActionType: model.IntentSendMessage,
		NavigateTo: "/community",
		Message:    msg,
		Extra:      map[string]any{"chat_user_id": u["id"], "user": u},
	}}
}

func (uc *MentorChatUseCase) handleLike(ctx context.Context, t *turn) reply {
	postID := t.class.Parameters.PostID
	if postID == 0 {
		msg := "Which post would you like to like? Please specify the post ID or navigate to the Community page to like posts directly."
		return reply{text: msg, action: &model.Action{Type: model.ActionInfo, ActionType: model.IntentLikePost, Message: msg, NavigateTo: "/community"}}
	}
	res := uc.dispatcher.LikePost(ctx, t.userID, postID)
	return reply{text: res.Message, action: resultAction(model.IntentLikePost, res, model.ActionInfo, "")}
}

func (uc *MentorChatUseCase) handleComment(ctx context.Context, t *turn) reply {
	postID := t.class.Parameters.PostID
	if postID == 0 {
		msg := "Which post would you like to comment on? Please navigate to the Community page to comment on posts directly."
		return reply{text: msg, action: &model.Action{Type: model.ActionInfo, ActionType: model.IntentCommentOnPost, Message: msg, NavigateTo: "/community"}}
	}
	draft := uc.content.GenerateComment(ctx, t.modelKey, "", firstNonEmpty(t.class.Parameters.Topic, t.class.Parameters.ActionTarget))
	res := uc.dispatcher.CommentOnPost(ctx, t.userID, postID, draft.Content)
	return reply{text: res.Message, action: resultAction(model.IntentCommentOnPost, res, model.ActionInfo, "")}
}
