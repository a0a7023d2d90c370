//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/sanitize"
	"codehub-mentor/internal/usecase"
)

type chatEnv struct {
	uc        *usecase.MentorChatUseCase
	sessions  *MockSessionRepo
	profiles  *MockProfileRepo
	learning  *MockLearningRepo
	projects  *MockProjectRepo
	community *MockCommunityRepo
	gen       *FakeGen
	locker    *MockLocker
	limiter   *MockLimiter
	session   *model.ChatSession
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()
	e := &chatEnv{
		sessions:  NewMockSessionRepo(),
		profiles:  NewMockProfileRepo(),
		learning:  NewMockLearningRepo(testPaths()...),
		projects:  NewMockProjectRepo(),
		community: NewMockCommunityRepo(),
		gen:       &FakeGen{Default: "default answer"},
		locker:    NewMockLocker(),
		limiter:   &MockLimiter{},
	}
	users := NewMockUserRepo(testUsers()...)
	tm := NewMockTxManager()
	log := newTestLogger()

	dispatcher := usecase.NewActionDispatcher(users, e.learning, e.projects, e.community, tm, log)
	content := usecase.NewContentGenerator(e.gen, users, e.learning, log)
	classifier := usecase.NewIntentClassifier(e.gen, log)
	e.uc = usecase.NewMentorChatUseCase(
		e.sessions, e.profiles, users, e.learning, e.projects,
		classifier, dispatcher, content, e.gen,
		e.locker, e.limiter, sanitize.NewStripper(), tm,
		usecase.ChatOptions{DefaultModel: "openrouter_gemini", HistoryMessages: 10, RateLimit: 20},
		log,
	)

	s, err := model.NewChatSession("u1", model.SessionGeneral)
	require.NoError(t, err)
	require.NoError(t, e.sessions.Save(context.Background(), repository.NoTX, s))
	e.session = s
	return e
}

func (e *chatEnv) send(t *testing.T, text string, execute bool) *usecase.SendResult {
	t.Helper()
	res, err := e.uc.SendMessage(context.Background(), e.session.ID, "u1", text, execute)
	require.NoError(t, err)
	require.NotNil(t, res.AssistantMessage)
	return res
}

func intentJSON(intent string, confidence float64, params string) string {
	if params == "" {
		params = "{}"
	}
	return fmt.Sprintf(`{"intent":%q,"confidence":%v,"parameters":%s}`, intent, confidence, params)
}

func TestSendMessage_SearchScenario(t *testing.T) {
	e := newChatEnv(t)
	e.gen.Classify("find react courses", intentJSON("search", 0.95, `{"search_query":"react"}`))

	res := e.send(t, "find react courses", false)
	require.NotNil(t, res.Action)
	assert.Equal(t, model.ActionSearchResults, res.Action.Type)
	assert.Equal(t, "/learning", res.Action.NavigateTo)
	assert.Equal(t, "react", res.Action.Extra["search_query"])
	assert.Contains(t, res.AssistantMessage.Body, "React Fundamentals")
	assert.Equal(t, "search", res.AssistantMessage.Metadata["intent"])

	msgs := e.sessions.Messages(e.session.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, model.SenderAssistant, msgs[1].Sender)

	s, err := e.sessions.FindByID(context.Background(), repository.NoTX, e.session.ID)
	require.NoError(t, err)
	assert.Equal(t, "find react courses", s.Title)
}

func TestSendMessage_EnrollConfirmationRoundTrip(t *testing.T) {
	e := newChatEnv(t)
	e.gen.
		Classify("find react courses", intentJSON("search", 0.95, `{"search_query":"react"}`)).
		Classify("enroll me", intentJSON("enroll", 0.95, ""))

	e.send(t, "find react courses", false)

	proposal := e.send(t, "enroll me", false)
	require.NotNil(t, proposal.Action)
	assert.Equal(t, model.ActionConfirmationRequired, proposal.Action.Type)
	assert.Equal(t, model.IntentEnroll, proposal.Action.ActionType)
	assert.Contains(t, proposal.AssistantMessage.Body, "React Fundamentals")
	assert.Equal(t, true, proposal.AssistantMessage.Metadata["awaiting_confirmation"])
	assert.True(t, e.sessions.State(e.session.ID).Awaiting())
	assert.Zero(t, e.learning.EnrollmentCount("u1"))

	calls := e.gen.CallCount()
	done := e.send(t, "yes please", false)
	require.NotNil(t, done.Action)
	assert.Equal(t, model.ActionEnrolled, done.Action.Type)
	assert.Equal(t, "/learning/1", done.Action.NavigateTo)
	assert.Equal(t, "Successfully enrolled in React Fundamentals!", done.AssistantMessage.Body)
	assert.Equal(t, calls, e.gen.CallCount(), "confirmation skips classification")
	assert.False(t, e.sessions.State(e.session.ID).Awaiting())
	assert.Equal(t, 1, e.learning.EnrollmentCount("u1"))
}

func TestSendMessage_DeclineCancelsWithoutDispatch(t *testing.T) {
	e := newChatEnv(t)
	e.gen.
		Classify("create a todo app", intentJSON("create_project", 0.95, `{"topic":"todo app"}`)).
		On("comprehensive project description", `{"title":"TaskFlow","description":"Tasks.","features":["Lists"],"tech_stack":"Go"}`)

	proposal := e.send(t, "create a todo app", false)
	assert.Equal(t, model.ActionConfirmationRequired, proposal.Action.Type)
	assert.Contains(t, proposal.AssistantMessage.Body, "TaskFlow")

	res := e.send(t, "no thanks", false)
	require.NotNil(t, res.Action)
	assert.Equal(t, model.ActionCancelled, res.Action.Type)
	assert.Equal(t, "No problem! Is there anything else I can help you with?", res.AssistantMessage.Body)
	assert.False(t, e.sessions.State(e.session.ID).Awaiting())
	assert.Zero(t, e.projects.Count())
}

func TestSendMessage_AmbiguousReplyReprompts(t *testing.T) {
	e := newChatEnv(t)
	e.gen.
		Classify("write a post about go", intentJSON("create_post", 0.9, `{"topic":"go"}`)).
		On("engaging community post", `{"content":"Loving Go!","hashtags":["#Go","golang"]}`)

	e.send(t, "write a post about go", false)
	pending := e.sessions.State(e.session.ID)
	require.True(t, pending.Awaiting())

	res := e.send(t, "hmm, maybe", false)
	assert.Equal(t, model.ActionConfirmationRequired, res.Action.Type)
	assert.Equal(t, model.IntentCreatePost, res.Action.ActionType)
	assert.Equal(t, pending, e.sessions.State(e.session.ID))
	assert.Zero(t, e.community.PostCount())

	typo := e.send(t, "yess", false)
	assert.Equal(t, model.ActionConfirmationRequired, typo.Action.Type)
	assert.Equal(t, "unclear", typo.AssistantMessage.Metadata["confirmation"])
	assert.Zero(t, e.community.PostCount())

	done := e.send(t, "ok", false)
	assert.Equal(t, model.ActionPostCreated, done.Action.Type)
	assert.Equal(t, "/community", done.Action.NavigateTo)
	assert.Equal(t, 1, e.community.PostCount())
	assert.Equal(t, 1, e.community.Hashtag("go").UsageCount)
}

func TestSendMessage_ConfirmationClaimedOnce(t *testing.T) {
	e := newChatEnv(t)
	e.gen.
		Classify("find react courses", intentJSON("search", 0.95, `{"search_query":"react"}`)).
		Classify("enroll me", intentJSON("enroll", 0.95, ""))
	e.send(t, "find react courses", false)
	e.send(t, "enroll me", false)

	// another turn claimed the pending action first
	_, err := e.sessions.ClaimPending(context.Background(), repository.NoTX, e.session.ID)
	require.NoError(t, err)

	res, err := e.uc.SendMessage(context.Background(), e.session.ID, "u1", "yes", false)
	require.NoError(t, err)
	assert.Equal(t, "keyword_fallback", res.AssistantMessage.Metadata["classification_source"])
	assert.Zero(t, e.learning.EnrollmentCount("u1"))
}

func TestSendMessage_EnrollWithoutContextProposesThenAsksWhichCourse(t *testing.T) {
	e := newChatEnv(t)
	e.gen.Classify("enroll me", intentJSON("enroll", 0.95, ""))

	proposal := e.send(t, "enroll me", false)
	require.NotNil(t, proposal.Action)
	assert.Equal(t, model.ActionConfirmationRequired, proposal.Action.Type)
	assert.Equal(t, model.IntentEnroll, proposal.Action.ActionType)
	assert.Equal(t, true, proposal.AssistantMessage.Metadata["awaiting_confirmation"])
	assert.True(t, e.sessions.State(e.session.ID).Awaiting())

	res := e.send(t, "yes", false)
	assert.Nil(t, res.Action)
	assert.Equal(t, "I couldn't determine which course to enroll you in. Try searching for a course first, then click Enroll.", res.AssistantMessage.Body)
	assert.False(t, e.sessions.State(e.session.ID).Awaiting())
	assert.Zero(t, e.learning.EnrollmentCount("u1"))
}

func TestSendMessage_EnrollWithoutContextExecuteAsksWhichCourse(t *testing.T) {
	e := newChatEnv(t)
	e.gen.Classify("enroll me", intentJSON("enroll", 0.95, ""))

	res := e.send(t, "enroll me", true)
	assert.Nil(t, res.Action)
	assert.Equal(t, "I couldn't determine which course to enroll you in. Try searching for a course first, then click Enroll.", res.AssistantMessage.Body)
	assert.False(t, e.sessions.State(e.session.ID).Awaiting())
}

func TestSendMessage_DraftFallbackStillProposes(t *testing.T) {
	upstream := errors.New("provider down")

	t.Run("project", func(t *testing.T) {
		e := newChatEnv(t)
		e.gen.
			Classify("create a todo app", intentJSON("create_project", 0.95, `{"topic":"todo app"}`)).
			Fail("comprehensive project description", upstream)

		res := e.send(t, "create a todo app", false)
		require.NotNil(t, res.Action)
		assert.Equal(t, model.ActionConfirmationRequired, res.Action.Type)
		assert.Contains(t, res.AssistantMessage.Body, "A project focused on todo app.")
		assert.True(t, e.sessions.State(e.session.ID).Awaiting())

		done := e.send(t, "yes", false)
		assert.Equal(t, model.ActionProjectCreated, done.Action.Type)
		assert.Equal(t, 1, e.projects.Count())
	})

	t.Run("post", func(t *testing.T) {
		e := newChatEnv(t)
		e.gen.
			Classify("write a post about go", intentJSON("create_post", 0.9, `{"topic":"go"}`)).
			Fail("engaging community post", upstream)

		res := e.send(t, "write a post about go", false)
		require.NotNil(t, res.Action)
		assert.Equal(t, model.ActionConfirmationRequired, res.Action.Type)
		assert.Contains(t, res.AssistantMessage.Body, "Excited to share my progress on go!")
		assert.True(t, e.sessions.State(e.session.ID).Awaiting())
		assert.Zero(t, e.community.PostCount())
	})

	t.Run("execute fails hard", func(t *testing.T) {
		e := newChatEnv(t)
		e.gen.
			Classify("create a todo app", intentJSON("create_project", 0.95, `{"topic":"todo app"}`)).
			Fail("comprehensive project description", upstream)

		res := e.send(t, "create a todo app", true)
		require.NotNil(t, res.Action)
		assert.Equal(t, model.ActionError, res.Action.Type)
		assert.False(t, e.sessions.State(e.session.ID).Awaiting())
		assert.Zero(t, e.projects.Count())
	})
}

func TestSendMessage_ExecuteRunsImmediately(t *testing.T) {
	e := newChatEnv(t)
	e.gen.Classify("enroll me in python", intentJSON("enroll", 0.95, `{"path_id":2}`))

	res := e.send(t, "enroll me in python", true)
	assert.Equal(t, model.ActionEnrolled, res.Action.Type)
	assert.Equal(t, 1, e.learning.EnrollmentCount("u1"))
	assert.False(t, e.sessions.State(e.session.ID).Awaiting())

	again := e.send(t, "enroll me in python", true)
	assert.Equal(t, model.ActionEnrolled, again.Action.Type)
	assert.Equal(t, true, again.Action.Result.Payload["already_enrolled"])
	assert.Equal(t, 1, e.learning.EnrollmentCount("u1"))
}

func TestSendMessage_LowConfidenceActionIsAnswered(t *testing.T) {
	e := newChatEnv(t)
	e.gen.Classify("maybe a todo app", intentJSON("create_project", 0.6, ""))

	res := e.send(t, "maybe a todo app", false)
	assert.Nil(t, res.Action)
	assert.Equal(t, "default answer", res.AssistantMessage.Body)
	assert.Zero(t, e.projects.Count())
}

func TestSendMessage_GeneralAnswer(t *testing.T) {
	e := newChatEnv(t)
	e.gen.Classify("what is a closure?", intentJSON("general_question", 0.9, ""))
	e.gen.Fallback = true

	res := e.send(t, "what is a closure?", false)
	assert.True(t, strings.HasPrefix(res.AssistantMessage.Body, "⚠️ *Preferred Model is currently rate limited. Responded using Test Model.*"))
	assert.True(t, strings.HasSuffix(res.AssistantMessage.Body, "default answer"))
	assert.Equal(t, 12, res.AssistantMessage.Tokens)

	last := e.gen.Calls[len(e.gen.Calls)-1]
	assert.Equal(t, "system", last[0].Role)
	assert.Contains(t, last[0].Content, "CCIS-CodeHub")
	assert.Equal(t, "what is a closure?", last[len(last)-1].Content)

	p, err := e.profiles.GetOrCreate(context.Background(), repository.NoTX, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalInteractions)
	assert.Equal(t, 12, p.TotalTokensUsed)
}

func TestSendMessage_UpstreamUnavailableStillReplies(t *testing.T) {
	e := newChatEnv(t)
	e.gen.Err = fmt.Errorf("all models failed: %w", domain.ErrUpstreamUnavailable)

	res := e.send(t, "tell me a joke", false)
	assert.Equal(t, "AI service is currently unavailable. Please try again in a moment.", res.AssistantMessage.Body)
	assert.Len(t, e.sessions.Messages(e.session.ID), 2)
}

func TestSendMessage_ProfileErrorStillReplies(t *testing.T) {
	e := newChatEnv(t)
	e.profiles.GetErr = errors.New("profiles table locked")
	e.gen.Classify("what is a closure?", intentJSON("general_question", 0.9, ""))

	res := e.send(t, "what is a closure?", false)
	assert.Equal(t, model.SenderAssistant, res.AssistantMessage.Sender)
	assert.NotEmpty(t, res.AssistantMessage.Body)
	assert.Len(t, e.sessions.Messages(e.session.ID), 2)
	for _, k := range e.gen.Keys {
		assert.Equal(t, "openrouter_gemini", k)
	}
}

func TestSendMessage_NavigateAndProfiles(t *testing.T) {
	e := newChatEnv(t)
	e.gen.
		Classify("take me to the leaderboard", intentJSON("navigate", 0.9, "")).
		Classify("go somewhere", intentJSON("navigate", 0.9, "")).
		Classify("show @bob profile", intentJSON("view_user_profile", 0.9, `{"username":"bob"}`)).
		Classify("message @zed", intentJSON("send_message", 0.9, `{"username":"zed"}`)).
		Classify("follow @bob", intentJSON("follow_user", 0.9, `{"username":"bob"}`))

	res := e.send(t, "take me to the leaderboard", false)
	assert.Equal(t, model.ActionNavigate, res.Action.Type)
	assert.Equal(t, "/leaderboard", res.Action.NavigateTo)
	assert.Equal(t, "Taking you to Leaderboard...", res.AssistantMessage.Body)

	res = e.send(t, "go somewhere", false)
	assert.Nil(t, res.Action)

	res = e.send(t, "show @bob profile", false)
	assert.Equal(t, "/user/u2", res.Action.NavigateTo)
	assert.Equal(t, "Found Bob Cruz (@bob). Opening their profile...", res.AssistantMessage.Body)

	res = e.send(t, "message @zed", false)
	assert.Equal(t, "I couldn't find a user with username 'zed'.", res.AssistantMessage.Body)

	res = e.send(t, "follow @bob", false)
	assert.Equal(t, model.ActionUserFollowed, res.Action.Type)
	assert.Equal(t, "/user/u2", res.Action.NavigateTo)
}

func TestSendMessage_ReadOnlyViews(t *testing.T) {
	e := newChatEnv(t)
	e.gen.
		Classify("what courses am i taking", intentJSON("view_progress", 0.9, "")).
		Classify("unenroll me", intentJSON("unenroll", 0.9, ""))

	res := e.send(t, "what courses am i taking", false)
	assert.Equal(t, model.ActionProgressResults, res.Action.Type)
	assert.Contains(t, res.AssistantMessage.Body, "not enrolled")

	res = e.send(t, "unenroll me", false)
	assert.Equal(t, "You're not enrolled in any courses yet!", res.AssistantMessage.Body)
}

func TestSendMessage_Validation(t *testing.T) {
	e := newChatEnv(t)
	ctx := context.Background()

	_, err := e.uc.SendMessage(ctx, e.session.ID, "u1", strings.Repeat("a", usecase.MaxMessageChars+1), false)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Message is too long. Please keep it under 5000 characters.", verr.Message)

	_, err = e.uc.SendMessage(ctx, e.session.ID, "u1", "<b></b>  ", false)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Empty(t, e.sessions.Messages(e.session.ID))
	assert.Zero(t, e.limiter.Calls)
}

func TestSendMessage_Guards(t *testing.T) {
	e := newChatEnv(t)
	ctx := context.Background()

	_, err := e.uc.SendMessage(ctx, e.session.ID, "u2", "hi", false)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = e.uc.SendMessage(ctx, "missing", "u1", "hi", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	e.locker.Hold("mentor:session_lock:" + e.session.ID)
	_, err = e.uc.SendMessage(ctx, e.session.ID, "u1", "hi", false)
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	e.limiter.Deny = true
	_, err = e.uc.SendMessage(ctx, e.session.ID, "u1", "hi", false)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	assert.Empty(t, e.sessions.Messages(e.session.ID))
}

func TestSendMessage_EndedSession(t *testing.T) {
	e := newChatEnv(t)
	require.NoError(t, e.sessions.UpdateStatus(context.Background(), repository.NoTX, e.session.ID, model.ChatSessionEnded))

	_, err := e.uc.SendMessage(context.Background(), e.session.ID, "u1", "hi", false)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSendMessage_LimiterErrorFailsOpen(t *testing.T) {
	e := newChatEnv(t)
	e.limiter.Err = errors.New("redis down")

	res := e.send(t, "hello", false)
	assert.NotEmpty(t, res.AssistantMessage.Body)
}

func TestSendMessage_PendingDataSurvivesJSON(t *testing.T) {
	e := newChatEnv(t)
	e.gen.
		Classify("create a chat app", intentJSON("create_project", 0.95, `{"topic":"chat app"}`)).
		On("comprehensive project description", `{"title":"Chatter","description":"Realtime chat.","features":["Rooms"],"tech_stack":"Go, Redis"}`)

	e.send(t, "create a chat app", false)
	state := e.sessions.State(e.session.ID)
	var data map[string]any
	require.NoError(t, json.Unmarshal(state.Data, &data))
	assert.Equal(t, "Chatter", data["project"].(map[string]any)["title"])

	res := e.send(t, "yes", false)
	assert.Equal(t, model.ActionProjectCreated, res.Action.Type)
	assert.True(t, strings.HasPrefix(res.Action.NavigateTo, "/projects/"))
	assert.Equal(t, 1, e.projects.Count())
}
