package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"codehub-mentor/internal/domain"
	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/domain/ports/repository"
	"codehub-mentor/internal/infra/logging"
	"codehub-mentor/internal/infra/metrics"
)

const (
	MaxMessageChars = 5000

	unavailableReply = "AI service is currently unavailable. Please try again in a moment."
	declinedReply    = "No problem! Is there anything else I can help you with?"
)

// Locker serializes turns on one session.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Sanitizer turns inbound markup into plain text.
type Sanitizer interface {
	Strip(s string) string
}

type ChatOptions struct {
	DefaultModel    string
	HistoryMessages int
	RateLimit       int
	RateWindow      time.Duration
	LockTTL         time.Duration
}

// SendResult is the outcome of one accepted chat turn.
type SendResult struct {
	UserMessage      *model.ChatMessage `json:"user_message"`
	AssistantMessage *model.ChatMessage `json:"assistant_message"`
	Action           *model.Action      `json:"action,omitempty"`
}

type MentorChatUseCase struct {
	sessions   repository.ChatSessionRepository
	profiles   repository.MentorProfileRepository
	users      repository.UserRepository
	learning   repository.LearningRepository
	projects   repository.ProjectRepository
	classifier *IntentClassifier
	dispatcher *ActionDispatcher
	content    *ContentGenerator
	gen        adapter.TextGenerator
	locker     Locker
	limiter    RateLimiter
	sanitizer  Sanitizer
	tm         repository.TransactionManager
	opts       ChatOptions
	log        *zerolog.Logger

	handlers map[model.Intent]intentHandler
}

func NewMentorChatUseCase(
	sessions repository.ChatSessionRepository,
	profiles repository.MentorProfileRepository,
	users repository.UserRepository,
	learning repository.LearningRepository,
	projects repository.ProjectRepository,
	classifier *IntentClassifier,
	dispatcher *ActionDispatcher,
	content *ContentGenerator,
	gen adapter.TextGenerator,
	locker Locker,
	limiter RateLimiter,
	sanitizer Sanitizer,
	tm repository.TransactionManager,
	opts ChatOptions,
	log *zerolog.Logger,
) *MentorChatUseCase {
	if opts.HistoryMessages <= 0 {
		opts.HistoryMessages = 10
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	uc := &MentorChatUseCase{
		sessions:   sessions,
		profiles:   profiles,
		users:      users,
		learning:   learning,
		projects:   projects,
		classifier: classifier,
		dispatcher: dispatcher,
		content:    content,
		gen:        gen,
		locker:     locker,
		limiter:    limiter,
		sanitizer:  sanitizer,
		tm:         tm,
		opts:       opts,
		log:        log,
	}
	uc.handlers = map[model.Intent]intentHandler{
		model.IntentSearch:          uc.handleSearch,
		model.IntentEnroll:          uc.handleEnroll,
		model.IntentUnenroll:        uc.handleUnenroll,
		model.IntentCreateProject:   uc.handleCreateProject,
		model.IntentCreatePost:      uc.handleCreatePost,
		model.IntentJoinProject:     uc.handleJoinProject,
		model.IntentNavigate:        uc.handleNavigate,
		model.IntentViewProgress:    uc.handleViewProgress,
		model.IntentViewMyProjects:  uc.handleViewProjects,
		model.IntentFollowUser:      uc.handleFollow,
		model.IntentUnfollowUser:    uc.handleUnfollow,
		model.IntentSendMessage:     uc.handleSendMessage,
		model.IntentViewUserProfile: uc.handleViewProfile,
		model.IntentCommentOnPost:   uc.handleComment,
		model.IntentLikePost:        uc.handleLike,
		model.IntentGeneralQuestion: uc.handleGeneral,
	}
	return uc
}

func sessionLockKey(sessionID string) string { return "mentor:session_lock:" + sessionID }

func sendRateKey(userID string) string { return "rate_limit:" + userID + ":send_message" }

// turn carries everything a handler needs about the current message.
type turn struct {
	session  *model.ChatSession
	userID   string
	text     string
	execute  bool
	modelKey string
	class    model.Classification
	source   string
	history  []model.ChatMessage // excludes the current message
}

// reply is what a handler produced. A non-nil state is persisted with the
// assistant message.
type reply struct {
	text       string
	action     *model.Action
	meta       map[string]any
	state      *model.ConversationState
	completion *adapter.Completion
}

type intentHandler func(ctx context.Context, t *turn) reply

// SendMessage runs one chat turn: it stores the user message, resolves a
// pending confirmation or classifies the message, performs the resulting
// action and stores the assistant reply. Once the user message is stored an
// assistant message is always produced, even when generation fails.
func (uc *MentorChatUseCase) SendMessage(ctx context.Context, sessionID, userID, text string, execute bool) (*SendResult, error) {
	ctx = logging.WithSessID(logging.WithUserID(ctx, userID), sessionID)
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "MentorChatUC.SendMessage")()

	if utf8.RuneCountInString(text) > MaxMessageChars {
		return nil, domain.NewValidationError("message", "Message is too long. Please keep it under 5000 characters.")
	}
	clean := uc.sanitizer.Strip(text)
	if clean == "" {
		return nil, domain.NewValidationError("message", "Message cannot be empty after sanitization")
	}

	allowed, err := uc.limiter.Allow(ctx, sendRateKey(userID), uc.opts.RateLimit, uc.opts.RateWindow)
	if err != nil {
		log.Warn().Err(err).Msg("rate limiter unavailable, allowing message")
	} else if !allowed {
		return nil, domain.ErrRateLimited
	}

	key := sessionLockKey(sessionID)
	token, err := uc.locker.TryLock(ctx, key, uc.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := uc.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn().Err(err).Msg("release session lock")
		}
	}()

	session, err := uc.sessions.FindByID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(userID) {
		return nil, domain.ErrUnauthorized
	}
	if !session.Active() {
		return nil, domain.ErrSessionClosed
	}

	history, err := uc.sessions.ListMessages(ctx, repository.NoTX, sessionID, uc.opts.HistoryMessages)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userMsg := model.NewChatMessage(sessionID, model.SenderUser, clean, 0, nil)
	if err := uc.sessions.SaveMessage(ctx, repository.NoTX, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	if session.Title == "" {
		session.Title = model.TitleFrom(clean)
		session.UpdatedAt = time.Now().UTC()
		if err := uc.sessions.Save(ctx, repository.NoTX, session); err != nil {
			log.Warn().Err(err).Msg("set session title")
		}
	}

	modelKey := uc.opts.DefaultModel
	profile, err := uc.profiles.GetOrCreate(ctx, repository.NoTX, userID)
	if err != nil {
		log.Warn().Err(err).Msg("load mentor profile, using default model")
		profile = nil
	} else {
		modelKey = firstNonEmpty(profile.PreferredModel, modelKey)
	}

	t := &turn{
		session:  session,
		userID:   userID,
		text:     clean,
		execute:  execute,
		modelKey: modelKey,
		history:  history,
	}
	r := uc.respond(ctx, t)

	meta := map[string]any{
		"intent":                string(t.class.Intent),
		"confidence":            t.class.Confidence,
		"classification_source": t.source,
	}
	for k, v := range r.meta {
		meta[k] = v
	}
	tokens := 0
	if r.completion != nil {
		tokens = r.completion.Usage.TotalTokens
		meta["model_used"] = r.completion.ModelName
		meta["model"] = r.completion.Model
		meta["fallback_used"] = r.completion.Fallback
	}
	if r.action != nil {
		meta["action"] = r.action
	}
	if r.state != nil && r.state.Awaiting() {
		meta["awaiting_confirmation"] = true
		meta["action_data"] = r.state.Data
	}
	assistant := model.NewChatMessage(sessionID, model.SenderAssistant, r.text, tokens, meta)

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.sessions.SaveMessage(ctx, tx, assistant); err != nil {
			return err
		}
		if r.state != nil {
			if err := uc.sessions.SetState(ctx, tx, sessionID, *r.state); err != nil {
				return err
			}
		}
		if profile == nil {
			return nil
		}
		profile.RecordExchange(tokens)
		return uc.profiles.Save(ctx, tx, profile)
	})
	if err != nil {
		return nil, fmt.Errorf("save assistant reply: %w", err)
	}

	return &SendResult{UserMessage: userMsg, AssistantMessage: assistant, Action: r.action}, nil
}

// respond resolves a pending confirmation first; everything else is
// classified and dispatched.
func (uc *MentorChatUseCase) respond(ctx context.Context, t *turn) reply {
	log := logging.With(ctx, uc.log)

	if t.session.State.Awaiting() {
		conf := ExtractConfirmation(t.text)
		if t.execute && conf == ConfirmUnclear {
			conf = ConfirmYes
		}
		pending := t.session.State
		t.class = model.Classification{Intent: pending.Intent, Confidence: 1}
		t.source = sourcePending

		switch conf {
		case ConfirmYes:
			state, err := uc.sessions.ClaimPending(ctx, repository.NoTX, t.session.ID)
			if err == nil {
				metrics.IncConfirmation("confirmed")
				return uc.executePending(ctx, t, state)
			}
			if !errors.Is(err, domain.ErrNotFound) {
				log.Error().Err(err).Msg("claim pending action")
				return errorReply("Something went wrong while confirming. Please try again.", pending.Intent)
			}
			// Another turn already executed it; treat this message as new.
			metrics.IncConfirmation("lost_race")
			t.session.State = model.IdleState()
		case ConfirmNo:
			if _, err := uc.sessions.ClaimPending(ctx, repository.NoTX, t.session.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				log.Error().Err(err).Msg("clear pending action")
			}
			metrics.IncConfirmation("cancelled")
			return reply{
				text:   declinedReply,
				action: &model.Action{Type: model.ActionCancelled, ActionType: pending.Intent, Message: declinedReply},
				meta:   map[string]any{"confirmation": ConfirmNo.String()},
			}
		default:
			metrics.IncConfirmation("ambiguous")
			msg := "Just to be sure: should I go ahead? Please reply **yes** to confirm or **no** to cancel."
			return reply{
				text: msg,
				action: &model.Action{
					Type:       model.ActionConfirmationRequired,
					ActionType: pending.Intent,
					Message:    msg,
					Data:       pending.Data,
				},
				meta: map[string]any{"confirmation": ConfirmUnclear.String()},
			}
		}
	}

	c, source, err := uc.classifier.Classify(ctx, t.text, t.history, t.modelKey)
	if err != nil {
		log.Warn().Err(err).Msg("classifier failed, using keywords")
		c = keywordFallback(t.text)
	}
	if rescued, ok := RescueByKeywords(t.text, c); ok {
		c, source = rescued, sourceRescue
	}
	t.class, t.source = c, source
	metrics.IncIntent(string(c.Intent), source)

	h, ok := uc.handlers[c.Intent]
	if !ok {
		h = uc.handleGeneral
	}
	return h(ctx, t)
}

// pendingAction is the data stored while awaiting confirmation.
type pendingAction struct {
	PathID      int64            `json:"path_id,omitempty"`
	PathName    string           `json:"path_name,omitempty"`
	Project     *ProjectProposal `json:"project,omitempty"`
	Post        *PostDraft       `json:"post,omitempty"`
	ProjectID   string           `json:"project_id,omitempty"`
	ProjectName string           `json:"project_name,omitempty"`
	Message     string           `json:"message,omitempty"`
}

func (uc *MentorChatUseCase) propose(intent model.Intent, text string, p pendingAction) reply {
	data, err := json.Marshal(p)
	if err != nil {
		return errorReply("I couldn't prepare that action. Please try again.", intent)
	}
	state := model.AwaitingState(intent, data, time.Now().UTC())
	return reply{
		text: text,
		action: &model.Action{
			Type:       model.ActionConfirmationRequired,
			ActionType: intent,
			Message:    text,
			Data:       p,
		},
		state: &state,
	}
}

func (uc *MentorChatUseCase) executePending(ctx context.Context, t *turn, state model.ConversationState) reply {
	var p pendingAction
	if err := json.Unmarshal(state.Data, &p); err != nil {
		logging.With(ctx, uc.log).Error().Err(err).Msg("decode pending action")
		return errorReply("I lost track of what we were confirming. Could you ask again?", state.Intent)
	}
	switch state.Intent {
	case model.IntentEnroll:
		return uc.runEnroll(ctx, t, p.PathID)
	case model.IntentCreateProject:
		if p.Project != nil {
			return uc.runCreateProject(ctx, t, *p.Project)
		}
	case model.IntentCreatePost:
		if p.Post != nil {
			return uc.runCreatePost(ctx, t, *p.Post)
		}
	case model.IntentJoinProject:
		return uc.runJoinProject(ctx, t, p.ProjectID, p.Message)
	}
	return errorReply("I lost track of what we were confirming. Could you ask again?", state.Intent)
}

func errorReply(msg string, intent model.Intent) reply {
	return reply{
		text:   msg,
		action: &model.Action{Type: model.ActionError, ActionType: intent, Message: msg},
	}
}

// resultAction wraps a dispatcher result; failures become error actions.
func resultAction(intent model.Intent, res model.ActionResult, okType model.ActionType, navigate string) *model.Action {
	metrics.IncAction(string(intent), outcomeOf(res))
	if !res.Success {
		return &model.Action{Type: model.ActionError, ActionType: intent, Message: res.Message, Result: &res}
	}
	return &model.Action{Type: okType, ActionType: intent, NavigateTo: navigate, Message: res.Message, Result: &res}
}

func outcomeOf(res model.ActionResult) string {
	if res.Success {
		return "success"
	}
	return string(res.Kind())
}

// systemPrompt is sent with general questions.
const systemPrompt = `You are an AI assistant for CCIS-CodeHub, an educational platform for computer science students.

You are a friendly AI mentor for students. Your role is to:
- Answer questions concisely and accurately
- Help with coding problems when asked
- Suggest resources only when relevant
- Be encouraging but not overly verbose

CRITICAL RESPONSE RULES:
1. For greetings like "hi", "hello", "hey" - respond briefly and warmly. Do NOT list courses/projects/stats.
2. ONLY provide user data (courses, projects, progress) when EXPLICITLY asked about it.
3. Keep responses concise and actionable. Avoid walls of text.
4. If unsure what the user wants, ask a clarifying question instead of dumping information.
5. Never start responses with the user's full name or profile details unless asked.
6. Respond directly to what was asked - no unsolicited advice or information.

Tone: Friendly, concise, helpful. Occasional emoji is fine 😊
Format: Short paragraphs. Bullet points for lists. Code blocks for code.`

func (uc *MentorChatUseCase) handleGeneral(ctx context.Context, t *turn) reply {
	msgs := make([]adapter.Message, 0, len(t.history)+2)
	msgs = append(msgs, adapter.Message{Role: "system", Content: systemPrompt})
	for _, m := range t.history {
		switch m.Sender {
		case model.SenderUser:
			msgs = append(msgs, adapter.Message{Role: "user", Content: m.Body})
		case model.SenderAssistant:
			msgs = append(msgs, adapter.Message{Role: "assistant", Content: m.Body})
		}
	}
	msgs = append(msgs, adapter.Message{Role: "user", Content: t.text})

	out, err := uc.gen.Generate(ctx, t.modelKey, msgs)
	if err != nil {
		logging.With(ctx, uc.log).Error().Err(err).Msg("general answer failed")
		return reply{text: unavailableReply, meta: map[string]any{"error": err.Error(), "upstream_unavailable": true}}
	}
	text := strings.TrimSpace(out.Text)
	if out.Fallback {
		text = fmt.Sprintf("⚠️ *%s is currently rate limited. Responded using %s.*\n\n---\n\n", out.PreferredName, out.ModelName) + text
	}
	return reply{text: text, completion: &out}
}
