package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"codehub-mentor/internal/domain/model"
	"codehub-mentor/internal/domain/ports/adapter"
	"codehub-mentor/internal/infra/api"
	"codehub-mentor/internal/infra/logging"
	"codehub-mentor/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes         = 64 << 10
	defaultMessagesLimit = 50
	maxMessagesLimit     = 200
)

type Sessions interface {
	Create(ctx context.Context, userID string, typ model.SessionType) (*model.ChatSession, error)
	List(ctx context.Context, userID string) ([]*model.ChatSession, error)
	Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	End(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	Messages(ctx context.Context, userID, sessionID string, limit int) ([]model.ChatMessage, error)
}

type Chat interface {
	SendMessage(ctx context.Context, sessionID, userID, text string, execute bool) (*usecase.SendResult, error)
}

type Profiles interface {
	Get(ctx context.Context, userID string) (*usecase.ProfileView, error)
	SetPreferredModel(ctx context.Context, userID, key string) (*usecase.ProfileView, error)
	Models() []adapter.ModelOption
}

type Ratings interface {
	Rate(ctx context.Context, userID, sessionID, messageID string, in usecase.FeedbackInput) (*model.MessageFeedback, error)
	List(ctx context.Context, userID, sessionID string) ([]model.MessageFeedback, error)
}

type Server struct {
	sessions Sessions
	chat     Chat
	profiles Profiles
	feedback Ratings
	log      *zerolog.Logger
}

func NewServer(sessions Sessions, chat Chat, profiles Profiles, feedback Ratings, logger *zerolog.Logger) *Server {
	return &Server{sessions: sessions, chat: chat, profiles: profiles, feedback: feedback, log: logger}
}

type RouterOptions struct {
	Auth           *api.Authenticator
	RequestTimeout time.Duration
	Health         map[string]api.Pinger
}

// NewRouter mounts health, metrics and the authenticated /api/v1 tree.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(api.TraceID(), api.RequestLog(s.log), api.Recover(s.log))

	r.Get("/health", api.HealthHandler(opts.Health))
	r.Method(http.MethodGet, "/metrics", api.MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.Timeout(opts.RequestTimeout), opts.Auth.Middleware)
		RegisterAPIV1(r, s)
	})
	return r
}

// RegisterAPIV1 attaches the v1 handlers to r. Callers install auth.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/end", s.endSession)
			r.Get("/messages", s.listMessages)
			r.Post("/messages", s.sendMessage)
			r.Post("/messages/{messageID}/feedback", s.rateMessage)
			r.Get("/feedback", s.listFeedback)
		})
	})
	r.Get("/mentor/profile", s.getProfile)
	r.Put("/mentor/profile", s.updateProfile)
	r.Get("/models", s.listModels)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusOf(err)
	if status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, w http.ResponseWriter, v any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return io.EOF
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func caller(r *http.Request) string {
	uid, _ := api.UserID(r.Context())
	return uid
}

func sessionCtx(r *http.Request) (context.Context, string) {
	id := chi.URLParam(r, "id")
	return logging.WithSessID(r.Context(), id), id
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, w, &req, true); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	sess, err := s.sessions.Create(r.Context(), caller(r), model.SessionType(req.SessionType))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSession(sess))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context(), caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]Session, 0, len(list))
	for _, sess := range list {
		items = append(items, toSession(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionCtx(r)
	sess, err := s.sessions.Get(ctx, caller(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess))
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionCtx(r)
	sess, err := s.sessions.End(ctx, caller(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess))
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionCtx(r)
	limit := defaultMessagesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxMessagesLimit)
	}
	msgs, err := s.sessions.Messages(ctx, caller(r), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toMessages(msgs)})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionCtx(r)
	var req sendMessageRequest
	if err := decode(r, w, &req, false); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	res, err := s.chat.SendMessage(ctx, id, caller(r), req.Message, req.ExecuteAction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:      toMessage(*res.UserMessage),
		AssistantMessage: toMessage(*res.AssistantMessage),
		Action:           res.Action,
	})
}

func (s *Server) rateMessage(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionCtx(r)
	var req feedbackRequest
	if err := decode(r, w, &req, false); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	f, err := s.feedback.Rate(ctx, caller(r), id, chi.URLParam(r, "messageID"), usecase.FeedbackInput{
		Rating:  req.Rating,
		Comment: req.Feedback,
		Helpful: req.IsHelpful,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedback(*f))
}

func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, id := sessionCtx(r)
	list, err := s.feedback.List(ctx, caller(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]Feedback, 0, len(list))
	for _, f := range list {
		items = append(items, toFeedback(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	v, err := s.profiles.Get(r.Context(), caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decode(r, w, &req, false); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	v, err := s.profiles.SetPreferredModel(r.Context(), caller(r), req.PreferredModel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	opts := s.profiles.Models()
	items := make([]Model, 0, len(opts))
	for _, o := range opts {
		items = append(items, toModel(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
