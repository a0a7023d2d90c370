// File: cmd/app/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/config"
	"codehub-mentor/internal/domain/ports/adapter"
	aiAdapters "codehub-mentor/internal/infra/adapters/ai"
	"codehub-mentor/internal/infra/api"
	apiv1 "codehub-mentor/internal/infra/api/apiv1"
	pg "codehub-mentor/internal/infra/db/postgres"
	"codehub-mentor/internal/infra/logging"
	"codehub-mentor/internal/infra/metrics"
	red "codehub-mentor/internal/infra/redis"
	"codehub-mentor/internal/infra/sanitize"
	"codehub-mentor/internal/infra/scheduler"
	"codehub-mentor/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Config & logging ----
	cfg, err := config.LoadConfig()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if cfg.Database.Migrate {
		if err := pg.Migrate(cfg.Database.URL); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
		logger.Info().Msg("migrations applied")
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepoCacheDecorator(pg.NewUserRepo(pool), redisClient, 0)
	learningRepo := pg.NewLearningRepo(pool)
	projectRepo := pg.NewProjectRepo(pool)
	communityRepo := pg.NewCommunityRepo(pool)
	sessionRepo := pg.NewChatSessionRepo(pool)
	profileRepo := pg.NewMentorProfileRepo(pool)
	feedbackRepo := pg.NewFeedbackRepo(pool)

	// ---- AI providers -> registry -> fallback chain ----
	gen, registry := buildAI(ctx, cfg, logger)

	// ---- Use cases ----
	classifier := usecase.NewIntentClassifier(gen, logger)
	dispatcher := usecase.NewActionDispatcher(userRepo, learningRepo, projectRepo, communityRepo, tm, logger)
	content := usecase.NewContentGenerator(gen, userRepo, learningRepo, logger)
	chatUC := usecase.NewMentorChatUseCase(
		sessionRepo, profileRepo, userRepo, learningRepo, projectRepo,
		classifier, dispatcher, content, gen,
		locker, rateLimiter, sanitize.NewStripper(), tm,
		usecase.ChatOptions{
			DefaultModel:    registry.Default().Key,
			HistoryMessages: cfg.Chat.HistoryMessages,
			RateLimit:       cfg.Chat.RateLimit,
			RateWindow:      cfg.Chat.RateWindow,
			LockTTL:         cfg.Redis.LockTTL,
		},
		logger,
	)
	sessionUC := usecase.NewSessionUseCase(sessionRepo, logger)
	profileUC := usecase.NewProfileUseCase(profileRepo, registry, registry.Default().Key, logger)
	feedbackUC := usecase.NewFeedbackUseCase(sessionRepo, feedbackRepo, logger)

	// ---- Background jobs ----
	ttl := cfg.Chat.ConfirmationTTL
	sweeper := scheduler.NewScheduler("expire_confirmations", cfg.Chat.SweepInterval, 0,
		func(ctx context.Context) (int64, error) { return sessionUC.ExpireConfirmations(ctx, ttl) },
		logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// ---- HTTP ----
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		logger.Warn().Msg("auth.jwt_secret not set; using an insecure dev secret")
		secret = "dev-insecure-jwt-secret"
	}
	router := apiv1.NewRouter(
		apiv1.NewServer(sessionUC, chatUC, profileUC, feedbackUC, logger),
		apiv1.RouterOptions{
			Auth:           api.NewAuthenticator(secret),
			RequestTimeout: cfg.Server.RequestTimeout,
			Health:         map[string]api.Pinger{"postgres": pool, "redis": redisClient},
		},
	)
	server := api.NewServer(cfg.Server.Port, router, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

// buildAI wires every configured provider behind one concurrency-limited
// router and returns the fallback generator plus the model registry.
func buildAI(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*aiAdapters.FallbackGenerator, *aiAdapters.Registry) {
	tokens := aiAdapters.NewTokenCounter("cl100k_base")
	providers := map[string]adapter.AIServiceAdapter{}
	defaultProvider := ""

	if cfg.AI.OpenRouterKey != "" {
		or, err := aiAdapters.NewOpenAIAdapter(aiAdapters.OpenAIOptions{
			Provider: aiAdapters.ProviderOpenRouter,
			APIKey:   cfg.AI.OpenRouterKey,
			BaseURL:  cfg.AI.OpenRouterURL,
			Model:    "google/gemini-2.0-flash-exp:free",
			MaxOut:   cfg.AI.MaxOutputTokens,
			Headers: map[string]string{
				"HTTP-Referer": cfg.AI.OpenRouterReferer,
				"X-Title":      cfg.AI.OpenRouterTitle,
			},
			Tokens: tokens,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("openrouter adapter")
		}
		providers[aiAdapters.ProviderOpenRouter] = or
		defaultProvider = aiAdapters.ProviderOpenRouter
	}
	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(aiAdapters.OpenAIOptions{
			Provider: aiAdapters.ProviderOpenAI,
			APIKey:   cfg.AI.OpenAIKey,
			BaseURL:  cfg.AI.OpenAIBaseURL,
			MaxOut:   cfg.AI.MaxOutputTokens,
			Tokens:   tokens,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		providers[aiAdapters.ProviderOpenAI] = oa
		if defaultProvider == "" {
			defaultProvider = aiAdapters.ProviderOpenAI
		}
	}
	if cfg.AI.GeminiKey != "" {
		gm, err := aiAdapters.NewGeminiAdapter(ctx, aiAdapters.GeminiOptions{
			APIKey:  cfg.AI.GeminiKey,
			BaseURL: cfg.AI.GeminiURL,
			MaxOut:  cfg.AI.MaxOutputTokens,
			Tokens:  tokens,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		providers[aiAdapters.ProviderGemini] = gm
		if defaultProvider == "" {
			defaultProvider = aiAdapters.ProviderGemini
		}
	}
	if cfg.Runtime.Dev {
		providers[aiAdapters.ProviderNoop] = aiAdapters.NewNoopAIAdapter(logger)
		if defaultProvider == "" {
			defaultProvider = aiAdapters.ProviderNoop
		}
	}
	if len(providers) == 0 {
		logger.Fatal().Msg("no AI provider configured: set ai.openrouter_key, ai.openai_key or ai.gemini_key")
	}

	available := make(map[string]bool, len(providers))
	for name, p := range providers {
		available[name] = true
		providers[name] = aiAdapters.NewLimitedAI(p, name, cfg.AI.ConcurrentLimit)
	}
	registry, err := aiAdapters.NewRegistry(aiAdapters.BuiltinModels, available, cfg.AI.DefaultModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai registry")
	}

	multi := aiAdapters.NewMultiAIAdapter(defaultProvider, providers, registry.ModelProviders())
	fallbacks := cfg.AI.FallbackModels
	if !available[aiAdapters.ProviderOpenRouter] {
		// the fallback chain is made of OpenRouter model ids
		fallbacks = nil
	}
	gen := aiAdapters.NewFallbackGenerator(multi, registry, aiAdapters.FallbackOptions{
		Models:      fallbacks,
		Attempts:    cfg.AI.Attempts,
		BackoffBase: cfg.AI.BackoffBase,
		CallTimeout: cfg.AI.CallTimeout,
		ProviderOf:  multi.ProviderOf,
	}, logger)

	logger.Info().
		Strs("providers", keys(available)).
		Str("default_model", registry.Default().Key).
		Int("fallback_models", len(fallbacks)).
		Msg("ai ready")
	return gen, registry
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
