package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"codehub-mentor/internal/config"
)

const service = "codehub-mentor"

// New builds the process logger. Unknown levels fall back to info. With
// sampling on, debug and info lines are thinned while warnings and errors
// always pass.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	return newLogger(os.Stdout, cfg, dev)
}

func newLogger(w io.Writer, cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if dev || strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).Level(level).With().Timestamp().Str("service", service)
	if dev {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()

	if cfg.Sampling && !dev {
		l = l.Sample(zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: 100},
			InfoSampler:  &zerolog.BurstSampler{Burst: 50, Period: time.Second, NextSampler: &zerolog.BasicSampler{N: 10}},
		})
	}
	return &l
}

type ctxKey int

const (
	ctxTraceID ctxKey = iota
	ctxUserID
	ctxSessID
)

var ctxFields = []struct {
	key   ctxKey
	field string
}{
	{ctxTraceID, "trace_id"},
	{ctxUserID, "user_id"},
	{ctxSessID, "session_id"},
}

// With returns base enriched with the request ids carried by ctx.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	l := base.With()
	for _, f := range ctxFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			l = l.Str(f.field, v)
		}
	}
	logger := l.Logger()
	return &logger
}

// TraceDuration logs entry and exit of name at trace level.
//
//	defer logging.TraceDuration(log, "MentorChatUC.SendMessage")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	if logger.GetLevel() > zerolog.TraceLevel {
		return func() {}
	}
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		logger.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}

// Preview cuts s to n runes. Message bodies never go to the log in full.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxUserID, id)
}

func WithSessID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSessID, id)
}
