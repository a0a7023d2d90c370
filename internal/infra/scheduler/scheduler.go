package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one periodic unit of work. It returns how many items it handled.
type Job func(ctx context.Context) (int64, error)

// Scheduler runs a Job every interval until stopped.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	log      *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler defaults interval to one minute. Each run is bounded by
// timeout, or by the interval when timeout is zero.
func NewScheduler(name string, interval, timeout time.Duration, job Job, log *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &Scheduler{name: name, interval: interval, timeout: timeout, job: job, log: log}
}

// Start launches the loop; calling it again while running has no effect.
func (s *Scheduler) Start(parent context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	l := s.log.With().Str("job", s.name).Logger()
	l.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, &l)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, l *zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.job(runCtx)
	if err != nil {
		l.Error().Err(err).Msg("scheduled job failed")
		return
	}
	if n > 0 {
		l.Debug().Int64("handled", n).Msg("scheduled job done")
	}
}

// Stop cancels the loop and waits for it to exit. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}
