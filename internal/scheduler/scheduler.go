package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSpec           = "0 3 * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	defaultBuildTimeout   = 2 * time.Hour
)

// BuildFunc runs one build. Its error is logged; the schedule keeps going.
type BuildFunc func(ctx context.Context) error

type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	build   BuildFunc
	log     *slog.Logger
}

// New prepares a scheduler that runs build on spec in UTC. A run that is
// still going when the next one is due makes the next one skip.
func New(
	ctx context.Context,
	spec string,
	timeout time.Duration,
	build BuildFunc,
	log *slog.Logger,
) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	if timeout <= 0 {
		timeout = defaultBuildTimeout
	}

	logger := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		spec:    spec,
		timeout: timeout,
		build:   build,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunNow); err != nil {
		return fmt.Errorf("add cron func (spec = %s): %w", s.spec, err)
	}

	s.cron.Start()

	return nil
}

// Stop stops scheduling and waits for a running build to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the next build is due; zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	return entries[0].Next
}

// RunNow runs one build bounded by the scheduler timeout.
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	start := time.Now()

	if err := s.build(ctx); err != nil {
		s.log.ErrorContext(ctx, "Scheduled build failed",
			"error", err,
			"spec", s.spec,
			"durationMs", time.Since(start).Milliseconds())
		return
	}

	s.log.InfoContext(ctx, "Scheduled build is done",
		"spec", s.spec,
		"durationMs", time.Since(start).Milliseconds())
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("Cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("Cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
