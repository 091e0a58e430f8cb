package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"kbbuilder/internal/llm"

	"golang.org/x/sync/semaphore"
)

type Options struct {
	// MaxConcurrency caps in-flight calls across every caller of the Service.
	MaxConcurrency int
	// MaxRetries is the total number of attempts per Submit. Zero is treated as one.
	MaxRetries  int
	BackoffBase float64
	BackoffUnit time.Duration
}

// ServiceError is the terminal failure of one Submit after all attempts.
type ServiceError struct {
	Cause    error
	Attempts int
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service call failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Service is the single gateway to the generative-text service. One instance
// must be shared by every call site for the concurrency cap to hold.
type Service struct {
	transformer llm.Transformer
	sem         *semaphore.Weighted
	maxAttempts int
	backoffBase float64
	backoffUnit time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	inFlight    atomic.Int64
	calls       atomic.Int64
	log         *slog.Logger
}

func New(transformer llm.Transformer, opts Options, log *slog.Logger) *Service {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.BackoffBase < 1 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = DefaultBackoffUnit
	}

	return &Service{
		transformer: transformer,
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		maxAttempts: max(opts.MaxRetries, 1),
		backoffBase: opts.BackoffBase,
		backoffUnit: opts.BackoffUnit,
		sleep:       sleepContext,
		log:         log,
	}
}

// Submit sends prompt to the service, retrying every failure until the
// attempt budget is spent. The concurrency slot is held only while a call is
// in flight, never during backoff.
func (s *Service) Submit(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		start := time.Now()

		text, err := s.call(ctx, prompt)
		if err == nil {
			s.log.DebugContext(ctx, "Service call succeeded",
				"attempt", attempt,
				"durationMs", time.Since(start).Milliseconds(),
				"promptLen", len(prompt),
				"outputLen", len(text))

			return text, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &ServiceError{Cause: errors.Join(err, ctxErr), Attempts: attempt}
		}

		if attempt == s.maxAttempts {
			break
		}

		delay := s.Delay(attempt)
		s.log.WarnContext(ctx, "Service call failed, retrying",
			"error", err,
			"attempt", attempt,
			"maxAttempts", s.maxAttempts,
			"delay", delay,
			"durationMs", time.Since(start).Milliseconds())

		if err = s.sleep(ctx, delay); err != nil {
			return "", &ServiceError{Cause: errors.Join(lastErr, err), Attempts: attempt}
		}
	}

	s.log.ErrorContext(ctx, "Service call failed permanently",
		"error", lastErr,
		"attempts", s.maxAttempts)

	return "", &ServiceError{Cause: lastErr, Attempts: s.maxAttempts}
}

// Delay is the pause between attempt and attempt+1: unit * base^attempt.
func (s *Service) Delay(attempt int) time.Duration {
	return time.Duration(float64(s.backoffUnit) * math.Pow(s.backoffBase, float64(attempt)))
}

// InFlight reports how many calls currently hold a slot.
func (s *Service) InFlight() int {
	return int(s.inFlight.Load())
}

// Calls reports how many calls were issued, retries included.
func (s *Service) Calls() int {
	return int(s.calls.Load())
}

func (s *Service) MaxAttempts() int {
	return s.maxAttempts
}

func (s *Service) call(ctx context.Context, prompt string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire slot: %w", err)
	}
	s.inFlight.Add(1)
	s.calls.Add(1)
	defer func() {
		s.inFlight.Add(-1)
		s.sem.Release(1)
	}()

	text, err := s.transformer.Transform(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("transform: %w", err)
	}

	return text, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
