package ratelimiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"kbbuilder/internal/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("service unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)

	return nil
}

func newTestService(fake *llmtest.Fake, opts Options) (*Service, *sleepRecorder) {
	s := New(fake, opts, discardLogger())
	recorder := &sleepRecorder{}
	s.sleep = recorder.sleep

	return s, recorder
}

func TestDelay(t *testing.T) {
	s := New(&llmtest.Fake{}, Options{BackoffBase: 2, BackoffUnit: time.Second}, discardLogger())

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, s.Delay(test.attempt), "attempt %d", test.attempt)
	}
}

func TestSubmitSucceedsAfterFailures(t *testing.T) {
	const failures = 2

	fake := &llmtest.Fake{
		Respond: func(_ string, call int) (string, error) {
			if call < failures {
				return "", errUnavailable
			}
			return "# merged", nil
		},
	}
	s, recorder := newTestService(fake, Options{MaxConcurrency: 2, MaxRetries: 3, BackoffBase: 2, BackoffUnit: time.Second})

	got, err := s.Submit(t.Context(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "# merged", got)
	assert.Equal(t, failures+1, fake.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, recorder.delays)
	assert.IsNonDecreasing(t, recorder.delays)
}

func TestSubmitExhaustsRetries(t *testing.T) {
	fake := &llmtest.Fake{
		Respond: func(string, int) (string, error) { return "", errUnavailable },
	}
	s, recorder := newTestService(fake, Options{MaxConcurrency: 1, MaxRetries: 3})

	_, err := s.Submit(t.Context(), "prompt")
	require.Error(t, err)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, 3, serviceErr.Attempts)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, 3, fake.Calls())
	assert.Len(t, recorder.delays, 2)
	assert.Equal(t, 0, s.InFlight())
}

func TestSubmitZeroRetriesMakesOneAttempt(t *testing.T) {
	fake := &llmtest.Fake{
		Respond: func(string, int) (string, error) { return "", errUnavailable },
	}
	s, recorder := newTestService(fake, Options{MaxRetries: 0})

	_, err := s.Submit(t.Context(), "prompt")

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, 1, serviceErr.Attempts)
	assert.Equal(t, 1, fake.Calls())
	assert.Empty(t, recorder.delays)
}

func TestSubmitReleasesSlotOnFailure(t *testing.T) {
	fake := &llmtest.Fake{
		Respond: func(prompt string, _ int) (string, error) {
			if prompt == "bad" {
				return "", errUnavailable
			}
			return "good", nil
		},
	}
	s, _ := newTestService(fake, Options{MaxConcurrency: 1, MaxRetries: 2})

	_, err := s.Submit(t.Context(), "bad")
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	got, err := s.Submit(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, "good", got)
}

func TestSubmitNeverExceedsConcurrencyCap(t *testing.T) {
	for _, limit := range []int{1, 3, 8} {
		fake := &llmtest.Fake{Delay: 5 * time.Millisecond}
		s, _ := newTestService(fake, Options{MaxConcurrency: limit, MaxRetries: 1})

		var wg sync.WaitGroup
		for range 40 {
			wg.Go(func() {
				_, err := s.Submit(t.Context(), "prompt")
				assert.NoError(t, err)
			})
		}
		wg.Wait()

		assert.LessOrEqual(t, fake.Peak(), limit, "limit %d", limit)
		assert.Equal(t, 40, fake.Calls())
		assert.Equal(t, 40, s.Calls())
	}
}

func TestSubmitStopsOnCancelledBackoff(t *testing.T) {
	fake := &llmtest.Fake{
		Respond: func(string, int) (string, error) { return "", errUnavailable },
	}
	s := New(fake, Options{MaxRetries: 3, BackoffUnit: time.Hour}, discardLogger())

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := s.Submit(ctx, "prompt")

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, 1, serviceErr.Attempts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.Calls())
}
