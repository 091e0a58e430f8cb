// Package llmtest provides an instrumented in-memory llm.Transformer for tests.
package llmtest

import (
	"context"
	"sync"
	"time"
)

// Fake records every prompt and the peak number of simultaneous calls.
type Fake struct {
	// Respond produces the output for the call-th prompt (0-based). A nil
	// Respond echoes "ok".
	Respond func(prompt string, call int) (string, error)
	// Delay keeps each call in flight for the given duration.
	Delay time.Duration
	// DelayFor overrides Delay per prompt when set.
	DelayFor func(prompt string) time.Duration

	mu       sync.Mutex
	prompts  []string
	inFlight int
	peak     int
}

func (f *Fake) Transform(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	delay := f.Delay
	if f.DelayFor != nil {
		delay = f.DelayFor(prompt)
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.Respond == nil {
		return "ok", nil
	}

	return f.Respond(prompt, call)
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.prompts)
}

func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.prompts...)
}

func (f *Fake) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.peak
}
