package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	// "retry in 30 seconds" / "retry after 30s"
	retrySecondsPattern = regexp.MustCompile(`(?i)retry (?:in|after)\s+(\d+(?:\.\d+)?)\s*(?:seconds?|s)\b`)

	// Gemini error details carry "retryDelay": "27s"
	retryDelayPattern = regexp.MustCompile(`(?i)"?retryDelay"?\s*[:=]\s*"?(\d+(?:\.\d+)?)s"?`)

	// "Please try again in 1.5s" / "try again in 20ms" (OpenAI)
	tryAgainPattern = regexp.MustCompile(`(?i)try again in\s+(\d+(?:\.\d+)?)(ms|s)\b`)

	// Generic rate limit indicators
	rateLimitIndicator = regexp.MustCompile(`(?i)(rate.?limit|resource.?exhausted|quota|429|too.?many.?requests)`)
)

// ParseRetryAfter extracts a retry delay hint from a provider error message.
// Returns 0 when the message carries none.
func ParseRetryAfter(msg string) time.Duration {
	if m := retrySecondsPattern.FindStringSubmatch(msg); len(m) > 1 {
		return secondsToDuration(m[1])
	}
	if m := retryDelayPattern.FindStringSubmatch(msg); len(m) > 1 {
		return secondsToDuration(m[1])
	}
	if m := tryAgainPattern.FindStringSubmatch(msg); len(m) > 2 {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		if m[2] == "ms" {
			return time.Duration(v * float64(time.Millisecond))
		}
		return time.Duration(v * float64(time.Second))
	}
	return 0
}

func secondsToDuration(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

// WaitLogger receives rate limit announcements. Can be nil.
type WaitLogger interface {
	LogWarn(message string)
}

// defaultRateLimitWait is used when the provider gives no retry hint.
const defaultRateLimitWait = 10 * time.Second

// RateLimitWaiter decides whether and how long to wait for a rate limit.
type RateLimitWaiter struct {
	maxWait time.Duration
	logger  WaitLogger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRateLimitWaiter creates a waiter that never waits longer than maxWait.
func NewRateLimitWaiter(maxWait time.Duration, logger WaitLogger) *RateLimitWaiter {
	return &RateLimitWaiter{maxWait: maxWait, logger: logger, sleep: sleepContext}
}

// ShouldWait reports whether err is a rate limit worth waiting out.
func (w *RateLimitWaiter) ShouldWait(err error) (time.Duration, bool) {
	var pe *ProviderError
	if !errors.As(err, &pe) || !pe.RateLimit {
		return 0, false
	}
	wait := pe.RetryAfter
	if wait <= 0 {
		wait = defaultRateLimitWait
	}
	if w.maxWait > 0 && wait > w.maxWait {
		return 0, false
	}
	return wait, true
}

// Wait blocks for d, returning early with the context error if cancelled.
func (w *RateLimitWaiter) Wait(ctx context.Context, d time.Duration) error {
	if w.logger != nil {
		w.logger.LogWarn(fmt.Sprintf("Model rate limited, retrying in %v", d.Round(time.Second)))
	}
	return w.sleep(ctx, d)
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

// retryBackend retries a rate-limited call exactly once.
type retryBackend struct {
	Backend
	waiter *RateLimitWaiter
}

// WithRateLimitRetry wraps b: on a rate limit error it waits the hinted
// delay and retries once. Other errors pass straight through.
func WithRateLimitRetry(b Backend, waiter *RateLimitWaiter) Backend {
	if waiter == nil {
		return b
	}
	return &retryBackend{Backend: b, waiter: waiter}
}

func (r *retryBackend) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := r.Backend.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}

	wait, ok := r.waiter.ShouldWait(err)
	if !ok {
		return "", err
	}
	if waitErr := r.waiter.Wait(ctx, wait); waitErr != nil {
		return "", waitErr
	}
	return r.Backend.Generate(ctx, prompt)
}
