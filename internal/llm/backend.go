// Package llm wraps the generative backends behind a one-shot
// prompt-in/text-out contract.
//
// Two tiers are used: the fast tier serves code generation, repair,
// optimization, lint repair and screen tips; the deep tier serves
// repository analysis. Gemini (google.golang.org/genai) is the default
// provider, OpenAI (go-openai) and anything gollm supports are alternatives.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/megacoder/internal/config"
)

// ErrMissingAPIKey is returned when a backend is built without credentials.
var ErrMissingAPIKey = errors.New("missing API key")

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Backend is a one-shot generative model call.
type Backend interface {
	// Generate sends prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies provider and model, e.g. "gemini/gemini-2.5-flash-lite".
	Name() string
}

// Func adapts a plain function to Backend.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Name returns "func".
func (f Func) Name() string {
	return "func"
}

// Tiers holds the two model tiers.
type Tiers struct {
	Fast Backend
	Deep Backend
}

// Options are the provider-independent generation settings.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// NewTiers builds both tiers for the configured provider. Each backend is
// wrapped with a per-call timeout and a single rate-limit retry.
func NewTiers(ctx context.Context, cfg config.LLMConfig, apiKey string, logger WaitLogger) (*Tiers, error) {
	build := func(model string) (Backend, error) {
		opts := Options{
			Model:       model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}

		var (
			b   Backend
			err error
		)
		switch cfg.Provider {
		case config.ProviderGemini:
			b, err = NewGeminiBackend(ctx, apiKey, opts)
		case config.ProviderOpenAI:
			b, err = NewOpenAIBackend(apiKey, opts)
		case config.ProviderGollm:
			b, err = NewGollmBackend(cfg.GollmProvider, apiKey, opts)
		default:
			return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
		}
		if err != nil {
			return nil, err
		}

		waiter := NewRateLimitWaiter(cfg.MaxRateLimitWait, logger)
		return WithRateLimitRetry(WithTimeout(b, cfg.Timeout), waiter), nil
	}

	fast, err := build(cfg.FastModel)
	if err != nil {
		return nil, fmt.Errorf("fast tier: %w", err)
	}
	deep, err := build(cfg.DeepModel)
	if err != nil {
		return nil, fmt.Errorf("deep tier: %w", err)
	}
	return &Tiers{Fast: fast, Deep: deep}, nil
}

// timeoutBackend bounds each call with its own deadline.
type timeoutBackend struct {
	Backend
	timeout time.Duration
}

// WithTimeout wraps b so every Generate call gets a deadline of d (0 = none).
func WithTimeout(b Backend, d time.Duration) Backend {
	if d <= 0 {
		return b
	}
	return &timeoutBackend{Backend: b, timeout: d}
}

func (t *timeoutBackend) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Backend.Generate(ctx, prompt)
}
