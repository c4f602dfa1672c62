package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"
)

// GollmBackend reaches any provider gollm supports (ollama, anthropic, groq...).
type GollmBackend struct {
	provider string
	llm      gollm.LLM
	opts     Options
}

// NewGollmBackend creates a gollm-backed model. Ollama needs no API key.
func NewGollmBackend(provider, apiKey string, opts Options) (*GollmBackend, error) {
	if provider == "" {
		return nil, fmt.Errorf("gollm: upstream provider is required")
	}
	if apiKey == "" && provider != "ollama" {
		return nil, fmt.Errorf("gollm/%s: %w", provider, ErrMissingAPIKey)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(opts.Model),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if opts.MaxTokens > 0 {
		gollmOpts = append(gollmOpts, gollm.SetMaxTokens(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		gollmOpts = append(gollmOpts, gollm.SetTemperature(opts.Temperature))
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}

	l, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("gollm/%s: create client: %w", provider, err)
	}
	return &GollmBackend{provider: provider, llm: l, opts: opts}, nil
}

// Name returns "<provider>/<model>".
func (g *GollmBackend) Name() string {
	return g.provider + "/" + g.opts.Model
}

// Generate sends the prompt and returns the raw text.
func (g *GollmBackend) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.llm.Generate(ctx, gollm.NewPrompt(prompt))
	if err != nil {
		return "", classifyError(g.provider, 0, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", g.Name(), ErrEmptyResponse)
	}
	return text, nil
}
