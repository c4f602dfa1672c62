package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend calls a Gemini model through google.golang.org/genai.
type GeminiBackend struct {
	client *genai.Client
	opts   Options
}

// NewGeminiBackend creates a Gemini client for the given model.
func NewGeminiBackend(ctx context.Context, apiKey string, opts Options) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiBackend{client: client, opts: opts}, nil
}

// Name returns "gemini/<model>".
func (g *GeminiBackend) Name() string {
	return "gemini/" + g.opts.Model
}

// Generate sends a single user turn and returns the concatenated text parts.
func (g *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if g.opts.Temperature > 0 {
		temp := float32(g.opts.Temperature)
		cfg.Temperature = &temp
	}
	if g.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opts.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini/%s: %w", g.opts.Model, ErrEmptyResponse)
	}
	return text, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyError("gemini", apiErr.Code, err)
	}
	return classifyError("gemini", 0, err)
}
