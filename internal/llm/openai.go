package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend calls a chat completion model through go-openai.
type OpenAIBackend struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIBackend creates an OpenAI client for the given model.
func NewOpenAIBackend(apiKey string, opts Options) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	return &OpenAIBackend{client: openai.NewClient(apiKey), opts: opts}, nil
}

// Name returns "openai/<model>".
func (o *OpenAIBackend) Name() string {
	return "openai/" + o.opts.Model
}

// Generate sends the prompt as a single user message.
func (o *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if o.opts.Temperature > 0 {
		req.Temperature = float32(o.opts.Temperature)
	}
	if o.opts.MaxTokens > 0 {
		req.MaxCompletionTokens = o.opts.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai/%s: %w", o.opts.Model, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyError("openai", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyError("openai", reqErr.HTTPStatusCode, err)
	}
	return classifyError("openai", 0, err)
}
