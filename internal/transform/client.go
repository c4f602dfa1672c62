// Package transform turns a role and its inputs into a new working artifact
// through a single model call.
package transform

import (
	"context"
	"fmt"

	"github.com/harrison/megacoder/internal/llm"
	"github.com/harrison/megacoder/internal/models"
)

// ArtifactWriter persists the working artifact. *artifact.Store satisfies it.
type ArtifactWriter interface {
	Write(content string) error
	Path() string
}

// Logger is the subset of logger.Logger the client reports through.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// Transformer is what the feedback loop depends on.
type Transformer interface {
	Transform(ctx context.Context, role models.Role, in Inputs) (string, error)
}

// Client sends prompts to the fast model tier and persists the result.
type Client struct {
	Backend   llm.Backend
	Artifact  ArtifactWriter
	Corrupter *Corrupter // nil disables the corruption hook
	Language  string
	Logger    Logger
}

// NewClient creates a Client writing to store.
func NewClient(backend llm.Backend, store ArtifactWriter, corrupter *Corrupter, logger Logger) *Client {
	return &Client{
		Backend:   backend,
		Artifact:  store,
		Corrupter: corrupter,
		Language:  DefaultLanguage,
		Logger:    logger,
	}
}

// Transform builds the prompt for role, calls the backend once, strips
// fences, applies the corruption hook for generate, and overwrites the
// artifact with the result.
func (c *Client) Transform(ctx context.Context, role models.Role, in Inputs) (string, error) {
	if in.Language == "" {
		in.Language = c.Language
	}
	prompt, err := BuildPrompt(role, in)
	if err != nil {
		return "", err
	}

	c.debugf("%s: sending %d-byte prompt to %s", role, len(prompt), c.Backend.Name())

	response, err := c.Backend.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", role, err)
	}

	code := StripFences(response)
	if code == "" {
		return "", fmt.Errorf("%s request failed: %w", role, llm.ErrEmptyResponse)
	}

	if role == models.RoleGenerate {
		if corrupted, fired := c.Corrupter.Apply(code); fired {
			code = corrupted
			if c.Logger != nil {
				c.Logger.LogWarn("Random corruption injected into generated code")
			}
		}
	}

	if err := c.Artifact.Write(code); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", c.Artifact.Path(), err)
	}

	c.debugf("%s: wrote %d bytes to %s", role, len(code), c.Artifact.Path())
	return code, nil
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.LogDebug(fmt.Sprintf(format, args...))
	}
}
