package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned when the selected provider has no API key.
var ErrMissingCredential = errors.New("missing credential")

// Secrets holds API credentials read from the environment.
type Secrets struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	GollmAPIKey  string `env:"LLM_API_KEY"`
}

// LoadSecrets loads a .env file (when present) without overriding variables
// already set in the process environment, then parses credentials.
func LoadSecrets(dotenvPath string) (*Secrets, error) {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
			}
		}
	}

	var s Secrets
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &s, nil
}

// RequireFor returns the API key for provider, or an ErrMissingCredential
// naming the variable to set. Ollama through gollm needs no key.
func (s *Secrets) RequireFor(provider, gollmProvider string) (string, error) {
	var key, name string
	switch provider {
	case ProviderGemini:
		key, name = s.GeminiAPIKey, "GEMINI_API_KEY"
	case ProviderOpenAI:
		key, name = s.OpenAIAPIKey, "OPENAI_API_KEY"
	case ProviderGollm:
		if gollmProvider == "ollama" {
			return s.GollmAPIKey, nil
		}
		key, name = s.GollmAPIKey, "LLM_API_KEY"
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set (environment or .env)", ErrMissingCredential, name)
	}
	return key, nil
}
