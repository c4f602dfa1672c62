package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")

	s, err := LoadSecrets("")
	require.NoError(t, err)
	assert.Equal(t, "gem-key", s.GeminiAPIKey)
	assert.Empty(t, s.OpenAIAPIKey)
}

func TestLoadSecretsDotenvDoesNotOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GEMINI_API_KEY=from-file\nOPENAI_API_KEY=oa-file\n"), 0600))

	s, err := LoadSecrets(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.GeminiAPIKey)
	assert.Equal(t, "oa-file", s.OpenAIAPIKey)
	os.Unsetenv("OPENAI_API_KEY")
}

func TestLoadSecretsMissingDotenvIsFine(t *testing.T) {
	_, err := LoadSecrets(filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestRequireFor(t *testing.T) {
	s := &Secrets{GeminiAPIKey: "g"}

	key, err := s.RequireFor(ProviderGemini, "")
	require.NoError(t, err)
	assert.Equal(t, "g", key)

	_, err = s.RequireFor(ProviderOpenAI, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	_, err = s.RequireFor(ProviderGollm, "anthropic")
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = s.RequireFor(ProviderGollm, "ollama")
	assert.NoError(t, err)

	_, err = s.RequireFor("magic", "")
	assert.Error(t, err)
}

func TestGetHomeFromEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	t.Setenv("MEGACODER_HOME", dir)

	home, err := GetHome()
	require.NoError(t, err)
	assert.Equal(t, dir, home)
	assert.DirExists(t, dir)
}
