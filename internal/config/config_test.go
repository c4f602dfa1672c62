package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.MaxRunAttempts != 5 {
		t.Errorf("MaxRunAttempts = %d, want 5", cfg.MaxRunAttempts)
	}
	if cfg.MaxLintRounds != 3 {
		t.Errorf("MaxLintRounds = %d, want 3", cfg.MaxLintRounds)
	}
	if cfg.Corruption.Probability != 0.3 {
		t.Errorf("Corruption.Probability = %v, want 0.3", cfg.Corruption.Probability)
	}
	if cfg.Corruption.Marker != "#" {
		t.Errorf("Corruption.Marker = %q, want %q", cfg.Corruption.Marker, "#")
	}
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, ProviderGemini)
	}
	if cfg.ArtifactPath != "generated-code.py" {
		t.Errorf("ArtifactPath = %q, want generated-code.py", cfg.ArtifactPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: debug
artifact_path: out/program.py
interpreter: [python3, -u]
max_run_attempts: 7
run_timeout: 30s
corruption:
  enabled: false
llm:
  provider: openai
  fast_model: gpt-4o-mini
  deep_model: gpt-4o
  timeout: 90s
screen:
  interval: 2s
  tips_per_minute: 3
history:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.ArtifactPath != "out/program.py" {
		t.Errorf("ArtifactPath = %q", cfg.ArtifactPath)
	}
	if len(cfg.Interpreter) != 2 || cfg.Interpreter[1] != "-u" {
		t.Errorf("Interpreter = %v", cfg.Interpreter)
	}
	if cfg.MaxRunAttempts != 7 {
		t.Errorf("MaxRunAttempts = %d, want 7", cfg.MaxRunAttempts)
	}
	if cfg.MaxLintRounds != 3 {
		t.Errorf("MaxLintRounds = %d, want default 3", cfg.MaxLintRounds)
	}
	if cfg.RunTimeout != 30*time.Second {
		t.Errorf("RunTimeout = %v, want 30s", cfg.RunTimeout)
	}
	if cfg.Corruption.Enabled {
		t.Error("Corruption.Enabled = true, want false")
	}
	if cfg.Corruption.Probability != 0.3 {
		t.Errorf("Corruption.Probability = %v, want default 0.3", cfg.Corruption.Probability)
	}
	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.FastModel != "gpt-4o-mini" || cfg.LLM.DeepModel != "gpt-4o" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("LLM.Timeout = %v, want 90s", cfg.LLM.Timeout)
	}
	if cfg.Screen.Interval != 2*time.Second || cfg.Screen.TipsPerMinute != 3 {
		t.Errorf("Screen = %+v", cfg.Screen)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.DBPath != ".megacoder/history.db" {
		t.Errorf("History.DBPath = %q, want default", cfg.History.DBPath)
	}
}

// TestLoadConfigMissingFile returns defaults without error
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MaxRunAttempts != 5 {
		t.Errorf("MaxRunAttempts = %d, want 5", cfg.MaxRunAttempts)
	}
}

func TestLoadConfigEmptyLogDirDisablesFileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_dir: \"\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogDir != "" {
		t.Errorf("LogDir = %q, want empty", cfg.LogDir)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "log_level: [unclosed", "failed to parse"},
		{"bad run timeout", "run_timeout: forever", "invalid run_timeout"},
		{"bad llm timeout", "llm:\n  timeout: soon", "invalid llm.timeout"},
		{"bad interval", "screen:\n  interval: often", "invalid screen.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"zero attempts", func(c *Config) { c.MaxRunAttempts = 0 }, "max_run_attempts"},
		{"negative lint rounds", func(c *Config) { c.MaxLintRounds = -1 }, "max_lint_rounds"},
		{"probability above one", func(c *Config) { c.Corruption.Probability = 1.5 }, "corruption.probability"},
		{"multi char marker", func(c *Config) { c.Corruption.Marker = "##" }, "corruption.marker"},
		{"marker ignored when disabled", func(c *Config) { c.Corruption.Enabled = false; c.Corruption.Marker = "" }, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "magic" }, "invalid llm.provider"},
		{"gollm without upstream", func(c *Config) { c.LLM.Provider = ProviderGollm }, "gollm_provider"},
		{"gollm with upstream", func(c *Config) { c.LLM.Provider = ProviderGollm; c.LLM.GollmProvider = "anthropic" }, ""},
		{"empty interpreter", func(c *Config) { c.Interpreter = nil }, "interpreter"},
		{"zero interval", func(c *Config) { c.Screen.Interval = 0 }, "screen.interval"},
		{"history without path", func(c *Config) { c.History.DBPath = "" }, "history.db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	level := "debug"
	provider := ProviderOpenAI
	noCorruption := true
	interval := 10 * time.Second

	cfg.MergeWithFlags(&level, &provider, nil, &noCorruption, &interval)

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q", cfg.LLM.Provider)
	}
	if cfg.ArtifactPath != "generated-code.py" {
		t.Errorf("ArtifactPath changed to %q", cfg.ArtifactPath)
	}
	if cfg.Corruption.Enabled {
		t.Error("Corruption still enabled")
	}
	if cfg.Screen.Interval != interval {
		t.Errorf("Interval = %v", cfg.Screen.Interval)
	}
}

func TestLoadConfigMaxLintRoundsPresence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"absent keeps default", "log_level: info\n", 3},
		{"explicit zero disables lint fixes", "max_lint_rounds: 0\n", 0},
		{"explicit value", "max_lint_rounds: 5\n", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg.MaxLintRounds != tt.want {
				t.Errorf("MaxLintRounds = %d, want %d", cfg.MaxLintRounds, tt.want)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
