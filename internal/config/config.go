package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in llm.provider
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGollm  = "gollm"
)

// CorruptionConfig controls the random single-character corruption hook
// applied to freshly generated programs.
type CorruptionConfig struct {
	// Enabled turns the hook on
	Enabled bool `yaml:"enabled"`

	// Probability is the chance per generation that one character is replaced
	Probability float64 `yaml:"probability"`

	// Marker is the replacement character
	Marker string `yaml:"marker"`
}

// LLMConfig selects the generative backend and its two model tiers.
type LLMConfig struct {
	// Provider is one of gemini, openai, gollm
	Provider string `yaml:"provider"`

	// FastModel serves generate, fix, optimize, lint-fix and screen tips
	FastModel string `yaml:"fast_model"`

	// DeepModel serves repository analysis
	DeepModel string `yaml:"deep_model"`

	// GollmProvider is the upstream provider used when Provider is gollm
	// (anthropic, ollama, groq, mistral, ...)
	GollmProvider string `yaml:"gollm_provider"`

	// Timeout bounds a single backend call (0 = none)
	Timeout time.Duration `yaml:"-"`

	// MaxTokens caps the response length (0 = provider default)
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is passed through when non-zero
	Temperature float64 `yaml:"temperature"`

	// MaxRateLimitWait caps how long a rate-limited call waits before its single retry
	MaxRateLimitWait time.Duration `yaml:"-"`
}

// RepoConfig bounds repository flattening.
type RepoConfig struct {
	// MaxFileBytes skips files larger than this
	MaxFileBytes int64 `yaml:"max_file_bytes"`

	// MaxTotalBytes caps the flattened blob
	MaxTotalBytes int64 `yaml:"max_total_bytes"`

	// ExcludeDirs are directory names never descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// ScreenConfig configures the screen monitor.
type ScreenConfig struct {
	// Interval is the polling period
	Interval time.Duration `yaml:"-"`

	// CaptureCommand writes a screenshot; "{file}" is replaced with the image path
	CaptureCommand []string `yaml:"capture_command"`

	// OCRCommand prints the text of an image; "{file}" is replaced with the image path
	OCRCommand []string `yaml:"ocr_command"`

	// TipsPerMinute throttles tip requests to the model
	TipsPerMinute int `yaml:"tips_per_minute"`
}

// HistoryConfig configures the session history database.
type HistoryConfig struct {
	// Enabled turns history recording on
	Enabled bool `yaml:"enabled"`

	// DBPath is the sqlite database path
	DBPath string `yaml:"db_path"`
}

// Config represents megacoder configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written (empty disables file logging)
	LogDir string `yaml:"log_dir"`

	// ArtifactPath is the well-known path of the working program
	ArtifactPath string `yaml:"artifact_path"`

	// Interpreter runs the artifact
	Interpreter []string `yaml:"interpreter"`

	// LintCommand runs the quality gate; the artifact path is appended
	LintCommand []string `yaml:"lint_command"`

	// MaxRunAttempts bounds the run/fix loop
	MaxRunAttempts int `yaml:"max_run_attempts"`

	// MaxLintRounds bounds the lint-fix loop
	MaxLintRounds int `yaml:"max_lint_rounds"`

	// RunTimeout bounds one artifact run (0 = none)
	RunTimeout time.Duration `yaml:"-"`

	Corruption CorruptionConfig `yaml:"corruption"`
	LLM        LLMConfig        `yaml:"llm"`
	Repo       RepoConfig       `yaml:"repo"`
	Screen     ScreenConfig     `yaml:"screen"`
	History    HistoryConfig    `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		LogDir:         ".megacoder/logs",
		ArtifactPath:   "generated-code.py",
		Interpreter:    []string{"python3"},
		LintCommand:    []string{"pylint", "--disable=C0114"},
		MaxRunAttempts: 5,
		MaxLintRounds:  3,
		RunTimeout:     0,
		Corruption: CorruptionConfig{
			Enabled:     true,
			Probability: 0.3,
			Marker:      "#",
		},
		LLM: LLMConfig{
			Provider:         ProviderGemini,
			FastModel:        "gemini-2.5-flash-lite",
			DeepModel:        "gemini-2.5-pro",
			Timeout:          5 * time.Minute,
			MaxRateLimitWait: 2 * time.Minute,
		},
		Repo: RepoConfig{
			MaxFileBytes:  256 * 1024,
			MaxTotalBytes: 2 * 1024 * 1024,
			ExcludeDirs:   []string{".git", "node_modules", "vendor", "__pycache__", ".venv", "dist", "build"},
		},
		Screen: ScreenConfig{
			Interval:       5 * time.Second,
			CaptureCommand: defaultCaptureCommand(),
			OCRCommand:     []string{"tesseract", "{file}", "stdout"},
			TipsPerMinute:  6,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".megacoder/history.db",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML; decode into a shadow struct first
	type yamlLLM struct {
		LLMConfig        `yaml:",inline"`
		Timeout          string `yaml:"timeout"`
		MaxRateLimitWait string `yaml:"max_rate_limit_wait"`
	}
	type yamlScreen struct {
		ScreenConfig `yaml:",inline"`
		Interval     string `yaml:"interval"`
	}
	type yamlConfig struct {
		LogLevel       string           `yaml:"log_level"`
		LogDir         *string          `yaml:"log_dir"`
		ArtifactPath   string           `yaml:"artifact_path"`
		Interpreter    []string         `yaml:"interpreter"`
		LintCommand    []string         `yaml:"lint_command"`
		MaxRunAttempts int              `yaml:"max_run_attempts"`
		MaxLintRounds  *int             `yaml:"max_lint_rounds"`
		RunTimeout     string           `yaml:"run_timeout"`
		Corruption     CorruptionConfig `yaml:"corruption"`
		LLM            yamlLLM          `yaml:"llm"`
		Repo           RepoConfig       `yaml:"repo"`
		Screen         yamlScreen       `yaml:"screen"`
		History        HistoryConfig    `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	// An explicit empty log_dir disables file logging
	if yamlCfg.LogDir != nil {
		cfg.LogDir = *yamlCfg.LogDir
	}
	if yamlCfg.ArtifactPath != "" {
		cfg.ArtifactPath = yamlCfg.ArtifactPath
	}
	if len(yamlCfg.Interpreter) > 0 {
		cfg.Interpreter = yamlCfg.Interpreter
	}
	if len(yamlCfg.LintCommand) > 0 {
		cfg.LintCommand = yamlCfg.LintCommand
	}
	if yamlCfg.MaxRunAttempts != 0 {
		cfg.MaxRunAttempts = yamlCfg.MaxRunAttempts
	}
	// 0 is a valid round count, so presence decides
	if yamlCfg.MaxLintRounds != nil {
		cfg.MaxLintRounds = *yamlCfg.MaxLintRounds
	}
	if err := parseDurationInto(&cfg.RunTimeout, "run_timeout", yamlCfg.RunTimeout); err != nil {
		return nil, err
	}

	// Booleans need a presence check so "false" can override a true default
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		rawMap = nil
	}

	if section := sectionKeys(rawMap, "corruption"); section != nil {
		if _, ok := section["enabled"]; ok {
			cfg.Corruption.Enabled = yamlCfg.Corruption.Enabled
		}
		if _, ok := section["probability"]; ok {
			cfg.Corruption.Probability = yamlCfg.Corruption.Probability
		}
		if yamlCfg.Corruption.Marker != "" {
			cfg.Corruption.Marker = yamlCfg.Corruption.Marker
		}
	}

	llm := yamlCfg.LLM
	if llm.Provider != "" {
		cfg.LLM.Provider = llm.Provider
	}
	if llm.FastModel != "" {
		cfg.LLM.FastModel = llm.FastModel
	}
	if llm.DeepModel != "" {
		cfg.LLM.DeepModel = llm.DeepModel
	}
	if llm.GollmProvider != "" {
		cfg.LLM.GollmProvider = llm.GollmProvider
	}
	if llm.MaxTokens != 0 {
		cfg.LLM.MaxTokens = llm.MaxTokens
	}
	if llm.Temperature != 0 {
		cfg.LLM.Temperature = llm.Temperature
	}
	if err := parseDurationInto(&cfg.LLM.Timeout, "llm.timeout", llm.Timeout); err != nil {
		return nil, err
	}
	if err := parseDurationInto(&cfg.LLM.MaxRateLimitWait, "llm.max_rate_limit_wait", llm.MaxRateLimitWait); err != nil {
		return nil, err
	}

	if yamlCfg.Repo.MaxFileBytes != 0 {
		cfg.Repo.MaxFileBytes = yamlCfg.Repo.MaxFileBytes
	}
	if yamlCfg.Repo.MaxTotalBytes != 0 {
		cfg.Repo.MaxTotalBytes = yamlCfg.Repo.MaxTotalBytes
	}
	if len(yamlCfg.Repo.ExcludeDirs) > 0 {
		cfg.Repo.ExcludeDirs = yamlCfg.Repo.ExcludeDirs
	}

	screen := yamlCfg.Screen
	if err := parseDurationInto(&cfg.Screen.Interval, "screen.interval", screen.Interval); err != nil {
		return nil, err
	}
	if len(screen.CaptureCommand) > 0 {
		cfg.Screen.CaptureCommand = screen.CaptureCommand
	}
	if len(screen.OCRCommand) > 0 {
		cfg.Screen.OCRCommand = screen.OCRCommand
	}
	if screen.TipsPerMinute != 0 {
		cfg.Screen.TipsPerMinute = screen.TipsPerMinute
	}

	if section := sectionKeys(rawMap, "history"); section != nil {
		if _, ok := section["enabled"]; ok {
			cfg.History.Enabled = yamlCfg.History.Enabled
		}
		if _, ok := section["db_path"]; ok {
			cfg.History.DBPath = yamlCfg.History.DBPath
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from config.yaml in the given home directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, "config.yaml"))
}

func parseDurationInto(dst *time.Duration, key, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s format %q: %w", key, value, err)
	}
	*dst = d
	return nil
}

func sectionKeys(raw map[string]interface{}, name string) map[string]interface{} {
	if raw == nil {
		return nil
	}
	section, _ := raw[name].(map[string]interface{})
	return section
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, provider *string, artifactPath *string, noCorruption *bool, interval *time.Duration) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if provider != nil {
		c.LLM.Provider = *provider
	}
	if artifactPath != nil {
		c.ArtifactPath = *artifactPath
	}
	if noCorruption != nil && *noCorruption {
		c.Corruption.Enabled = false
	}
	if interval != nil {
		c.Screen.Interval = *interval
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.ArtifactPath == "" {
		return fmt.Errorf("artifact_path cannot be empty")
	}
	if len(c.Interpreter) == 0 {
		return fmt.Errorf("interpreter cannot be empty")
	}
	if len(c.LintCommand) == 0 {
		return fmt.Errorf("lint_command cannot be empty")
	}
	if c.MaxRunAttempts <= 0 {
		return fmt.Errorf("max_run_attempts must be > 0, got %d", c.MaxRunAttempts)
	}
	if c.MaxLintRounds < 0 {
		return fmt.Errorf("max_lint_rounds must be >= 0, got %d", c.MaxLintRounds)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run_timeout must be >= 0, got %v", c.RunTimeout)
	}

	if c.Corruption.Probability < 0 || c.Corruption.Probability > 1 {
		return fmt.Errorf("corruption.probability must be within [0,1], got %v", c.Corruption.Probability)
	}
	if c.Corruption.Enabled && len([]rune(c.Corruption.Marker)) != 1 {
		return fmt.Errorf("corruption.marker must be a single character, got %q", c.Corruption.Marker)
	}

	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	case ProviderGollm:
		if c.LLM.GollmProvider == "" {
			return fmt.Errorf("llm.gollm_provider is required when llm.provider is gollm")
		}
	default:
		return fmt.Errorf("invalid llm.provider %q, must be one of: gemini, openai, gollm", c.LLM.Provider)
	}
	if c.LLM.FastModel == "" || c.LLM.DeepModel == "" {
		return fmt.Errorf("llm.fast_model and llm.deep_model cannot be empty")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must be >= 0, got %v", c.LLM.Timeout)
	}

	if c.Screen.Interval <= 0 {
		return fmt.Errorf("screen.interval must be > 0, got %v", c.Screen.Interval)
	}
	if c.Screen.TipsPerMinute <= 0 {
		return fmt.Errorf("screen.tips_per_minute must be > 0, got %d", c.Screen.TipsPerMinute)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}
