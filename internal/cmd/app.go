package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/megacoder/internal/artifact"
	"github.com/harrison/megacoder/internal/config"
	"github.com/harrison/megacoder/internal/history"
	"github.com/harrison/megacoder/internal/lint"
	"github.com/harrison/megacoder/internal/llm"
	"github.com/harrison/megacoder/internal/logger"
	"github.com/harrison/megacoder/internal/loop"
	"github.com/harrison/megacoder/internal/repo"
	"github.com/harrison/megacoder/internal/sandbox"
	"github.com/harrison/megacoder/internal/transform"
)

// App holds the wired components shared by the menu and the subcommands.
type App struct {
	Config     *config.Config
	Log        logger.Logger
	Tiers      *llm.Tiers
	Artifact   *artifact.Store
	History    *history.Store // nil when history is disabled
	Controller *loop.Controller
	Analyzer   *repo.Analyzer

	In  MenuReader
	Out io.Writer

	closers []func() error
}

// globalOptions are the persistent root flags.
type globalOptions struct {
	configPath   string
	logLevel     string
	provider     string
	artifactPath string
	noCorruption bool

	// set for flags given explicitly on the command line
	logLevelSet     bool
	providerSet     bool
	artifactSet     bool
	noCorruptionSet bool
}

// appFactory builds the App for a command. Tests replace it.
var appFactory = newApp

// newTiers builds the model clients. Tests replace it.
var newTiers = llm.NewTiers

// newApp loads configuration and credentials and wires every component.
// A missing credential for the selected provider is returned as an error
// before anything else starts.
func newApp(ctx context.Context, opts globalOptions, in MenuReader, out io.Writer) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	secrets, err := config.LoadSecrets(".env")
	if err != nil {
		return nil, err
	}
	apiKey, err := secrets.RequireFor(cfg.LLM.Provider, cfg.LLM.GollmProvider)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	var (
		log     logger.Logger = console
		closers []func() error
	)
	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			console.LogWarn(fmt.Sprintf("File logging disabled: %v", err))
		} else {
			log = logger.NewMulti(console, fileLog)
			closers = append(closers, fileLog.Close)
		}
	}

	tiers, err := newTiers(ctx, cfg.LLM, apiKey, log)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("configure %s backend: %w", cfg.LLM.Provider, err)
	}
	log.LogSuccess(fmt.Sprintf("%s configured successfully (fast: %s, deep: %s)",
		cfg.LLM.Provider, tiers.Fast.Name(), tiers.Deep.Name()))

	app, err := assemble(cfg, tiers, log, in, out)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	app.closers = append(closers, app.closers...)
	return app, nil
}

// newHistoryApp builds an App that can only read history. It needs no
// credentials and creates no model clients.
func newHistoryApp(opts globalOptions, out io.Writer) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Log:    logger.NewConsoleLogger(out, cfg.LogLevel),
		Out:    out,
	}
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		app.History = store
		app.closers = append(app.closers, store.Close)
	}
	return app, nil
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

func loadConfig(opts globalOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", opts.configPath, err)
		}
	} else {
		home, err := config.GetHome()
		if err != nil {
			return nil, err
		}
		cfg, err = config.LoadConfigFromDir(home)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var logLevel, provider, artifactPath *string
	var noCorruption *bool
	if opts.logLevelSet {
		logLevel = &opts.logLevel
	}
	if opts.providerSet {
		provider = &opts.provider
	}
	if opts.artifactSet {
		artifactPath = &opts.artifactPath
	}
	if opts.noCorruptionSet {
		noCorruption = &opts.noCorruption
	}
	cfg.MergeWithFlags(logLevel, provider, artifactPath, noCorruption, nil)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// assemble wires the domain components around already-built model tiers.
func assemble(cfg *config.Config, tiers *llm.Tiers, log logger.Logger, in MenuReader, out io.Writer) (*App, error) {
	app := &App{
		Config:   cfg,
		Log:      log,
		Tiers:    tiers,
		Artifact: artifact.NewStore(cfg.ArtifactPath),
		In:       in,
		Out:      out,
	}

	var recorder loop.Recorder
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			log.LogWarn(fmt.Sprintf("Session history disabled: %v", err))
		} else {
			app.History = store
			app.closers = append(app.closers, store.Close)
			recorder = store
		}
	}

	var corrupter *transform.Corrupter
	if cfg.Corruption.Enabled && cfg.Corruption.Probability > 0 {
		corrupter = transform.NewCorrupter(cfg.Corruption.Probability, markerRune(cfg.Corruption.Marker))
	}

	client := transform.NewClient(tiers.Fast, app.Artifact, corrupter, log)
	runner := sandbox.NewRunner(cfg.Interpreter, cfg.RunTimeout)
	gate := lint.NewGate(cfg.LintCommand, cfg.RunTimeout)

	app.Controller = loop.NewController(client, runner, gate, cfg.ArtifactPath, loop.Config{
		MaxRunAttempts: cfg.MaxRunAttempts,
		MaxLintRounds:  cfg.MaxLintRounds,
	}, log, recorder)

	wd, err := os.Getwd()
	if err != nil {
		wd = filepath.Dir(cfg.ArtifactPath)
	}
	ingestor := repo.NewIngestor(cfg.Repo.MaxFileBytes, cfg.Repo.MaxTotalBytes, cfg.Repo.ExcludeDirs)
	app.Analyzer = repo.NewAnalyzer(tiers.Deep, ingestor, wd, log)

	return app, nil
}

func markerRune(marker string) rune {
	for _, r := range marker {
		return r
	}
	return transform.DefaultCorruptionMarker
}

// Close releases the history database and the run log.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	a.closers = nil
}
