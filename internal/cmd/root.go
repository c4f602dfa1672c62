package cmd

import (
	"bufio"
	"context"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for megacoder
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "megacoder",
		Short: "LLM-driven program generator, fixer and coding assistant",
		Long: `Megacoder generates a program from a plain-language description,
runs it, feeds failures back to the model until it works, then asks for a
faster version and cleans up lint findings.

It can also summarize or patch a code repository and watch your screen
for code to give realtime tips on.

Run without a subcommand for the interactive menu.

Configuration is loaded from .megacoder/config.yaml (or $MEGACODER_HOME).
API keys come from the environment or a .env file:
  GEMINI_API_KEY   provider gemini (default)
  OPENAI_API_KEY   provider openai
  LLM_API_KEY      provider gollm`,
		Version: Version,
		Args:    cobra.NoArgs,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, RunMenu)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default: .megacoder/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&opts.provider, "provider", "", "Model provider: gemini, openai, gollm")
	flags.StringVar(&opts.artifactPath, "artifact", "", "Path of the generated program")
	flags.BoolVar(&opts.noCorruption, "no-corruption", false, "Disable the random corruption of freshly generated code")

	cmd.AddCommand(newDevelopCommand(opts))
	cmd.AddCommand(newRepoCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// withApp builds the App for cmd, runs fn and releases the App.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *App) error) error {
	markChanged(cmd, opts)
	ctx := commandContext(cmd)

	in := &DefaultMenuReader{reader: bufio.NewReader(cmd.InOrStdin())}
	app, err := appFactory(ctx, *opts, in, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

// withHistory is withApp for commands that only read the history database.
func withHistory(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *App) error) error {
	markChanged(cmd, opts)

	app, err := newHistoryApp(*opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(commandContext(cmd), app)
}

func markChanged(cmd *cobra.Command, opts *globalOptions) {
	f := cmd.Flags()
	opts.logLevelSet = f.Changed("log-level")
	opts.providerSet = f.Changed("provider")
	opts.artifactSet = f.Changed("artifact")
	opts.noCorruptionSet = f.Changed("no-corruption")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
