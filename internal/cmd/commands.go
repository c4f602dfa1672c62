package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/megacoder/internal/history"
	"github.com/harrison/megacoder/internal/models"
)

func newDevelopCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "develop <description>...",
		Short: "Generate, run, fix, optimize and lint a program",
		Long: `Generate a program from a description and run it. Failures are sent
back to the model for repair, up to the configured number of attempts.
A working program is then optimized for speed and lint findings are fixed.

Examples:
  megacoder develop "print the first 20 prime numbers"
  megacoder develop --no-corruption --artifact primes.py "print primes below 100"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				summary, err := a.Develop(ctx, description)
				if err != nil {
					return err
				}
				if summary.State != models.StateSucceeded {
					return fmt.Errorf("session %s ended %s", summary.SessionID, summary.State)
				}
				return nil
			})
		},
	}
}

func newRepoCommand(opts *globalOptions) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "repo <git-url-or-directory> <request>...",
		Short: "Summarize or patch a code repository",
		Long: `Flatten a repository (shallow clone for URLs) and send it to the deep
model tier with your request. A unified diff in the answer is saved to
megacoder.patch; with --apply it is applied to a local directory.

Examples:
  megacoder repo https://github.com/user/project "summarize the architecture"
  megacoder repo ./myproject "fix the off-by-one in the pagination" --apply`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, request := args[0], strings.Join(args[1:], " ")
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				return a.AnalyzeRepo(ctx, target, request, apply)
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the proposed patch to a local directory with git apply")
	return cmd
}

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the screen and give realtime coding tips",
		Long: `Capture the screen at a fixed interval, OCR it, and ask the model for
tips whenever new code appears. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				return a.Watch(ctx, interval)
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (default from config, 5s)")
	return cmd
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var (
		limit int
		kind  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch kind {
			case "", history.KindDevelop, history.KindRepo, history.KindTip:
			default:
				return fmt.Errorf("invalid --kind %q, must be one of: develop, repo, tip", kind)
			}
			return withHistory(cmd, opts, func(ctx context.Context, a *App) error {
				return a.ShowHistory(ctx, kind, limit)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries to show")
	cmd.Flags().StringVar(&kind, "kind", "", "Only show one kind: develop, repo, tip")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "megacoder %s\n", Version)
		},
	}
}
