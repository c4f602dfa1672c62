package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/megacoder/internal/repo"
)

// MenuReader defines interface for reading user input (for testing)
type MenuReader interface {
	ReadString(delim byte) (string, error)
}

// DefaultMenuReader wraps bufio.Reader
type DefaultMenuReader struct {
	reader *bufio.Reader
}

func (d *DefaultMenuReader) ReadString(delim byte) (string, error) {
	return d.reader.ReadString(delim)
}

// Command is a menu choice.
type Command int

// Menu commands, numbered as displayed
const (
	CommandDevelop Command = iota + 1
	CommandRepo
	CommandWatch
	CommandHistory
	CommandExit
)

// Outcome tells the menu loop what to do after a handler returns.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeExit
	OutcomeError // reported, then the menu continues
)

type menuEntry struct {
	label   string
	handler func(ctx context.Context, a *App) Outcome
}

// dispatch is the closed set of menu actions.
var dispatch = map[Command]menuEntry{
	CommandDevelop: {"Develop a program", handleDevelop},
	CommandRepo:    {"Analyze or fix a code repository", handleRepo},
	CommandWatch:   {"Monitor my screen for realtime coding tips", handleWatch},
	CommandHistory: {"Show recent sessions", handleHistory},
	CommandExit:    {"Exit", func(context.Context, *App) Outcome { return OutcomeExit }},
}

var menuOrder = []Command{CommandDevelop, CommandRepo, CommandWatch, CommandHistory, CommandExit}

// ParseCommand maps a menu input to a Command.
func ParseCommand(input string) (Command, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "q" || input == "quit" || input == "exit" {
		return CommandExit, nil
	}

	var n int
	if _, err := fmt.Sscanf(input, "%d", &n); err != nil || fmt.Sprint(n) != input {
		return 0, fmt.Errorf("invalid choice %q", input)
	}
	c := Command(n)
	if _, ok := dispatch[c]; !ok {
		return 0, fmt.Errorf("invalid choice %q", input)
	}
	return c, nil
}

// RunMenu shows the menu until the user exits or input ends.
func RunMenu(ctx context.Context, a *App) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		showMenu(a)

		line, err := a.In.ReadString('\n')
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if eof && strings.TrimSpace(line) == "" {
			fmt.Fprintln(a.Out)
			return nil
		}

		cmd, perr := ParseCommand(line)
		if perr != nil {
			a.Log.LogError(fmt.Sprintf("Invalid choice %q, please try again", strings.TrimSpace(line)))
		} else if dispatch[cmd].handler(ctx, a) == OutcomeExit {
			color.New(color.FgMagenta).Fprintln(a.Out, "Goodbye!")
			return nil
		}

		if eof {
			return nil
		}
	}
}

func showMenu(a *App) {
	color.New(color.FgMagenta, color.Bold).Fprint(a.Out, "\nI'm Mega Coder. What would you like me to do today?\n\n")
	for _, c := range menuOrder {
		fmt.Fprintf(a.Out, "%d. %s\n", c, dispatch[c].label)
	}
	color.New(color.FgBlue).Fprintf(a.Out, "\nChoose an option (1-%d): ", len(menuOrder))
}

// prompt asks one question and returns the trimmed answer.
func prompt(a *App, question string) (string, error) {
	color.New(color.FgCyan).Fprintf(a.Out, "\n%s\n> ", question)
	line, err := a.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func handleDevelop(ctx context.Context, a *App) Outcome {
	description, err := prompt(a, "Describe the program you want me to develop:")
	if err != nil {
		return outcomeFromError(a, err)
	}
	if _, err := a.Develop(ctx, description); err != nil {
		return outcomeFromError(a, err)
	}
	return OutcomeContinue
}

func handleRepo(ctx context.Context, a *App) Outcome {
	target, err := prompt(a, "Repository to work on (git URL or local directory):")
	if err != nil {
		return outcomeFromError(a, err)
	}
	request, err := prompt(a, "What should I do with it? (e.g. summarize it, fix a bug)")
	if err != nil {
		return outcomeFromError(a, err)
	}

	apply := false
	if !repo.IsRemote(target) {
		answer, err := prompt(a, "Apply a proposed patch to the directory? [y/N]")
		if err != nil {
			return outcomeFromError(a, err)
		}
		apply = strings.HasPrefix(strings.ToLower(answer), "y")
	}

	if err := a.AnalyzeRepo(ctx, target, request, apply); err != nil {
		return outcomeFromError(a, err)
	}
	return OutcomeContinue
}

func handleWatch(ctx context.Context, a *App) Outcome {
	// Ctrl-C stops the monitor and returns to the menu
	watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := a.Watch(watchCtx, 0); err != nil {
		return outcomeFromError(a, err)
	}
	return OutcomeContinue
}

func handleHistory(ctx context.Context, a *App) Outcome {
	if err := a.ShowHistory(ctx, "", 10); err != nil {
		return outcomeFromError(a, err)
	}
	return OutcomeContinue
}

func outcomeFromError(a *App, err error) Outcome {
	a.Log.LogError(err.Error())
	return OutcomeError
}
