// Package sandbox runs generated programs and helper tools as child processes.
//
// Runs never return an error. A process that crashes or exits non-zero is an
// ordinary ExecutionResult; a process that cannot be started at all becomes
// the synthetic launch-failure result (exit code models.LaunchFailedExitCode,
// empty stdout, the launch error as stderr, zero duration).
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/harrison/megacoder/internal/models"
)

// TimeoutExitCode is reported when a run is killed for exceeding its timeout.
const TimeoutExitCode = 124

// ArtifactRunner abstracts artifact execution for testability.
type ArtifactRunner interface {
	Run(ctx context.Context, path string) models.ExecutionResult
}

// Runner executes an artifact with a fixed interpreter.
type Runner struct {
	// Interpreter is the argv prefix; the artifact path is appended.
	Interpreter []string

	// Timeout bounds a single run (0 = none).
	Timeout time.Duration

	// WorkDir is the child's working directory (empty = current dir).
	WorkDir string
}

// NewRunner creates a Runner for the given interpreter argv.
func NewRunner(interpreter []string, timeout time.Duration) *Runner {
	return &Runner{Interpreter: interpreter, Timeout: timeout}
}

// Run executes the artifact at path with no stdin and captures its output.
func (r *Runner) Run(ctx context.Context, path string) models.ExecutionResult {
	argv := make([]string, 0, len(r.Interpreter)+1)
	argv = append(argv, r.Interpreter...)
	argv = append(argv, path)
	return Command(ctx, Options{Dir: r.WorkDir, Timeout: r.Timeout}, argv...)
}

// Options tunes a Command invocation.
type Options struct {
	Dir     string
	Timeout time.Duration
}

// Command runs argv as a child process with stdin attached to the null
// device, capturing stdout and stderr separately and timing the run.
func Command(ctx context.Context, opts Options, argv ...string) models.ExecutionResult {
	if len(argv) == 0 {
		return launchFailed(errors.New("empty command"))
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdin = nil
	// Grandchildren holding the output pipes must not stall Wait after a kill
	cmd.WaitDelay = 500 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return launchFailed(err)
	}
	err := cmd.Wait()
	duration := time.Since(start)

	result := models.ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		result.ExitCode = TimeoutExitCode
		result.Stderr += fmt.Sprintf("\nprocess killed: timed out after %v", opts.Timeout)
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		result.ExitCode = exitErr.ExitCode()
	default:
		// Killed by a signal or cancelled; keep it distinct from a launch failure
		result.ExitCode = 1
		result.Stderr += fmt.Sprintf("\nprocess terminated: %v", err)
	}
	return result
}

func launchFailed(err error) models.ExecutionResult {
	return models.ExecutionResult{
		ExitCode: models.LaunchFailedExitCode,
		Stdout:   "",
		Stderr:   err.Error(),
		Duration: 0,
	}
}
