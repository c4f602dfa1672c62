// Package lint runs the static-analysis quality gate against the artifact.
package lint

import (
	"context"
	"strings"
	"time"

	"github.com/harrison/megacoder/internal/models"
	"github.com/harrison/megacoder/internal/sandbox"
)

// Checker abstracts the quality gate for testability.
type Checker interface {
	Check(ctx context.Context, path string) models.LintReport
}

// Gate runs a lint command with the artifact path appended.
type Gate struct {
	// Command is the lint argv prefix, e.g. ["pylint", "--disable=C0114"].
	Command []string

	// Timeout bounds one lint run (0 = none).
	Timeout time.Duration
}

// NewGate creates a Gate for the given lint command.
func NewGate(command []string, timeout time.Duration) *Gate {
	return &Gate{Command: command, Timeout: timeout}
}

// Check lints the file at path. Any non-zero exit, including a lint tool
// that cannot be launched, counts as having issues. The artifact is never
// modified.
func (g *Gate) Check(ctx context.Context, path string) models.LintReport {
	argv := make([]string, 0, len(g.Command)+1)
	argv = append(argv, g.Command...)
	argv = append(argv, path)

	res := sandbox.Command(ctx, sandbox.Options{Timeout: g.Timeout}, argv...)

	return models.LintReport{
		HasIssues: !res.Succeeded(),
		Output:    combineOutput(res),
	}
}

// combineOutput concatenates stdout and stderr, stdout first.
func combineOutput(res models.ExecutionResult) string {
	var sb strings.Builder
	sb.WriteString(res.Stdout)
	if res.Stdout != "" && res.Stderr != "" && !strings.HasSuffix(res.Stdout, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(res.Stderr)
	return sb.String()
}
