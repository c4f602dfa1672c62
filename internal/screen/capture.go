// Package screen watches the display through OCR and asks the fast model
// tier for tips whenever new code shows up.
package screen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harrison/megacoder/internal/sandbox"
)

// FilePlaceholder in a command is replaced with the screenshot path.
const FilePlaceholder = "{file}"

// DefaultCommandTimeout bounds one capture or OCR invocation.
const DefaultCommandTimeout = 30 * time.Second

// Capturer writes a screenshot of the display to path.
type Capturer interface {
	Capture(ctx context.Context, path string) error
}

// OCR returns the text found in the image at path.
type OCR interface {
	Extract(ctx context.Context, path string) (string, error)
}

// CommandCapturer runs an external screenshot tool.
type CommandCapturer struct {
	Command []string
	Timeout time.Duration
}

// Capture runs the command and checks that it produced a file.
func (c *CommandCapturer) Capture(ctx context.Context, path string) error {
	if len(c.Command) == 0 {
		return fmt.Errorf("capture command is not configured")
	}
	res := sandbox.Command(ctx, sandbox.Options{Timeout: timeoutOr(c.Timeout)}, expandArgs(c.Command, path)...)
	if !res.Succeeded() {
		return fmt.Errorf("%s failed (exit %d): %s", c.Command[0], res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s produced no screenshot: %w", c.Command[0], err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s produced an empty screenshot", c.Command[0])
	}
	return nil
}

// CommandOCR runs an external OCR tool and reads its stdout.
type CommandOCR struct {
	Command []string
	Timeout time.Duration
}

// Extract runs the OCR command on path.
func (o *CommandOCR) Extract(ctx context.Context, path string) (string, error) {
	if len(o.Command) == 0 {
		return "", fmt.Errorf("ocr command is not configured")
	}
	res := sandbox.Command(ctx, sandbox.Options{Timeout: timeoutOr(o.Timeout)}, expandArgs(o.Command, path)...)
	if !res.Succeeded() {
		return "", fmt.Errorf("%s failed (exit %d): %s", o.Command[0], res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// expandArgs substitutes FilePlaceholder, appending the path when the
// command has no placeholder.
func expandArgs(command []string, path string) []string {
	args := make([]string, 0, len(command)+1)
	replaced := false
	for _, a := range command {
		if strings.Contains(a, FilePlaceholder) {
			a = strings.ReplaceAll(a, FilePlaceholder, path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultCommandTimeout
	}
	return d
}
