// Package logger provides the tiered console and file loggers used by every
// megacoder command.
//
// Messages carry one of the levels trace, debug, info, warn, error plus the
// success tier, which renders green and filters like info. Implementations are
// thread-safe so the screen watcher and the menu can share one instance.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/megacoder/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the tiered logging surface shared by console and file loggers.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogSuccess(message string)
	LogProgramOutput(output string)
	LogAttempt(attempt, max int)
	LogSummary(summary models.Summary)
}

// ConsoleLogger logs to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else falls back to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns false when NO_COLOR is set.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if f != os.Stdout && f != os.Stderr {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info", "success":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// LogSuccess logs a success message. It filters like info.
// Format: "[HH:MM:SS] [SUCCESS] <message>"
func (cl *ConsoleLogger) LogSuccess(message string) {
	cl.logWithLevel("SUCCESS", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
// The message body takes the tier color for warn, error and success.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var tier *color.Color
	switch level {
	case "TRACE":
		tier = color.New(color.FgHiBlack)
	case "DEBUG":
		tier = color.New(color.FgMagenta)
	case "INFO":
		tier = color.New(color.FgCyan)
	case "WARN":
		tier = color.New(color.FgYellow)
	case "ERROR":
		tier = color.New(color.FgRed)
	case "SUCCESS":
		tier = color.New(color.FgGreen)
	default:
		return fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	body := message
	if level == "WARN" || level == "ERROR" || level == "SUCCESS" {
		body = tier.Sprint(message)
	}
	return fmt.Sprintf("[%s] [%s] %s\n", ts, tier.Sprint(level), body)
}

// LogProgramOutput prints a program's stdout under a banner at INFO level.
// The output itself is written verbatim, without timestamps.
func (cl *ConsoleLogger) LogProgramOutput(output string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	banner := "===== PROGRAM OUTPUT ====="
	if cl.colorOutput {
		banner = color.New(color.FgGreen, color.Bold).Sprint(banner)
	}
	body := strings.TrimRight(output, "\n")
	fmt.Fprintf(cl.writer, "%s\n%s\n", banner, body)
}

// LogAttempt logs a run attempt with an attempt meter at INFO level.
// Format: "[HH:MM:SS] Running attempt 2/5 [====      ] 2/5 (40%)"
func (cl *ConsoleLogger) LogAttempt(attempt, max int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	meter := NewAttemptMeter(max, 10, cl.colorOutput)
	meter.Update(attempt)
	fmt.Fprintf(cl.writer, "[%s] Running attempt %d/%d %s\n", timestamp(), attempt, max, meter.Render())
}

// LogSummary logs the develop session summary at INFO level.
func (cl *ConsoleLogger) LogSummary(s models.Summary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	scheme := newColorScheme(cl.colorOutput)

	var sb strings.Builder
	header := "=== Session Summary ==="
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}
	fmt.Fprintf(&sb, "[%s] %s\n", ts, header)
	for _, line := range summaryLines(s, scheme) {
		fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
	}

	cl.writer.Write([]byte(sb.String()))
}

// summaryLines renders the fields of a session summary, one per line.
func summaryLines(s models.Summary, scheme *colorScheme) []string {
	lines := []string{
		scheme.metric("Session", s.SessionID),
		scheme.metric("Artifact", s.ArtifactPath),
		scheme.state(s.State),
		scheme.metric("Run attempts", s.Attempts),
		scheme.metric("Fix requests", s.FixRequests),
	}

	if s.Optimized {
		lines = append(lines, scheme.timing(s))
	}
	if s.Lint != models.LintNotRun {
		lines = append(lines, scheme.lint(s))
	}
	if s.Err != nil {
		lines = append(lines, scheme.fail.Sprintf("Error: %v", s.Err))
	}
	if !s.StartedAt.IsZero() && !s.EndedAt.IsZero() {
		lines = append(lines, scheme.metric("Duration", formatDuration(s.EndedAt.Sub(s.StartedAt))))
	}
	return lines
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// FormatMillis renders a duration as milliseconds with two decimals.
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}
