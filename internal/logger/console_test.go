package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harrison/megacoder/internal/models"
)

// TestNewConsoleLogger verifies the constructor creates a ConsoleLogger with the provided writer.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "info")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("expected color disabled for non-terminal writer")
		}
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger := NewConsoleLogger(&bytes.Buffer{}, "LOUD")
		if logger.logLevel != "info" {
			t.Errorf("expected info, got %q", logger.logLevel)
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		logger.LogInfo("dropped")
		logger.LogSummary(models.Summary{})
	})
}

// TestConsoleLoggerTiers verifies each tier's prefix.
func TestConsoleLoggerTiers(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "trace")

	logger.LogTrace("t")
	logger.LogDebug("d")
	logger.LogInfo("i")
	logger.LogWarn("w")
	logger.LogError("e")
	logger.LogSuccess("s")

	out := buf.String()
	for _, want := range []string{"[TRACE] t", "[DEBUG] d", "[INFO] i", "[WARN] w", "[ERROR] e", "[SUCCESS] s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestConsoleLoggerLevelFiltering verifies messages below the configured level are dropped.
func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level       string
		wantSuccess bool
		wantDebug   bool
		wantWarn    bool
	}{
		{"debug", true, true, true},
		{"info", true, false, true},
		{"warn", false, false, true},
		{"error", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.level)
			logger.LogSuccess("ok")
			logger.LogDebug("dbg")
			logger.LogWarn("careful")

			out := buf.String()
			if got := strings.Contains(out, "[SUCCESS]"); got != tt.wantSuccess {
				t.Errorf("success logged = %v, want %v", got, tt.wantSuccess)
			}
			if got := strings.Contains(out, "[DEBUG]"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "[WARN]"); got != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestLogProgramOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogProgramOutput("[2, 4, 6]\n")

	out := buf.String()
	if !strings.Contains(out, "===== PROGRAM OUTPUT =====\n[2, 4, 6]\n") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestLogAttempt(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogAttempt(2, 5)

	if !strings.Contains(buf.String(), "Running attempt 2/5 [====      ] 2/5 (40%)") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

// TestLogSummary verifies the summary lines for the main outcomes.
func TestLogSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary models.Summary
		want    []string
		notWant []string
	}{
		{
			name: "improved and clean",
			summary: models.Summary{
				SessionID: "abc", ArtifactPath: "gen.py", State: models.StateSucceeded,
				Attempts: 2, FixRequests: 1,
				Optimized: true, OptimizedRunOK: true, Improved: true,
				Before: 120 * time.Millisecond, After: 80 * time.Millisecond,
				Lint: models.LintClean, LintRounds: 1, LintChecks: 2,
			},
			want: []string{"Session: abc", "State: SUCCEEDED", "Run attempts: 2", "Fix requests: 1",
				"Optimization: improved (120.00 ms -> 80.00 ms)", "Lint: clean (1 fix rounds, 2 checks)"},
		},
		{
			name: "optimized failed to run",
			summary: models.Summary{
				State: models.StateSucceeded, Optimized: true, OptimizedRunOK: false,
				Lint: models.LintStillIssues, LintRounds: 3, LintChecks: 4,
			},
			want: []string{"no improvement (optimized version failed to run)", "Lint: still has issues (3 fix rounds, 4 checks)"},
		},
		{
			name:    "exhausted",
			summary: models.Summary{State: models.StateExhausted, Attempts: 5, FixRequests: 4},
			want:    []string{"State: EXHAUSTED", "Run attempts: 5", "Fix requests: 4"},
			notWant: []string{"Optimization", "Lint"},
		},
		{
			name:    "external failure",
			summary: models.Summary{State: models.StateFailed, Err: errors.New("backend down")},
			want:    []string{"State: FAILED", "Error: backend down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			NewConsoleLogger(buf, "info").LogSummary(tt.summary)
			out := buf.String()
			if !strings.Contains(out, "=== Session Summary ===") {
				t.Errorf("missing header:\n%s", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %q in:\n%s", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("unexpected %q in:\n%s", nw, out)
				}
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour, "1h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAttemptMeter(t *testing.T) {
	m := NewAttemptMeter(5, 10, false)
	m.Update(5)
	if got := m.Render(); got != "[==========] 5/5 (100%)" {
		t.Errorf("Render() = %q", got)
	}
	m.Update(0)
	if got := m.Render(); got != "[          ] 0/5 (0%)" {
		t.Errorf("Render() = %q", got)
	}
	if NewAttemptMeter(0, 10, false).Percentage() != 0 {
		t.Error("zero total should render 0%")
	}
}
