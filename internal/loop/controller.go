// Package loop drives a develop session: generate a program, run it, feed
// failures back for repair, then optimize and lint the working version.
//
// The session is a small state machine:
//
//	GENERATING -> RUNNING -> FIXING -> RUNNING ... -> EXHAUSTED
//	                      \-> SUCCESS_PATH -> SUCCEEDED
//
// Any transform failure ends the session in FAILED. Everything runs on the
// caller's goroutine.
package loop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/megacoder/internal/lint"
	"github.com/harrison/megacoder/internal/models"
	"github.com/harrison/megacoder/internal/sandbox"
	"github.com/harrison/megacoder/internal/transform"
)

// Default bounds
const (
	DefaultMaxRunAttempts = 5
	DefaultMaxLintRounds  = 3
)

// Logger is the console surface the controller reports transitions on.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogSuccess(message string)
	LogProgramOutput(output string)
	LogAttempt(attempt, max int)
	LogSummary(summary models.Summary)
}

// Recorder persists finished sessions. *history.Store satisfies it.
type Recorder interface {
	RecordSession(ctx context.Context, summary models.Summary) error
}

// Config bounds the two repair loops.
type Config struct {
	MaxRunAttempts int
	MaxLintRounds  int
}

// Controller runs develop sessions against one working artifact.
type Controller struct {
	transformer  transform.Transformer
	runner       sandbox.ArtifactRunner
	gate         lint.Checker
	artifactPath string
	cfg          Config
	logger       Logger
	recorder     Recorder // optional

	now   func() time.Time
	newID func() string
}

// NewController wires a controller. recorder may be nil.
func NewController(t transform.Transformer, runner sandbox.ArtifactRunner, gate lint.Checker, artifactPath string, cfg Config, logger Logger, recorder Recorder) *Controller {
	if cfg.MaxRunAttempts < 1 {
		cfg.MaxRunAttempts = DefaultMaxRunAttempts
	}
	if cfg.MaxLintRounds < 0 {
		cfg.MaxLintRounds = DefaultMaxLintRounds
	}
	return &Controller{
		transformer:  t,
		runner:       runner,
		gate:         gate,
		artifactPath: artifactPath,
		cfg:          cfg,
		logger:       logger,
		recorder:     recorder,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// session holds the mutable state of one Develop call.
type session struct {
	summary models.Summary
	code    string
}

// Develop runs one full session for description and returns its summary.
// The returned summary's State is always terminal.
func (c *Controller) Develop(ctx context.Context, description string) models.Summary {
	s := &session{summary: models.Summary{
		SessionID:    c.newID(),
		Description:  description,
		ArtifactPath: c.artifactPath,
		State:        models.StateGenerating,
		StartedAt:    c.now(),
	}}

	c.logger.LogInfo("Generating program...")
	code, err := c.transformer.Transform(ctx, models.RoleGenerate, transform.Inputs{Description: description})
	if err != nil {
		return c.fail(ctx, s, err)
	}
	s.code = code
	c.logger.LogSuccess(fmt.Sprintf("Code written to %s", c.artifactPath))

	result, ok := c.runUntilClean(ctx, s)
	if !ok {
		// EXHAUSTED or FAILED, neither optimizes nor lints
		return c.finish(ctx, s)
	}

	if err := c.successPath(ctx, s, result); err != nil {
		return c.fail(ctx, s, err)
	}

	s.summary.State = models.StateSucceeded
	return c.finish(ctx, s)
}

// runUntilClean alternates RUNNING and FIXING until the artifact exits 0 or
// the attempt budget is spent. It returns the passing result.
func (c *Controller) runUntilClean(ctx context.Context, s *session) (models.ExecutionResult, bool) {
	limit := c.cfg.MaxRunAttempts

	for attempt := 1; attempt <= limit; attempt++ {
		s.summary.State = models.StateRunning
		s.summary.Attempts = attempt
		c.logger.LogAttempt(attempt, limit)

		result := c.runner.Run(ctx, c.artifactPath)
		s.summary.LastResult = result

		if result.Succeeded() {
			c.logger.LogProgramOutput(result.Stdout)
			c.logger.LogSuccess(fmt.Sprintf("The generated code executed successfully in %.2f ms", result.Millis()))
			return result, true
		}

		if result.LaunchFailed() {
			c.logger.LogError(fmt.Sprintf("Interpreter could not be launched: %s", strings.TrimSpace(result.Stderr)))
		} else {
			c.logger.LogError(fmt.Sprintf("Program failed with exit code %d", result.ExitCode))
			if detail := strings.TrimSpace(result.Stderr); detail != "" {
				c.logger.LogError(detail)
			}
		}

		if attempt == limit {
			s.summary.State = models.StateExhausted
			c.logger.LogError(fmt.Sprintf("Giving up after %d attempts: could not produce a program that runs without errors", limit))
			return result, false
		}

		if ctx.Err() != nil {
			c.markFailed(s, ctx.Err())
			return result, false
		}

		s.summary.State = models.StateFixing
		s.summary.FixRequests++
		c.logger.LogInfo("Asking the model to fix the code...")
		code, err := c.transformer.Transform(ctx, models.RoleFix, transform.Inputs{
			Code:  s.code,
			Error: failureText(result),
		})
		if err != nil {
			c.markFailed(s, err)
			return result, false
		}
		s.code = code
	}

	return models.ExecutionResult{}, false
}

// successPath requests a faster version, compares timings, then runs the
// lint sub-loop. The optimized artifact is kept whatever its outcome.
func (c *Controller) successPath(ctx context.Context, s *session, passing models.ExecutionResult) error {
	s.summary.State = models.StateSuccessPath
	s.summary.Before = passing.Duration

	c.logger.LogInfo("Requesting an optimized, faster version of the code...")
	optimized, err := c.transformer.Transform(ctx, models.RoleOptimize, transform.Inputs{Code: s.code})
	if err != nil {
		return err
	}
	s.code = optimized
	s.summary.Optimized = true

	c.logger.LogInfo("Running optimized version...")
	result := c.runner.Run(ctx, c.artifactPath)
	s.summary.LastResult = result
	s.summary.After = result.Duration
	s.summary.OptimizedRunOK = result.Succeeded()
	s.summary.Improved = result.Succeeded() && result.Duration < passing.Duration

	switch {
	case s.summary.Improved:
		c.logger.LogSuccess(fmt.Sprintf("Code running time optimized! It now runs in %.2f ms, while before it was %.2f ms",
			result.Millis(), passing.Millis()))
	case !result.Succeeded():
		c.logger.LogWarn(fmt.Sprintf("Optimized version failed to run (exit code %d); it is kept as the working artifact", result.ExitCode))
	default:
		c.logger.LogWarn(fmt.Sprintf("Optimization did not improve the running time (%.2f ms -> %.2f ms)",
			passing.Millis(), result.Millis()))
	}

	return c.lintLoop(ctx, s)
}

// lintLoop checks the artifact, repairing it up to MaxLintRounds times.
// A final check follows the last repair, so the gate runs at most
// MaxLintRounds+1 times.
func (c *Controller) lintLoop(ctx context.Context, s *session) error {
	limit := c.cfg.MaxLintRounds

	for {
		report := c.gate.Check(ctx, c.artifactPath)
		s.summary.LintChecks++
		s.summary.LastLintReport = report

		if !report.HasIssues {
			s.summary.Lint = models.LintClean
			c.logger.LogSuccess("Lint check passed")
			return nil
		}

		if s.summary.LintRounds >= limit {
			s.summary.Lint = models.LintStillIssues
			c.logger.LogWarn(fmt.Sprintf("Code still has lint issues after %d fix rounds", s.summary.LintRounds))
			return nil
		}

		s.summary.LintRounds++
		c.logger.LogWarn(fmt.Sprintf("Lint issues found, requesting fix (round %d/%d)", s.summary.LintRounds, limit))
		c.logger.LogDebug(report.Output)

		code, err := c.transformer.Transform(ctx, models.RoleLintFix, transform.Inputs{
			Code:       s.code,
			LintReport: report.Output,
		})
		if err != nil {
			return err
		}
		s.code = code
	}
}

func (c *Controller) markFailed(s *session, err error) {
	s.summary.State = models.StateFailed
	s.summary.Err = err
	c.logger.LogError(fmt.Sprintf("Model request failed: %v", err))
}

func (c *Controller) fail(ctx context.Context, s *session, err error) models.Summary {
	c.markFailed(s, err)
	return c.finish(ctx, s)
}

func (c *Controller) finish(ctx context.Context, s *session) models.Summary {
	s.summary.EndedAt = c.now()
	c.logger.LogSummary(s.summary)

	if c.recorder != nil {
		// Recording uses a fresh context so a cancelled session is still stored.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := c.recorder.RecordSession(recCtx, s.summary); err != nil {
			c.logger.LogWarn(fmt.Sprintf("Failed to record session history: %v", err))
		}
	}
	return s.summary
}

// failureText is what the fix prompt sees: stderr, or a synthetic message
// when the program failed silently.
func failureText(r models.ExecutionResult) string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	if out := strings.TrimSpace(r.Stdout); out != "" {
		return fmt.Sprintf("process exited with code %d; output:\n%s", r.ExitCode, out)
	}
	return fmt.Sprintf("process exited with code %d and no output", r.ExitCode)
}
