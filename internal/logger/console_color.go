package logger

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/harrison/megacoder/internal/models"
)

// colorScheme defines consistent colors for summary metrics.
// Green: success, Red: failure, Yellow: warning, Cyan: labels.
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
// With enabled false every color renders plain text.
func newColorScheme(enabled bool) *colorScheme {
	s := &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
	if !enabled {
		for _, c := range []*color.Color{s.success, s.fail, s.warn, s.label, s.value} {
			c.DisableColor()
		}
	}
	return s
}

// metric formats "label: value" with a colorized label.
func (s *colorScheme) metric(label string, value interface{}) string {
	return fmt.Sprintf("%s: %s", s.label.Sprint(label), s.value.Sprintf("%v", value))
}

// state colors the final controller state by outcome.
func (s *colorScheme) state(st models.State) string {
	var c *color.Color
	switch st {
	case models.StateSucceeded:
		c = s.success
	case models.StateExhausted, models.StateFailed:
		c = s.fail
	default:
		c = s.warn
	}
	return fmt.Sprintf("%s: %s", s.label.Sprint("State"), c.Sprint(string(st)))
}

// timing renders the before/after optimization comparison.
func (s *colorScheme) timing(sum models.Summary) string {
	label := s.label.Sprint("Optimization")
	switch {
	case sum.Improved:
		return fmt.Sprintf("%s: %s (%s -> %s)", label, s.success.Sprint("improved"),
			FormatMillis(sum.Before), FormatMillis(sum.After))
	case !sum.OptimizedRunOK:
		return fmt.Sprintf("%s: %s (optimized version failed to run)", label, s.warn.Sprint("no improvement"))
	default:
		return fmt.Sprintf("%s: %s (%s -> %s)", label, s.warn.Sprint("no improvement"),
			FormatMillis(sum.Before), FormatMillis(sum.After))
	}
}

// lint renders the lint sub-loop outcome.
func (s *colorScheme) lint(sum models.Summary) string {
	label := s.label.Sprint("Lint")
	if sum.Lint == models.LintClean {
		return fmt.Sprintf("%s: %s (%d fix rounds, %d checks)", label, s.success.Sprint("clean"), sum.LintRounds, sum.LintChecks)
	}
	return fmt.Sprintf("%s: %s (%d fix rounds, %d checks)", label, s.warn.Sprint("still has issues"), sum.LintRounds, sum.LintChecks)
}
