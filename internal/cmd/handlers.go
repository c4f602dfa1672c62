package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/megacoder/internal/history"
	"github.com/harrison/megacoder/internal/models"
	"github.com/harrison/megacoder/internal/screen"
)

// errEmptyInput is returned when the user submits nothing to act on.
var errEmptyInput = errors.New("input must not be empty")

// Develop runs one develop session. A session that ends exhausted or
// failed is reported in the summary, not as an error.
func (a *App) Develop(ctx context.Context, description string) (models.Summary, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Summary{}, fmt.Errorf("program description: %w", errEmptyInput)
	}
	return a.Controller.Develop(ctx, description), nil
}

// AnalyzeRepo summarizes target and, when asked, applies the proposed patch.
func (a *App) AnalyzeRepo(ctx context.Context, target, request string, apply bool) error {
	target = strings.TrimSpace(target)
	request = strings.TrimSpace(request)
	if target == "" {
		return fmt.Errorf("repository: %w", errEmptyInput)
	}
	if request == "" {
		return fmt.Errorf("request: %w", errEmptyInput)
	}

	started := time.Now()
	analysis, err := a.Analyzer.Analyze(ctx, target, request, apply)

	entry := history.Entry{Kind: history.KindRepo, Subject: target, StartedAt: started, EndedAt: time.Now()}
	if err != nil {
		entry.State = string(models.StateFailed)
		entry.Detail = err.Error()
		a.record(ctx, entry)
		return err
	}

	color.New(color.FgGreen).Fprintln(a.Out, "\n===== REPOSITORY ANALYSIS =====")
	fmt.Fprintln(a.Out, analysis.Summary)
	fmt.Fprintln(a.Out)

	entry.State = string(models.StateSucceeded)
	switch {
	case analysis.Applied:
		entry.Detail = fmt.Sprintf("patch applied: %d files, +%d -%d", len(analysis.Files), analysis.Added(), analysis.Removed())
	case analysis.PatchPath != "":
		entry.Detail = fmt.Sprintf("patch saved to %s", analysis.PatchPath)
	default:
		entry.Detail = "summary only"
	}
	a.record(ctx, entry)
	return nil
}

// Watch runs the screen monitor until ctx is cancelled.
func (a *App) Watch(ctx context.Context, interval time.Duration) error {
	sc := a.Config.Screen
	if interval <= 0 {
		interval = sc.Interval
	}

	w := screen.NewWatcher(
		&screen.CommandCapturer{Command: sc.CaptureCommand},
		&screen.CommandOCR{Command: sc.OCRCommand},
		a.Tiers.Fast,
		interval,
		sc.TipsPerMinute,
		a.Log,
	)
	w.OnTip = func(tip screen.Tip) {
		a.record(context.WithoutCancel(ctx), history.Entry{
			Kind:      history.KindTip,
			Subject:   firstLine(tip.Code),
			State:     string(models.StateSucceeded),
			Detail:    tip.Text,
			StartedAt: tip.At,
			EndedAt:   tip.At,
		})
	}

	if err := w.Run(ctx); err != nil {
		return err
	}
	stats := w.Stats()
	a.Log.LogInfo(fmt.Sprintf("Screen monitor: %d polls, %d tips, %d errors", stats.Polls, stats.Tips, stats.Errors))
	return nil
}

// ShowHistory prints the most recent entries, optionally of one kind.
func (a *App) ShowHistory(ctx context.Context, kind string, limit int) error {
	if a.History == nil {
		fmt.Fprintln(a.Out, "Session history is disabled (history.enabled: false)")
		return nil
	}

	entries, err := a.History.Recent(ctx, kind, limit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.Out, "No sessions recorded yet")
		return nil
	}

	color.New(color.Bold).Fprintf(a.Out, "\nRecent sessions (%s):\n", a.History.Path())
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tKIND\tSTATE\tATTEMPTS\tDURATION\tSUBJECT\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			e.Kind,
			e.State,
			attemptsColumn(e),
			e.Duration().Round(time.Millisecond),
			truncate(e.Subject, 40),
			truncate(firstLine(e.Detail), 50),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	stats, err := a.History.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load history stats: %w", err)
	}
	if footer := statsFooter(stats); footer != "" {
		fmt.Fprintf(a.Out, "\nDevelop sessions: %s\n", footer)
	}
	return nil
}

// statsFooter renders per-state counts, e.g. "3 SUCCEEDED, 1 EXHAUSTED".
func statsFooter(stats map[string]int) string {
	states := make([]string, 0, len(stats))
	for state := range stats {
		states = append(states, state)
	}
	sort.Strings(states)

	parts := make([]string, 0, len(states))
	for _, state := range states {
		parts = append(parts, fmt.Sprintf("%d %s", stats[state], state))
	}
	return strings.Join(parts, ", ")
}

func (a *App) record(ctx context.Context, e history.Entry) {
	if a.History == nil {
		return
	}
	if err := a.History.RecordEvent(ctx, e); err != nil {
		a.Log.LogWarn(fmt.Sprintf("Failed to record history: %v", err))
	}
}

func attemptsColumn(e history.Entry) string {
	if e.Kind != history.KindDevelop {
		return "-"
	}
	return fmt.Sprintf("%d (%d fixes)", e.Attempts, e.FixRequests)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
