package screen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/harrison/megacoder/internal/llm"
)

// Default watcher settings.
const (
	DefaultInterval      = 5 * time.Second
	DefaultTipsPerMinute = 6

	// Longest snippet sent with a tip request
	maxSnippetBytes = 8 * 1024
)

// Logger is the console surface used by the watcher.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogSuccess(message string)
}

// Tip is a model suggestion for one snippet of on-screen code.
type Tip struct {
	Code string
	Text string
	At   time.Time
}

// Stats counts what happened to each poll.
type Stats struct {
	Polls      int
	Duplicates int
	NonCode    int
	Throttled  int
	Tips       int
	Errors     int
}

// Watcher polls the screen until its context is cancelled.
type Watcher struct {
	Capturer Capturer
	OCR      OCR
	Backend  llm.Backend
	Interval time.Duration
	Limiter  *rate.Limiter
	Logger   Logger

	// OnTip, if set, receives every tip after it is printed.
	OnTip func(Tip)

	previous string
	stats    Stats
}

// NewWatcher creates a Watcher allowing tipsPerMinute tip requests.
func NewWatcher(capturer Capturer, ocr OCR, backend llm.Backend, interval time.Duration, tipsPerMinute int, logger Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if tipsPerMinute <= 0 {
		tipsPerMinute = DefaultTipsPerMinute
	}
	return &Watcher{
		Capturer: capturer,
		OCR:      ocr,
		Backend:  backend,
		Interval: interval,
		Limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(tipsPerMinute)), 1),
		Logger:   logger,
	}
}

// Stats returns the counters of the last Run.
func (w *Watcher) Stats() Stats {
	return w.stats
}

// Run polls immediately and then every Interval. Each iteration checks for
// cancellation first. Capture, OCR and model failures are logged and the
// loop carries on. Returns nil once ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "megacoder-screen-*")
	if err != nil {
		return fmt.Errorf("create screenshot directory: %w", err)
	}
	defer os.RemoveAll(dir)
	shot := filepath.Join(dir, "screen.png")

	w.previous = ""
	w.stats = Stats{}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Logger.LogInfo(fmt.Sprintf("Watching the screen every %v, press Ctrl-C to stop", w.Interval))
	for {
		if ctx.Err() != nil {
			return nil
		}

		w.poll(ctx, shot)

		select {
		case <-ctx.Done():
			w.Logger.LogInfo("Screen monitoring stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) poll(ctx context.Context, shot string) {
	w.stats.Polls++
	os.Remove(shot)

	if err := w.Capturer.Capture(ctx, shot); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.stats.Errors++
		w.Logger.LogWarn(fmt.Sprintf("Screen capture failed: %v", err))
		return
	}

	raw, err := w.OCR.Extract(ctx, shot)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.stats.Errors++
		w.Logger.LogWarn(fmt.Sprintf("OCR failed: %v", err))
		return
	}

	text := Normalize(raw)
	if text == w.previous {
		w.stats.Duplicates++
		return
	}
	if !LooksLikeCode(text) {
		w.stats.NonCode++
		w.previous = text
		w.Logger.LogDebug("No code on screen")
		return
	}

	if w.Limiter != nil && !w.Limiter.Allow() {
		// previous stays unchanged so this text is retried next poll
		w.stats.Throttled++
		w.Logger.LogDebug("Tip request throttled")
		return
	}
	w.previous = text

	snippet := clip(text, maxSnippetBytes)

	w.Logger.LogInfo("Code detected on screen, asking for tips...")
	tip, err := w.Backend.Generate(ctx, BuildTipPrompt(snippet))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.stats.Errors++
		w.Logger.LogWarn(fmt.Sprintf("Tip request failed: %v", err))
		return
	}

	w.stats.Tips++
	t := Tip{Code: snippet, Text: strings.TrimSpace(tip), At: time.Now()}
	w.Logger.LogSuccess("Coding tip:\n" + t.Text)
	if w.OnTip != nil {
		w.OnTip(t)
	}
}

// BuildTipPrompt renders the tip request for an OCR'd snippet.
func BuildTipPrompt(code string) string {
	var sb strings.Builder
	sb.WriteString("The following code was read from my screen with OCR, so it may contain recognition errors.\n")
	sb.WriteString("Give me up to three short, practical tips to improve it or fix bugs you can see.\n")
	sb.WriteString("Be concise. Do not rewrite the whole program.\n\n")
	sb.WriteString("--- CODE START ---\n")
	sb.WriteString(code)
	sb.WriteString("\n--- CODE END ---\n")
	return sb.String()
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
