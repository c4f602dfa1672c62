package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/megacoder/internal/models"
)

func TestFileLoggerWritesRunLog(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLogger(dir, "info")
	require.NoError(t, err)

	fl.LogInfo("generating")
	fl.LogDebug("hidden")
	fl.LogSuccess("done")
	fl.LogAttempt(1, 5)
	fl.LogProgramOutput("line1\nline2\n")
	fl.LogSummary(models.Summary{SessionID: "s-1", State: models.StateSucceeded})
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.RunFile())
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "=== megacoder run log ===")
	assert.Contains(t, out, "[INFO] generating")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[SUCCESS] done")
	assert.Contains(t, out, "run attempt 1/5")
	assert.Contains(t, out, "    line1\n    line2\n")
	assert.Contains(t, out, "Session: s-1")
	assert.NotContains(t, out, "\x1b[", "file log must never contain ANSI codes")

	target, err := os.Readlink(filepath.Join(dir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.RunFile()), target)
}

func TestFileLoggerCloseTwice(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "info")
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	assert.NoError(t, fl.Close())
	fl.LogInfo("after close is dropped")
}

func TestMultiFansOut(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	m := NewMulti(NewConsoleLogger(a, "info"), nil, NewConsoleLogger(b, "info"))
	require.Len(t, m, 2)

	m.LogWarn("both")
	m.LogSummary(models.Summary{SessionID: "x"})

	for _, buf := range []*bytes.Buffer{a, b} {
		assert.True(t, strings.Contains(buf.String(), "[WARN] both"))
		assert.True(t, strings.Contains(buf.String(), "Session: x"))
	}
}
