package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/megacoder/internal/models"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunnerSuccess(t *testing.T) {
	path := writeScript(t, "echo out\necho err >&2\n")
	r := NewRunner([]string{"sh"}, 0)

	res := r.Run(context.Background(), path)

	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRunnerNonZeroExit(t *testing.T) {
	path := writeScript(t, "echo 'NameError: name x is not defined' >&2\nexit 3\n")
	r := NewRunner([]string{"sh"}, 0)

	res := r.Run(context.Background(), path)

	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Succeeded())
	assert.False(t, res.LaunchFailed())
	assert.Contains(t, res.Stderr, "NameError")
}

func TestRunnerDoesNotReadStdin(t *testing.T) {
	// read returns immediately on the null device instead of blocking
	path := writeScript(t, "read line\necho \"got:$line\"\n")
	r := NewRunner([]string{"sh"}, 5*time.Second)

	res := r.Run(context.Background(), path)

	assert.Equal(t, "got:\n", res.Stdout)
	assert.NotEqual(t, TimeoutExitCode, res.ExitCode)
}

func TestRunnerLaunchFailure(t *testing.T) {
	r := NewRunner([]string{"definitely-not-an-interpreter-xyz"}, 0)

	res := r.Run(context.Background(), "whatever.py")

	assert.Equal(t, models.LaunchFailedExitCode, res.ExitCode)
	assert.True(t, res.LaunchFailed())
	assert.Empty(t, res.Stdout)
	assert.NotEmpty(t, res.Stderr)
	assert.Equal(t, time.Duration(0), res.Duration)
}

func TestRunnerTimeout(t *testing.T) {
	path := writeScript(t, "exec sleep 5\n")
	r := NewRunner([]string{"sh"}, 100*time.Millisecond)

	res := r.Run(context.Background(), path)

	assert.Equal(t, TimeoutExitCode, res.ExitCode)
	assert.Contains(t, res.Stderr, "timed out")
}

func TestCommandEmptyArgv(t *testing.T) {
	res := Command(context.Background(), Options{})
	assert.True(t, res.LaunchFailed())
}

func TestCommandWorkDir(t *testing.T) {
	dir := t.TempDir()
	res := Command(context.Background(), Options{Dir: dir}, "pwd")
	require.True(t, res.Succeeded())

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(filepath.Clean(res.Stdout[:len(res.Stdout)-1]))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
