package repo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/megacoder/internal/llm"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"https://github.com/user/repo", true},
		{"git@github.com:user/repo.git", true},
		{"ssh://git@host/repo", true},
		{"./myproject", false},
		{"/home/me/repo", false},
		{"repo.git", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRemote(tt.target), tt.target)
	}
}

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary([]byte("package main\n")))
	assert.False(t, IsBinary([]byte("héllo wörld")))
	assert.True(t, IsBinary([]byte{0x89, 'P', 'N', 'G', 0, 0}))
	assert.True(t, IsBinary([]byte{0xff, 0xfe, 0xfd}))
	assert.False(t, IsBinary(nil))

	// A multi-byte rune straddling the sniff boundary is still text
	long := strings.Repeat("a", sniffLen-1) + "é" + "tail"
	assert.False(t, IsBinary([]byte(long)))
}

func TestIngestLocalDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":                 "print('hi')\n",
		"pkg/util.py":             "def f():\n    return 1",
		"node_modules/dep/x.js":   "module.exports = 1\n",
		".git/HEAD":               "ref: refs/heads/main\n",
		"assets/logo.png":         "\x89PNG\x00\x00",
		"data/big.txt":            strings.Repeat("x", 200),
		"README.md":               "# demo\n",
	})

	in := NewIngestor(100, 0, nil)
	snap, err := in.Ingest(context.Background(), root)
	require.NoError(t, err)
	defer snap.Close()

	assert.True(t, snap.Local)
	assert.Equal(t, root, snap.Root)
	assert.Equal(t, []string{"README.md", "main.py", "pkg/util.py"}, snap.Files)
	assert.ElementsMatch(t, []string{"assets/logo.png", "data/big.txt"}, snap.Skipped)
	assert.False(t, snap.Truncated)

	assert.True(t, strings.HasPrefix(snap.Text, "Repository: "+root+"\n\nFiles:\n  README.md\n  main.py\n  pkg/util.py\n\n"))
	assert.Contains(t, snap.Text, "==== main.py ====\nprint('hi')\n")
	assert.Contains(t, snap.Text, "==== pkg/util.py ====\ndef f():\n    return 1\n")
	assert.NotContains(t, snap.Text, "module.exports")
	assert.NotContains(t, snap.Text, "refs/heads")
}

func TestIngestTruncatesAtBudget(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": strings.Repeat("a", 60) + "\n",
		"b.py": strings.Repeat("b", 60) + "\n",
		"c.py": strings.Repeat("c", 60) + "\n",
	})

	in := NewIngestor(0, 200, nil)
	snap, err := in.Ingest(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, snap.Truncated)
	assert.Less(t, len(snap.Files), 3)
	assert.Contains(t, snap.Text, "==== truncated:")
}

func TestIngestErrors(t *testing.T) {
	in := NewIngestor(0, 0, nil)

	_, err := in.Ingest(context.Background(), "  ")
	assert.Error(t, err)

	_, err = in.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.py")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = in.Ingest(context.Background(), file)
	assert.Error(t, err)
}

func TestIngestCloneFailure(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	in := NewIngestor(0, 0, nil)
	_, err := in.Ingest(context.Background(), "file:///definitely/not/a/repo")
	// file:// is not a recognised remote prefix, so this is a missing local path
	assert.Error(t, err)

	_, err = in.Ingest(context.Background(), "https://127.0.0.1:1/none.git")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git clone")
}

const samplePatch = `diff --git a/main.py b/main.py
--- a/main.py
+++ b/main.py
@@ -1 +1,2 @@
-print('hi')
+print('hello')
+print('world')
`

func TestExtractPatch(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  error
	}{
		{
			name:     "diff fence",
			response: "The program greets.\n\n```diff\n" + samplePatch + "```\n",
			want:     samplePatch,
		},
		{
			name:     "raw diff after summary",
			response: "Summary.\n\n" + samplePatch,
			want:     samplePatch,
		},
		{
			name:     "header pair without diff --git",
			response: "x\n--- a/f.py\n+++ b/f.py\n@@ -1 +1 @@\n-a\n+b",
			want:     "--- a/f.py\n+++ b/f.py\n@@ -1 +1 @@\n-a\n+b\n",
		},
		{
			name:     "unlabelled fence",
			response: "```\n" + samplePatch + "```",
			want:     samplePatch,
		},
		{
			name:     "summary only",
			response: "This repository is a small CLI. No changes needed.",
			wantErr:  ErrNoDiff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPatch(tt.response)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePatch(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		want  []FileStat
	}{
		{
			name:  "replace and add",
			patch: samplePatch,
			want:  []FileStat{{Path: "main.py", Added: 2, Removed: 1}},
		},
		{
			name: "content lines that look like file headers",
			patch: "--- a/loop.c\n+++ b/loop.c\n@@ -1,2 +1,2 @@\n---i;\n x = 1;\n+++i;\n",
			want: []FileStat{{Path: "loop.c", Added: 1, Removed: 1}},
		},
		{
			name:  "sql comment removed",
			patch: "--- a/q.sql\n+++ b/q.sql\n@@ -1,2 +1 @@\n--- old note\n SELECT 1;\n",
			want:  []FileStat{{Path: "q.sql", Added: 0, Removed: 1}},
		},
		{
			name:  "new file",
			patch: "--- /dev/null\n+++ b/new.txt\n@@ -0,0 +1,2 @@\n+one\n+two\n",
			want:  []FileStat{{Path: "new.txt", Added: 2, Removed: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := ParsePatch(tt.patch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats)
		})
	}

	_, err := ParsePatch("")
	assert.ErrorIs(t, err, ErrNoDiff)
}

type quietLogger struct{ lines []string }

func (q *quietLogger) LogDebug(m string)   { q.lines = append(q.lines, "DEBUG: "+m) }
func (q *quietLogger) LogInfo(m string)    { q.lines = append(q.lines, "INFO: "+m) }
func (q *quietLogger) LogWarn(m string)    { q.lines = append(q.lines, "WARN: "+m) }
func (q *quietLogger) LogSuccess(m string) { q.lines = append(q.lines, "SUCCESS: "+m) }

func TestAnalyzeSummaryOnly(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "print('hi')\n"})

	var prompt string
	backend := llm.Func(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "A one-file greeting program.", nil
	})

	a := NewAnalyzer(backend, NewIngestor(0, 0, nil), t.TempDir(), &quietLogger{})
	res, err := a.Analyze(context.Background(), root, "Summarize this repo", false)
	require.NoError(t, err)

	assert.Equal(t, "A one-file greeting program.", res.Summary)
	assert.Empty(t, res.Patch)
	assert.Empty(t, res.PatchPath)
	assert.Contains(t, prompt, `"""Summarize this repo"""`)
	assert.Contains(t, prompt, "==== main.py ====")
}

func TestAnalyzeSavesPatch(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "print('hi')\n"})
	out := t.TempDir()
	backend := llm.Func(func(ctx context.Context, p string) (string, error) {
		return "Changing the greeting.\n\n```diff\n" + samplePatch + "```", nil
	})

	a := NewAnalyzer(backend, NewIngestor(0, 0, nil), out, &quietLogger{})
	res, err := a.Analyze(context.Background(), root, "Say hello world", false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, DefaultPatchFile), res.PatchPath)
	assert.Equal(t, 2, res.Added())
	assert.Equal(t, 1, res.Removed())
	assert.False(t, res.Applied)

	saved, err := os.ReadFile(res.PatchPath)
	require.NoError(t, err)
	assert.Equal(t, samplePatch, string(saved))

	original, err := os.ReadFile(filepath.Join(root, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(original), "without apply the repo is untouched")
}

func TestAnalyzeAppliesPatchToLocalDir(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := writeTree(t, map[string]string{"main.py": "print('hi')\n"})
	backend := llm.Func(func(ctx context.Context, p string) (string, error) {
		return samplePatch, nil
	})

	a := NewAnalyzer(backend, NewIngestor(0, 0, nil), t.TempDir(), &quietLogger{})
	res, err := a.Analyze(context.Background(), root, "Say hello world", true)
	require.NoError(t, err)
	require.True(t, res.Applied)

	updated, err := os.ReadFile(filepath.Join(root, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hello')\nprint('world')\n", string(updated))
}

func TestAnalyzeBackendError(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "x = 1\n"})
	down := errors.New("503")
	backend := llm.Func(func(ctx context.Context, p string) (string, error) { return "", down })

	a := NewAnalyzer(backend, NewIngestor(0, 0, nil), t.TempDir(), &quietLogger{})
	_, err := a.Analyze(context.Background(), root, "anything", false)
	assert.ErrorIs(t, err, down)

	_, err = a.Analyze(context.Background(), root, "  ", false)
	assert.Error(t, err)
}
