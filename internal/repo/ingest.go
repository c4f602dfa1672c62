// Package repo flattens a code repository into one prompt-sized text blob
// and asks the deep model tier to summarize or patch it.
package repo

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harrison/megacoder/internal/sandbox"
)

// Defaults used when an Ingestor field is zero.
const (
	DefaultMaxFileBytes  = 256 * 1024
	DefaultMaxTotalBytes = 2 * 1024 * 1024
	DefaultCloneTimeout  = 5 * time.Minute

	// Bytes sniffed for the binary check
	sniffLen = 8000
)

// DefaultExcludeDirs are never descended into.
var DefaultExcludeDirs = []string{".git", "node_modules", "vendor", "__pycache__", ".venv"}

// Snapshot is a flattened repository.
type Snapshot struct {
	Target    string   // what the user asked for
	Root      string   // directory that was walked
	Local     bool     // Root is the user's own directory, not a temp clone
	Files     []string // included files, slash-separated, relative to Root
	Skipped   []string // files left out as binary or oversized
	Truncated bool     // MaxTotalBytes cut the blob short
	Text      string

	cleanup func()
}

// Close removes a temporary clone. Safe on local snapshots.
func (s *Snapshot) Close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Ingestor walks and flattens repositories.
type Ingestor struct {
	MaxFileBytes  int64
	MaxTotalBytes int64
	ExcludeDirs   []string
	CloneTimeout  time.Duration
}

// NewIngestor creates an Ingestor, filling zero values with defaults.
func NewIngestor(maxFileBytes, maxTotalBytes int64, excludeDirs []string) *Ingestor {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	if maxTotalBytes <= 0 {
		maxTotalBytes = DefaultMaxTotalBytes
	}
	if len(excludeDirs) == 0 {
		excludeDirs = DefaultExcludeDirs
	}
	return &Ingestor{
		MaxFileBytes:  maxFileBytes,
		MaxTotalBytes: maxTotalBytes,
		ExcludeDirs:   excludeDirs,
		CloneTimeout:  DefaultCloneTimeout,
	}
}

// IsRemote reports whether target names a git remote rather than a local path.
func IsRemote(target string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "git@"} {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

// Ingest resolves target (git URL or local directory) and flattens it.
// Remote targets are shallow-cloned into a temp directory which the
// caller releases with Snapshot.Close.
func (in *Ingestor) Ingest(ctx context.Context, target string) (*Snapshot, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("repository target is empty")
	}

	snap := &Snapshot{Target: target}

	if IsRemote(target) {
		dir, err := in.clone(ctx, target)
		if err != nil {
			return nil, err
		}
		snap.Root = dir
		snap.cleanup = func() { os.RemoveAll(dir) }
	} else {
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", target, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", target, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("repository %s is not a directory", target)
		}
		snap.Root = abs
		snap.Local = true
	}

	if err := in.flatten(ctx, snap); err != nil {
		snap.Close()
		return nil, err
	}
	return snap, nil
}

func (in *Ingestor) clone(ctx context.Context, url string) (string, error) {
	dir, err := os.MkdirTemp("", "megacoder-repo-*")
	if err != nil {
		return "", fmt.Errorf("create clone directory: %w", err)
	}

	res := sandbox.Command(ctx, sandbox.Options{Timeout: in.CloneTimeout},
		"git", "clone", "--depth", "1", "--quiet", url, dir)
	if !res.Succeeded() {
		os.RemoveAll(dir)
		return "", fmt.Errorf("git clone %s failed (exit %d): %s", url, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return dir, nil
}

type fileEntry struct {
	rel     string
	content []byte
}

func (in *Ingestor) flatten(ctx context.Context, snap *Snapshot) error {
	excluded := make(map[string]bool, len(in.ExcludeDirs))
	for _, d := range in.ExcludeDirs {
		excluded[d] = true
	}

	var entries []fileEntry
	err := filepath.WalkDir(snap.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != snap.Root && excluded[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(snap.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > in.MaxFileBytes {
			snap.Skipped = append(snap.Skipped, rel)
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		if IsBinary(content) {
			snap.Skipped = append(snap.Skipped, rel)
			return nil
		}
		entries = append(entries, fileEntry{rel: rel, content: content})
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", snap.Root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Repository: %s\n\nFiles:\n", snap.Target)
	for _, e := range entries {
		fmt.Fprintf(&buf, "  %s\n", e.rel)
	}
	buf.WriteByte('\n')

	for _, e := range entries {
		section := fmt.Sprintf("==== %s ====\n", e.rel)
		if int64(buf.Len()+len(section)+len(e.content)+1) > in.MaxTotalBytes {
			snap.Truncated = true
			break
		}
		buf.WriteString(section)
		buf.Write(e.content)
		if len(e.content) == 0 || e.content[len(e.content)-1] != '\n' {
			buf.WriteByte('\n')
		}
		snap.Files = append(snap.Files, e.rel)
	}
	if snap.Truncated {
		fmt.Fprintf(&buf, "==== truncated: %d of %d files included ====\n", len(snap.Files), len(entries))
	}

	snap.Text = buf.String()
	return nil
}

// IsBinary sniffs content for NUL bytes or invalid UTF-8.
func IsBinary(content []byte) bool {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
		// Do not split a multi-byte rune at the cut
		for i := 0; i < utf8.UTFMax && len(head) > 0 && !utf8.RuneStart(content[len(head)]); i++ {
			head = head[:len(head)-1]
		}
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	return !utf8.Valid(head)
}
