package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/harrison/megacoder/internal/artifact"
	"github.com/harrison/megacoder/internal/llm"
	"github.com/harrison/megacoder/internal/sandbox"
	"github.com/harrison/megacoder/internal/transform"
)

// ErrNoDiff is returned when a model response carries no unified diff.
var ErrNoDiff = errors.New("response contains no unified diff")

// DefaultPatchFile is where proposed patches are saved.
const DefaultPatchFile = "megacoder.patch"

// Logger is the console surface used during analysis.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogSuccess(message string)
}

// FileStat summarizes one file of a patch.
type FileStat struct {
	Path    string
	Added   int
	Removed int
}

// Analysis is the result of one repository request.
type Analysis struct {
	Target    string
	Request   string
	Summary   string // full model response
	Patch     string // extracted unified diff, empty when none
	Files     []FileStat
	PatchPath string // where Patch was saved
	Applied   bool
	Truncated bool // the repository did not fit the prompt budget
}

// Added returns the total added lines across the patch.
func (a *Analysis) Added() int {
	n := 0
	for _, f := range a.Files {
		n += f.Added
	}
	return n
}

// Removed returns the total removed lines across the patch.
func (a *Analysis) Removed() int {
	n := 0
	for _, f := range a.Files {
		n += f.Removed
	}
	return n
}

// Analyzer sends flattened repositories to the deep model tier.
type Analyzer struct {
	Backend   llm.Backend
	Ingestor  *Ingestor
	OutputDir string // patch destination directory, "" = working directory
	Logger    Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(backend llm.Backend, ingestor *Ingestor, outputDir string, logger Logger) *Analyzer {
	return &Analyzer{Backend: backend, Ingestor: ingestor, OutputDir: outputDir, Logger: logger}
}

// Analyze ingests target, asks the model about request and extracts any
// patch from the answer. With apply set, a patch for a local directory is
// applied with git apply; remote clones are never modified.
func (a *Analyzer) Analyze(ctx context.Context, target, request string, apply bool) (*Analysis, error) {
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("repository request is empty")
	}

	a.Logger.LogInfo(fmt.Sprintf("Reading repository %s...", target))
	snap, err := a.Ingestor.Ingest(ctx, target)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	a.Logger.LogInfo(fmt.Sprintf("Flattened %d files (%d bytes, %d skipped)", len(snap.Files), len(snap.Text), len(snap.Skipped)))
	if snap.Truncated {
		a.Logger.LogWarn("Repository exceeds the prompt budget; later files were left out")
	}

	prompt := BuildPrompt(request, snap.Text)
	a.Logger.LogInfo(fmt.Sprintf("Sending repository to %s...", a.Backend.Name()))
	response, err := a.Backend.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("repository analysis failed: %w", err)
	}

	result := &Analysis{
		Target:    target,
		Request:   request,
		Summary:   strings.TrimSpace(response),
		Truncated: snap.Truncated,
	}

	patch, err := ExtractPatch(response)
	if errors.Is(err, ErrNoDiff) {
		a.Logger.LogDebug("No patch in model response")
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	files, err := ParsePatch(patch)
	if err != nil {
		a.Logger.LogWarn(fmt.Sprintf("Model proposed a patch that does not parse: %v", err))
		return result, nil
	}
	result.Patch = patch
	result.Files = files

	result.PatchPath = filepath.Join(a.OutputDir, DefaultPatchFile)
	if err := artifact.AtomicWrite(result.PatchPath, []byte(patch)); err != nil {
		return nil, fmt.Errorf("save patch: %w", err)
	}
	a.Logger.LogSuccess(fmt.Sprintf("Patch saved to %s (%d files, +%d -%d)", result.PatchPath, len(files), result.Added(), result.Removed()))

	if !apply {
		return result, nil
	}
	if !snap.Local {
		a.Logger.LogWarn("Patch not applied: target is a remote repository")
		return result, nil
	}

	patchAbs, err := filepath.Abs(result.PatchPath)
	if err != nil {
		return nil, fmt.Errorf("resolve patch path: %w", err)
	}
	if err := Apply(ctx, snap.Root, patchAbs); err != nil {
		a.Logger.LogWarn(fmt.Sprintf("Patch could not be applied: %v", err))
		return result, nil
	}
	result.Applied = true
	a.Logger.LogSuccess(fmt.Sprintf("Patch applied to %s", snap.Root))
	return result, nil
}

// BuildPrompt renders the analysis prompt for a flattened repository.
func BuildPrompt(request, flattened string) string {
	var sb strings.Builder
	sb.WriteString("You are reviewing the code repository below.\n\n")
	sb.WriteString("Request:\n\"\"\"")
	sb.WriteString(strings.TrimSpace(request))
	sb.WriteString("\"\"\"\n\n")
	sb.WriteString("First give a short summary of the repository and of what you would change.\n")
	sb.WriteString("If the request requires code changes, then give them as ONE unified diff\n")
	sb.WriteString("(paths relative to the repository root, a/ and b/ prefixes) inside a ```diff fence.\n\n")
	sb.WriteString(flattened)
	return sb.String()
}

// ExtractPatch finds a unified diff in a model response: a ```diff or
// ```patch fence first, otherwise a raw diff starting at "diff --git" or
// a "--- " / "+++ " header pair.
func ExtractPatch(response string) (string, error) {
	for _, b := range transform.FencedBlocks(response) {
		if b.Language == "diff" || b.Language == "patch" {
			if strings.TrimSpace(b.Code) != "" {
				return ensureNewline(b.Code), nil
			}
		}
	}

	lines := strings.Split(response, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") ||
			(strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ")) {
			body := strings.Join(lines[i:], "\n")
			// Drop a closing fence left over from an unlabelled block
			if idx := strings.Index(body, "\n```"); idx >= 0 {
				body = body[:idx]
			}
			return ensureNewline(body), nil
		}
	}
	return "", ErrNoDiff
}

func ensureNewline(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

// ParsePatch parses a unified diff into per-file line counts.
func ParsePatch(patch string) ([]FileStat, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}
	if len(fileDiffs) == 0 {
		return nil, ErrNoDiff
	}

	stats := make([]FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		name := fd.NewName
		if name == "" || name == "/dev/null" {
			name = fd.OrigName
		}
		name = strings.TrimPrefix(strings.TrimPrefix(name, "b/"), "a/")

		// go-diff folds an adjacent -/+ pair into one Changed line
		ds := fd.Stat()
		stats = append(stats, FileStat{
			Path:    name,
			Added:   int(ds.Added + ds.Changed),
			Removed: int(ds.Deleted + ds.Changed),
		})
	}
	return stats, nil
}

// Apply checks and applies patchPath inside dir with git apply.
func Apply(ctx context.Context, dir, patchPath string) error {
	if _, err := os.Stat(patchPath); err != nil {
		return fmt.Errorf("patch %s: %w", patchPath, err)
	}

	opts := sandbox.Options{Dir: dir, Timeout: time.Minute}
	if res := sandbox.Command(ctx, opts, "git", "apply", "--check", patchPath); !res.Succeeded() {
		return fmt.Errorf("git apply --check failed: %s", strings.TrimSpace(res.Stderr))
	}
	if res := sandbox.Command(ctx, opts, "git", "apply", patchPath); !res.Succeeded() {
		return fmt.Errorf("git apply failed: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}
