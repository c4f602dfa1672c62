package screen

import (
	"strings"
	"unicode"
)

// codeMarkers are fragments that rarely show up in prose.
var codeMarkers = []string{
	"def ", "class ", "import ", "from ", "func ", "return", "package ",
	"#include", "=>", "->", "==", "!=", "{", "}", "();", "const ", "let ",
	"var ", "fn ", "public ", "private ", "static ", "async ", "await ",
	"elif ", "print(", "console.log", "self.", "this.", "#!/",
}

// LooksLikeCode reports whether OCR text plausibly shows source code:
// at least two distinct markers, or one marker plus a line ending in
// ':', '{' or ';'.
func LooksLikeCode(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	hits := 0
	for _, m := range codeMarkers {
		if strings.Contains(text, m) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	if hits == 0 {
		return false
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.HasSuffix(line, ":") || strings.HasSuffix(line, "{") || strings.HasSuffix(line, ";") {
			return true
		}
	}
	return false
}

// Normalize trims trailing whitespace per line and drops blank lines so
// OCR jitter does not defeat duplicate detection.
func Normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
