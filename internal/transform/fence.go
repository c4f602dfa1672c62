package transform

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Block is one fenced code block found in a model response.
type Block struct {
	Language string // info string, e.g. "python" or "diff"; may be empty
	Code     string
}

// StripFences extracts program text from a model response. When the
// response holds a fenced code block, the first block's content is
// returned. Otherwise leading and trailing ``` marker lines are dropped.
func StripFences(response string) string {
	if blocks := FencedBlocks(response); len(blocks) > 0 {
		return strings.TrimSpace(blocks[0].Code)
	}
	return stripMarkerLines(response)
}

// FencedBlocks returns every fenced code block of a markdown response in
// document order.
func FencedBlocks(response string) []Block {
	if !strings.Contains(response, "```") && !strings.Contains(response, "~~~") {
		return nil
	}

	source := []byte(response)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var blocks []Block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		blocks = append(blocks, Block{
			Language: strings.ToLower(string(fenced.Language(source))),
			Code:     buf.String(),
		})
		return ast.WalkSkipChildren, nil
	})

	return blocks
}

func stripMarkerLines(response string) string {
	lines := strings.Split(strings.TrimSpace(response), "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
