// Package markdown converts model replies written in markdown into plain text.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Flattener strips markdown syntax while keeping the readable text.
type Flattener struct {
	parser goldmark.Markdown
}

// NewFlattener creates a Flattener backed by a CommonMark goldmark parser.
func NewFlattener() *Flattener {
	return &Flattener{parser: goldmark.New()}
}

// Flatten returns the text content of source with markup removed.
// Each block (paragraph, heading, list item, code block) becomes one line of
// whitespace-collapsed text; blocks are separated by a blank line.
func (f *Flattener) Flatten(source string) string {
	src := []byte(source)
	doc := f.parser.Parser().Parse(text.NewReader(src))

	var (
		blocks []string
		cur    strings.Builder
	)
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			blocks = append(blocks, s)
		}
		cur.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				cur.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					cur.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				cur.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					cur.Write(seg.Value(src))
				}
				flush()
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		default:
			// Block boundaries end the current line of text.
			if !entering && n.Type() == ast.TypeBlock {
				flush()
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(blocks, "\n\n")
}
