package loader

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// loadMarkdown strips markup, keeping text, code and table cells.
func loadMarkdown(_ context.Context, data []byte) ([]port.Section, error) {
	doc := markdown.Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Value(data))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(data))
				}
				sb.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		if !entering {
			switch {
			case n.Kind() == east.KindTableCell:
				sb.WriteByte('\t')
			case n.Kind() == east.KindTableRow || n.Kind() == east.KindTableHeader:
				sb.WriteByte('\n')
			case n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument:
				sb.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return []port.Section{{Text: sb.String()}}, nil
}
