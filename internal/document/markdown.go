package document

import (
	"context"
	"fmt"
	"strings"

	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor 从 Markdown AST 中提取正文
//
// 代码块与 HTML 块不含可翻译正文，直接跳过；数学公式按原文保留，
// 避免其中的下划线被解析成强调。
type MarkdownExtractor struct {
	md goldmark.Markdown
}

// NewMarkdownExtractor 创建 Markdown 提取器
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,   // 表格、删除线、自动链接
				mathjax.MathJax, // 数学公式
				meta.Meta,       // 元数据
			),
		),
	}
}

// Format 返回格式
func (e *MarkdownExtractor) Format() Format {
	return FormatMarkdown
}

// Extract 提取文本，front matter 中的 title 作为第一段
func (e *MarkdownExtractor) Extract(ctx context.Context, data []byte, _ Options) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMarkdownExtractionFailed, r)
		}
	}()

	pctx := parser.NewContext()
	root := e.md.Parser().Parse(text.NewReader(data), parser.WithContext(pctx))

	var blocks []string
	if metadata := meta.Get(pctx); metadata != nil {
		if title, ok := metadata["title"].(string); ok {
			blocks = append(blocks, title)
		}
	}

	walkErr := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if err := ctx.Err(); err != nil {
			return ast.WalkStop, err
		}

		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case mathjax.KindMathBlock:
			blocks = append(blocks, "$$\n"+strings.TrimSpace(string(n.Lines().Value(data)))+"\n$$")
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock:
			blocks = append(blocks, inlineText(n, data))
			return ast.WalkSkipChildren, nil
		}

		// 表格按行输出，单元格以 " | " 分隔
		if isTableRow(n) {
			var cells []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, strings.TrimSpace(inlineText(c, data)))
			}
			blocks = append(blocks, strings.Join(cells, " | "))
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if walkErr != nil {
		return "", walkErr
	}

	return joinBlocks(blocks), nil
}

func isTableRow(n ast.Node) bool {
	return n.Kind() == east.KindTableRow || n.Kind() == east.KindTableHeader
}

// inlineText 拼接内联节点的文本
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder

	var visit func(ast.Node)
	visit = func(node ast.Node) {
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			switch {
			case t.HardLineBreak():
				sb.WriteString("\n")
			case t.SoftLineBreak():
				sb.WriteString(" ")
			}
			return
		case *ast.String:
			sb.Write(t.Value)
			return
		case *ast.AutoLink:
			sb.Write(t.URL(source))
			return
		case *ast.RawHTML:
			return
		}

		if node.Kind() == mathjax.KindInlineMath {
			sb.WriteString("$")
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(source))
				}
			}
			sb.WriteString("$")
			return
		}

		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			visit(c)
		}
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		visit(c)
	}
	return strings.TrimSpace(sb.String())
}
