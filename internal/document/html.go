package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skippedSelector 不包含可翻译正文的元素
const skippedSelector = "script, style, noscript, template, svg, iframe, head"

// blockAtoms 结束后产生段落分隔的元素
var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Main: true, atom.Aside: true, atom.Nav: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Dt: true, atom.Dd: true, atom.Blockquote: true, atom.Pre: true,
	atom.Tr: true, atom.Table: true, atom.Figcaption: true, atom.Caption: true,
	atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Hr: true,
}

// HTMLExtractor 提取 HTML 可见文本
type HTMLExtractor struct{}

// NewHTMLExtractor 创建 HTML 提取器
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Format 返回格式
func (e *HTMLExtractor) Format() Format {
	return FormatHTML
}

// Extract 提取正文，块级元素之间空一行，<br> 换行，脚本与样式跳过
func (e *HTMLExtractor) Extract(ctx context.Context, data []byte, _ Options) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLExtractionFailed, err)
	}

	title := strings.TrimSpace(doc.Find("head > title").First().Text())
	doc.Find(skippedSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var w blockWriter
	if title != "" {
		w.text(title)
		w.block()
	}
	for _, n := range root.Nodes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		w.walk(n)
	}

	return w.String(), nil
}

// blockWriter 收集文本并在块边界处插入分隔
type blockWriter struct {
	blocks  []string
	current strings.Builder
}

func (w *blockWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			w.current.WriteString("\n")
			return
		}
	}

	isBlock := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
	if isBlock {
		w.block()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if isBlock {
		w.block()
	}
}

// text 折叠空白后追加
func (w *blockWriter) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && w.current.Len() > 0 {
			w.space()
		}
		return
	}

	if startsWithSpace(s) {
		w.space()
	}
	w.current.WriteString(strings.Join(fields, " "))
	if endsWithSpace(s) {
		w.current.WriteString(" ")
	}
}

func (w *blockWriter) space() {
	cur := w.current.String()
	if cur != "" && !strings.HasSuffix(cur, " ") && !strings.HasSuffix(cur, "\n") {
		w.current.WriteString(" ")
	}
}

func (w *blockWriter) block() {
	lines := strings.Split(w.current.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	if b := strings.TrimSpace(strings.Join(lines, "\n")); b != "" {
		w.blocks = append(w.blocks, b)
	}
	w.current.Reset()
}

func (w *blockWriter) String() string {
	w.block()
	return joinBlocks(w.blocks)
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\r\n") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\r\n") != s
}
