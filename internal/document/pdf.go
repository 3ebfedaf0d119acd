package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PageContent 单页提取结果
type PageContent struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// pageSource 按页读取文本
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

// PDFExtractor 逐页提取 PDF 纯文本
type PDFExtractor struct {
	logger *zap.Logger
}

// NewPDFExtractor 创建 PDF 提取器
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExtractor{logger: logger}
}

// Format 返回格式
func (e *PDFExtractor) Format() Format {
	return FormatPDF
}

// Extract 提取文本。MaxPages 小于总页数时在开头标注提取范围，
// 每页以 "--- Page i ---" 开头，页与页之间空一行。
func (e *PDFExtractor) Extract(ctx context.Context, data []byte, opts Options) (string, error) {
	src, err := openPDF(data)
	if err != nil {
		return "", err
	}
	return e.render(ctx, src, opts.MaxPages)
}

// ExtractPages 返回逐页文本
func (e *PDFExtractor) ExtractPages(ctx context.Context, data []byte, opts Options) ([]PageContent, error) {
	src, err := openPDF(data)
	if err != nil {
		return nil, err
	}
	return e.pages(ctx, src, opts.MaxPages)
}

func (e *PDFExtractor) render(ctx context.Context, src pageSource, maxPages int) (string, error) {
	pages, err := e.pages(ctx, src, maxPages)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if total := src.NumPage(); len(pages) < total {
		fmt.Fprintf(&sb, "[Extracting %d of %d pages]\n\n", len(pages), total)
	}
	for _, p := range pages {
		fmt.Fprintf(&sb, "--- Page %d ---\n%s\n\n", p.PageNumber, p.Text)
	}

	return strings.TrimSpace(sb.String()), nil
}

func (e *PDFExtractor) pages(ctx context.Context, src pageSource, maxPages int) ([]PageContent, error) {
	total := src.NumPage()
	limit := total
	if maxPages > 0 && maxPages < total {
		limit = maxPages
	}

	e.logger.Debug("extracting pdf pages", zap.Int("pages", limit), zap.Int("total", total))

	pages := make([]PageContent, 0, limit)
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := src.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrPDFExtractionFailed, i, err)
		}
		pages = append(pages, PageContent{PageNumber: i, Text: normalizeSpaces(text)})
	}

	return pages, nil
}

// normalizeSpaces 合并行内连续空白，保留换行
func normalizeSpaces(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ledongthucSource 基于 github.com/ledongthuc/pdf 的页面读取
type ledongthucSource struct {
	reader *pdf.Reader
}

func openPDF(data []byte) (src pageSource, err error) {
	// 解析库在损坏的输入上可能 panic
	defer func() {
		if r := recover(); r != nil {
			src = nil
			err = fmt.Errorf("%w: %v", ErrPDFExtractionFailed, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFExtractionFailed, err)
	}
	return &ledongthucSource{reader: reader}, nil
}

func (s *ledongthucSource) NumPage() int {
	return s.reader.NumPage()
}

func (s *ledongthucSource) PageText(num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	page := s.reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
