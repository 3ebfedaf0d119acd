// Package document 从上传的文档中提取纯文本，供翻译流水线使用
package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// 预定义错误
var (
	ErrPDFExtractionFailed      = errors.New("failed to process PDF")
	ErrDOCXExtractionFailed     = errors.New("failed to process DOCX")
	ErrHTMLExtractionFailed     = errors.New("failed to process HTML")
	ErrMarkdownExtractionFailed = errors.New("failed to process Markdown")
	ErrTextExtractionFailed     = errors.New("failed to decode text")
	ErrUnsupportedFormat        = errors.New("unsupported document format")
	ErrFileTooLarge             = errors.New("file too large")
	ErrNoText                   = errors.New("document contains no extractable text")
)

// DefaultMaxFileSize 默认文件大小上限（10 MiB）
const DefaultMaxFileSize int64 = 10 << 20

// Format 文档格式
type Format string

// 支持的格式
const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Options 单次提取选项
type Options struct {
	// MaxPages PDF 最多提取的页数，0 表示全部
	MaxPages int
}

// Extractor 文本提取器
type Extractor interface {
	Format() Format
	Extract(ctx context.Context, data []byte, opts Options) (string, error)
}

// Registry 按扩展名查找提取器
type Registry struct {
	mu          sync.RWMutex
	extractors  map[Format]Extractor
	extensions  map[string]Format
	maxFileSize int64
	logger      *zap.Logger
}

// NewRegistry 创建注册了全部内置提取器的注册表
func NewRegistry(maxFileSize int64, logger *zap.Logger) *Registry {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		extractors:  make(map[Format]Extractor),
		extensions:  make(map[string]Format),
		maxFileSize: maxFileSize,
		logger:      logger,
	}

	r.Register(NewPDFExtractor(logger), "pdf")
	r.Register(NewDOCXExtractor(), "docx")
	r.Register(NewHTMLExtractor(), "html", "htm", "xhtml")
	r.Register(NewMarkdownExtractor(), "md", "markdown")
	r.Register(NewTextExtractor(), "txt", "text")

	return r
}

// Register 注册提取器及其扩展名，已存在的同格式提取器会被替换
func (r *Registry) Register(e Extractor, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors[e.Format()] = e
	for _, ext := range exts {
		// 标准化扩展名（去除点号，转小写）
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		r.extensions[ext] = e.Format()
	}
}

// MaxFileSize 返回文件大小上限
func (r *Registry) MaxFileSize() int64 {
	return r.maxFileSize
}

// Extensions 返回已注册的扩展名（已排序）
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ForFile 根据文件名选择提取器，无扩展名时根据内容嗅探
func (r *Registry) ForFile(name string, data []byte) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext != "" {
		format, ok := r.extensions[ext]
		if !ok {
			return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
		}
		return r.extractors[format], nil
	}

	format, ok := sniffFormat(data)
	if !ok {
		return nil, fmt.Errorf("%w: cannot detect format of %q", ErrUnsupportedFormat, name)
	}
	e, ok := r.extractors[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return e, nil
}

// Extract 检查大小、选择提取器并返回去除首尾空白的文本
func (r *Registry) Extract(ctx context.Context, name string, data []byte, opts Options) (string, error) {
	if int64(len(data)) > r.maxFileSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrFileTooLarge, len(data), r.maxFileSize)
	}

	e, err := r.ForFile(name, data)
	if err != nil {
		return "", err
	}

	text, err := e.Extract(ctx, data, opts)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}

	r.logger.Debug("document extracted",
		zap.String("file", name),
		zap.String("format", string(e.Format())),
		zap.Int("bytes", len(data)),
		zap.Int("chars", len([]rune(text))))

	return text, nil
}

// sniffFormat 使用 http.DetectContentType 猜测格式
func sniffFormat(data []byte) (Format, bool) {
	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "application/pdf"):
		return FormatPDF, true
	case strings.HasPrefix(contentType, "application/zip"):
		return FormatDOCX, true
	case strings.HasPrefix(contentType, "text/html"):
		return FormatHTML, true
	case strings.HasPrefix(contentType, "text/plain"):
		return FormatText, true
	}
	return "", false
}

// joinBlocks 用空行连接非空块
func joinBlocks(blocks []string) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}
