package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	unicodeX "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor 读取纯文本，自动识别常见编码
type TextExtractor struct {
	// fallbacks 非 UTF-8 输入依次尝试的编码
	fallbacks []encoding.Encoding
}

// NewTextExtractor 创建纯文本提取器
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{
		fallbacks: []encoding.Encoding{
			charmap.Windows1252,
			charmap.ISO8859_1,
		},
	}
}

// Format 返回格式
func (e *TextExtractor) Format() Format {
	return FormatText
}

// Extract 解码文本并统一换行符
func (e *TextExtractor) Extract(_ context.Context, data []byte, _ Options) (string, error) {
	decoded, err := e.decode(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTextExtractionFailed, err)
	}

	decoded = strings.ReplaceAll(decoded, "\r\n", "\n")
	decoded = strings.ReplaceAll(decoded, "\r", "\n")
	return decoded, nil
}

func (e *TextExtractor) decode(data []byte) (string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		data = data[len(utf8BOM):]
	}

	// 检查 UTF-16 BOM
	if len(data) >= 2 {
		switch {
		case data[0] == 0xFF && data[1] == 0xFE:
			return decodeWith(unicodeX.UTF16(unicodeX.LittleEndian, unicodeX.IgnoreBOM), data[2:])
		case data[0] == 0xFE && data[1] == 0xFF:
			return decodeWith(unicodeX.UTF16(unicodeX.BigEndian, unicodeX.IgnoreBOM), data[2:])
		}
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, enc := range e.fallbacks {
		res, err := decodeWith(enc, data)
		if err == nil && utf8.ValidString(res) {
			return res, nil
		}
	}

	return "", fmt.Errorf("unknown text encoding")
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	res, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(res), nil
}
