package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// wordNamespace WordprocessingML 主命名空间
const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// documentPart 正文所在的包内路径
const documentPart = "word/document.xml"

// DOCXExtractor extracts the raw text of a DOCX body, paragraph by paragraph.
type DOCXExtractor struct{}

// NewDOCXExtractor creates a DOCX extractor
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

// Format 返回格式
func (e *DOCXExtractor) Format() Format {
	return FormatDOCX
}

// Extract streams word/document.xml. Text runs are concatenated, tabs become "\t",
// line breaks "\n", page breaks and paragraph ends a blank line.
func (e *DOCXExtractor) Extract(ctx context.Context, data []byte, _ Options) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDOCXExtractionFailed, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("%w: %s not found", ErrDOCXExtractionFailed, documentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDOCXExtractionFailed, err)
	}
	defer rc.Close()

	text, err := extractBodyText(ctx, rc)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrDOCXExtractionFailed, err)
	}
	return text, nil
}

// extractBodyText walks the XML token stream
func extractBodyText(ctx context.Context, r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		sb        strings.Builder
		paragraph strings.Builder
		inText    bool
		blocks    []string
		tokens    int
	)

	flush := func() {
		blocks = append(blocks, paragraph.String())
		paragraph.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		tokens++
		if tokens%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteString("\t")
			case "br":
				if attr(t, "type") == "page" {
					paragraph.WriteString("\n\n")
				} else {
					paragraph.WriteString("\n")
				}
			case "cr":
				paragraph.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	if paragraph.Len() > 0 {
		flush()
	}

	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(b)
	}
	return strings.TrimSpace(sb.String()), nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
