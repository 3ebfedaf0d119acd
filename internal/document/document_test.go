package document

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLExtractor_Extract(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Notícias</title><style>body { color: red; }</style></head>
<body>
  <script>alert("x")</script>
  <h1>Título   principal</h1>
  <p>Primeiro <b>parágrafo</b> com <a href="#">link</a>.</p>
  <p>Linha um<br>Linha dois</p>
  <ul><li>Item A</li><li>Item B</li></ul>
  <noscript>ative o javascript</noscript>
</body>
</html>`

	out, err := NewHTMLExtractor().Extract(context.Background(), []byte(page), Options{})
	require.NoError(t, err)

	expected := "Notícias\n\n" +
		"Título principal\n\n" +
		"Primeiro parágrafo com link.\n\n" +
		"Linha um\nLinha dois\n\n" +
		"Item A\n\n" +
		"Item B"
	assert.Equal(t, expected, out)
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "color")
}

func TestMarkdownExtractor_Extract(t *testing.T) {
	source := `---
title: Guia rápido
tags: [docs]
---

# Introdução

Este é um texto
com quebra suave e ` + "`código`" + ` inline.

- primeiro item
- segundo item

` + "```go\nfmt.Println(\"ignorado\")\n```" + `

A fórmula $a_b + c$ fica intacta.

| Nome | Valor |
| ---- | ----- |
| x    | 1     |
`

	out, err := NewMarkdownExtractor().Extract(context.Background(), []byte(source), Options{})
	require.NoError(t, err)

	blocks := strings.Split(out, "\n\n")
	require.GreaterOrEqual(t, len(blocks), 7)
	assert.Equal(t, "Guia rápido", blocks[0])
	assert.Equal(t, "Introdução", blocks[1])
	assert.Equal(t, "Este é um texto com quebra suave e código inline.", blocks[2])
	assert.Equal(t, "primeiro item", blocks[3])
	assert.Equal(t, "segundo item", blocks[4])
	assert.Contains(t, out, "$a_b + c$")
	assert.Contains(t, out, "Nome | Valor")
	assert.Contains(t, out, "x | 1")
	assert.NotContains(t, out, "ignorado")
	assert.NotContains(t, out, "tags")
}

func TestTextExtractor_Encodings(t *testing.T) {
	e := NewTextExtractor()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8", []byte("Olá\r\nmundo"), "Olá\nmundo"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Olá")...), "Olá"},
		{"latin1", []byte{'O', 'l', 0xE1, ' ', 'a', 0xE7, 0xE3, 'o'}, "Olá ação"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'O', 0, 'l', 0, 0xE1, 0}, "Olá"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'O', 0, 'l', 0, 0xE1}, "Olá"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Extract(context.Background(), tt.data, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRegistry_ForFile(t *testing.T) {
	r := NewRegistry(0, nil)
	assert.Equal(t, DefaultMaxFileSize, r.MaxFileSize())

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"report.PDF", nil, FormatPDF},
		{"contract.docx", nil, FormatDOCX},
		{"page.htm", nil, FormatHTML},
		{"README.md", nil, FormatMarkdown},
		{"notes.txt", nil, FormatText},
		{"upload", []byte("%PDF-1.4\n"), FormatPDF},
		{"upload", []byte("<!DOCTYPE html><html></html>"), FormatHTML},
		{"upload", []byte("apenas texto"), FormatText},
	}

	for _, tt := range tests {
		e, err := r.ForFile(tt.name, tt.data)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.format, e.Format(), tt.name)
	}

	_, err := r.ForFile("slides.pptx", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.ForFile("blob", []byte{0x00, 0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.Contains(t, r.Extensions(), "docx")
	assert.Contains(t, r.Extensions(), "markdown")
}

func TestRegistry_Extract(t *testing.T) {
	r := NewRegistry(16, nil)

	out, err := r.Extract(context.Background(), "a.txt", []byte("  Olá mundo.  \n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "Olá mundo.", out)

	_, err = r.Extract(context.Background(), "a.txt", []byte(strings.Repeat("x", 17)), Options{})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = r.Extract(context.Background(), "a.txt", []byte(" \n\t "), Options{})
	assert.ErrorIs(t, err, ErrNoText)

	_, err = r.Extract(context.Background(), "a.pdf", []byte("not a pdf"), Options{})
	assert.ErrorIs(t, err, ErrPDFExtractionFailed)
}
