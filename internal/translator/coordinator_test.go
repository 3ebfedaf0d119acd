package translator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// upperBackend 把片段转成大写，便于断言
type upperBackend struct {
	requests []*translation.SegmentRequest
}

func (b *upperBackend) GetName() string { return "upper" }

func (b *upperBackend) Initialize(ctx context.Context, onLoad translation.LoadProgressFunc) error {
	onLoad(50)
	return nil
}

func (b *upperBackend) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	b.requests = append(b.requests, req)
	return strings.ToUpper(req.Text), nil
}

func newTestCoordinator(t *testing.T) (*TranslationCoordinator, *upperBackend) {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.PacingDelay = 0
	c, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)

	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600)) }
	c.newID = func() string { return "fixed-id" }

	backend := &upperBackend{}
	return c, backend
}

func TestCoordinator_NotReady(t *testing.T) {
	c, _ := newTestCoordinator(t)
	assert.False(t, c.Ready())
	assert.Nil(t, c.Session())

	_, err := c.Translate(context.Background(), Request{Text: "Olá."}, Hooks{})
	assert.ErrorIs(t, err, translation.ErrNotReady)
}

func TestCoordinator_TranslateText(t *testing.T) {
	c, backend := newTestCoordinator(t)

	var loads []int
	require.NoError(t, c.Load(context.Background(), backend, func(p int) { loads = append(loads, p) }))
	assert.Equal(t, []int{50, 100}, loads)
	assert.True(t, c.Ready())

	var progress []int
	var extracted int
	res, err := c.Translate(context.Background(), Request{Text: "Olá mundo. Tudo bem?"}, Hooks{
		OnExtracted: func(chars int) { extracted = chars },
		OnProgress:  func(current, total int) { progress = append(progress, current) },
	})
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", res.ID)
	assert.Equal(t, "OLÁ MUNDO. TUDO BEM?", res.TranslatedText)
	assert.Equal(t, "Olá mundo. Tudo bem?", res.OriginalText)
	assert.Equal(t, "por_Latn", res.SourceLang)
	assert.Equal(t, "eng_Latn", res.TargetLang)
	assert.Equal(t, "pt", res.SourceCode)
	assert.Equal(t, "en", res.TargetCode)
	assert.Equal(t, 1, res.Segments)
	assert.Equal(t, []int{1}, progress)
	assert.Equal(t, 20, extracted)
	assert.Equal(t, time.UTC, res.Timestamp.Location())
	assert.Equal(t, 15, res.Timestamp.Hour())

	require.Len(t, backend.requests, 1)
	assert.Equal(t, "pt", backend.requests[0].Source)
	assert.Equal(t, "en", backend.requests[0].Target)
}

func TestCoordinator_TranslateFile(t *testing.T) {
	c, backend := newTestCoordinator(t)
	require.NoError(t, c.Load(context.Background(), backend, nil))

	res, err := c.Translate(context.Background(), Request{
		FileName:   "nota.txt",
		Data:       []byte("Bonjour.\n"),
		SourceLang: "fra_Latn",
		TargetLang: "deu_Latn",
	}, Hooks{})
	require.NoError(t, err)

	assert.Equal(t, "nota.txt", res.FileName)
	assert.Equal(t, "Bonjour.", res.OriginalText)
	assert.Equal(t, "BONJOUR.", res.TranslatedText)
	assert.Equal(t, "fr", res.SourceCode)
	assert.Equal(t, "de", res.TargetCode)
}

func TestCoordinator_SameLanguage(t *testing.T) {
	c, backend := newTestCoordinator(t)
	require.NoError(t, c.Load(context.Background(), backend, nil))

	res, err := c.Translate(context.Background(), Request{Text: "Hello.", SourceLang: "eng_Latn", TargetLang: "eng_Latn"}, Hooks{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "Hello.", res.TranslatedText)
	assert.Empty(t, backend.requests)
}

func TestCoordinator_Errors(t *testing.T) {
	c, backend := newTestCoordinator(t)
	require.NoError(t, c.Load(context.Background(), backend, nil))

	_, err := c.Translate(context.Background(), Request{Text: "   "}, Hooks{})
	assert.ErrorIs(t, err, ErrEmptyRequest)

	_, err = c.Translate(context.Background(), Request{FileName: "a.pptx", Data: []byte("x")}, Hooks{})
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)

	_, err = c.Translate(context.Background(), Request{FileName: "a.docx", Data: []byte("not a zip")}, Hooks{})
	assert.ErrorIs(t, err, document.ErrDOCXExtractionFailed)
}

func TestCoordinator_LoadErrors(t *testing.T) {
	c, _ := newTestCoordinator(t)
	assert.ErrorIs(t, c.Load(context.Background(), nil, nil), translation.ErrNoBackend)
	assert.False(t, c.Ready())
}

func TestNewFromConfig_LanguageTable(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.LanguageTable = "/does/not/exist.toml"
	_, err := NewFromConfig(cfg, nil)
	assert.Error(t, err)

	_, err = NewFromConfig(nil, nil)
	assert.Error(t, err)
}
