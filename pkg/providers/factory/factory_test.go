package factory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/raw"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

func TestCreateBackend_Builtins(t *testing.T) {
	f := New(nil)
	assert.Equal(t, []string{"deepl", "deeplx", "google", "libretranslate", "mymemory", "openai", "raw"}, f.Available())
	assert.ElementsMatch(t, config.SupportedBackends, f.Available())

	for _, name := range f.Available() {
		cfg := config.NewDefaultConfig()
		cfg.Backend = name
		backend, err := f.CreateBackend(cfg)
		require.NoError(t, err, name)
		assert.Equal(t, name, backend.GetName())

		_, ok := backend.(stats.Reporter)
		assert.True(t, ok, name)
	}
}

func TestCreateBackend_Unknown(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Backend = "babelfish"

	_, err := New(nil).CreateBackend(cfg)
	assert.ErrorIs(t, err, translation.ErrNoBackend)

	_, err = New(nil).CreateBackend(nil)
	assert.ErrorIs(t, err, translation.ErrNoBackend)
}

func TestCreateBackend_ConfigForwarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get", r.URL.Path)
		assert.Equal(t, "me@example.com", r.URL.Query().Get("de"))
		assert.Equal(t, "docs", r.Header.Get("X-Team"))
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"Hello."},"responseStatus":200}`))
	}))
	defer server.Close()

	cfg := config.NewDefaultConfig()
	cfg.Backend = "mymemory"
	cfg.Endpoint = server.URL
	cfg.Email = "me@example.com"
	cfg.Headers["X-Team"] = "docs"

	backend, err := New(nil).CreateBackend(cfg)
	require.NoError(t, err)

	out, err := backend.TranslateSegment(context.Background(), &translation.SegmentRequest{
		Text: "Olá.", Source: "pt", Target: "en", Total: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello.", out)

	snap := backend.(stats.Reporter).Stats()
	assert.EqualValues(t, 1, snap.SuccessfulRequests)
	assert.EqualValues(t, 4, snap.CharsIn)
}

func TestRegister_Custom(t *testing.T) {
	f := New(nil)
	require.NoError(t, f.Register("echo", func(providers.BaseConfig, map[string]string) (translation.Backend, error) {
		return raw.New(), nil
	}))
	assert.Error(t, f.Register("raw", nil))

	cfg := config.NewDefaultConfig()
	cfg.Backend = "echo"
	backend, err := f.CreateBackend(cfg)
	require.NoError(t, err)
	assert.Equal(t, raw.Name, backend.GetName())
}
