package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.APIEndpoint = server.URL
	config.APIKey = "gkey"
	p, err := New(config)
	require.NoError(t, err)
	return p
}

func segmentRequest(text string) *translation.SegmentRequest {
	return &translation.SegmentRequest{Text: text, Source: "zh_CN", Target: "en", Total: 1}
}

func TestProvider_TranslateSegment(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "gkey", r.PostForm.Get("key"))
		assert.Equal(t, "你好。", r.PostForm.Get("q"))
		assert.Equal(t, "zh-CN", r.PostForm.Get("source"))
		assert.Equal(t, "en", r.PostForm.Get("target"))
		assert.Equal(t, "text", r.PostForm.Get("format"))

		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Hello."}]}}`))
	})

	out, err := p.TranslateSegment(context.Background(), segmentRequest("你好。"))
	require.NoError(t, err)
	assert.Equal(t, "Hello.", out)
}

func TestProvider_APIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid."}}`))
	})

	_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))
	var reqErr *translation.RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Equal(t, "API key not valid.", reqErr.Reason)
}

func TestProvider_RateLimited(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Rate Limit Exceeded"}}`))
	})

	_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))
	assert.True(t, translation.IsRateLimited(err))
	assert.ErrorContains(t, err, "Rate Limit Exceeded")
}

func TestProvider_PlainErrorBody(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))
	var reqErr *translation.RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "bad gateway", reqErr.Reason)
}

func TestProvider_EmptyTranslations(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"translations":[]}}`))
	})

	_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))
	assert.ErrorContains(t, err, "no translation returned")
}

func TestInitialize_RequiresKey(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, p.config.APIEndpoint)
	assert.Error(t, p.Initialize(context.Background(), nil))
}
