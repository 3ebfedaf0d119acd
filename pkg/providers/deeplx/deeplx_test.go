package deeplx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

func newTestProvider(t *testing.T, apiKey string, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.APIEndpoint = server.URL + "/translate"
	config.APIKey = apiKey
	p, err := New(config)
	require.NoError(t, err)
	return p
}

func segmentRequest(text string) *translation.SegmentRequest {
	return &translation.SegmentRequest{Text: text, Source: "pt", Target: "en", Total: 1}
}

func TestProvider_TranslateSegment(t *testing.T) {
	p := newTestProvider(t, "token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var req TranslateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bom dia.", req.Text)
		assert.Equal(t, "PT", req.SourceLang)
		assert.Equal(t, "EN", req.TargetLang)

		_, _ = w.Write([]byte(`{"code":200,"data":"Good morning.","source_lang":"PT"}`))
	})

	out, err := p.TranslateSegment(context.Background(), segmentRequest("Bom dia."))
	require.NoError(t, err)
	assert.Equal(t, "Good morning.", out)
}

func TestProvider_NoTokenHeader(t *testing.T) {
	p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"code":200,"data":""}`))
	})

	out, err := p.TranslateSegment(context.Background(), segmentRequest("."))
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestProvider_EmbeddedStatus(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":429,"message":"Too Many Requests"}`))
		})
		_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))
		assert.True(t, translation.IsRateLimited(err))
		assert.ErrorContains(t, err, "Too Many Requests")
	})

	t.Run("failed", func(t *testing.T) {
		p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":503,"message":"upstream unavailable"}`))
		})
		_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))

		var reqErr *translation.RequestFailedError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, 503, reqErr.StatusCode)
		assert.Equal(t, "upstream unavailable", reqErr.Reason)
	})

	t.Run("missing data", func(t *testing.T) {
		p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":200}`))
		})
		_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))
		assert.ErrorContains(t, err, "response has no data")
	})
}

func TestProvider_HTTPStatus(t *testing.T) {
	p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := p.TranslateSegment(context.Background(), segmentRequest("x"))
	assert.True(t, translation.IsRateLimited(err))

	p = newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	_, err = p.TranslateSegment(context.Background(), segmentRequest("x"))
	var reqErr *translation.RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
}

func TestProvider_ContextCanceled(t *testing.T) {
	p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.TranslateSegment(ctx, segmentRequest("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
