package mymemory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

func newTestProvider(t *testing.T, email string, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.APIEndpoint = server.URL
	config.Email = email
	p, err := New(config)
	require.NoError(t, err)
	return p
}

func request(text string) *translation.SegmentRequest {
	return &translation.SegmentRequest{Text: text, Source: "pt", Target: "en", Total: 1}
}

func TestProvider_TranslateSegment(t *testing.T) {
	p := newTestProvider(t, "me@example.com", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/get", r.URL.Path)
		assert.Equal(t, "Olá mundo.", r.URL.Query().Get("q"))
		assert.Equal(t, "pt|en", r.URL.Query().Get("langpair"))
		assert.Equal(t, "me@example.com", r.URL.Query().Get("de"))

		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"Hello world.","match":0.98},"responseStatus":200,"responseDetails":""}`))
	})

	out, err := p.TranslateSegment(context.Background(), request("Olá mundo."))
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", out)
	assert.Equal(t, Name, p.GetName())
}

func TestProvider_NoEmailParameter(t *testing.T) {
	p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["de"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"ok"},"responseStatus":"200"}`))
	})

	out, err := p.TranslateSegment(context.Background(), request("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestProvider_EmbeddedStatus(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		rateLimited bool
		wantStatus  int
	}{
		{
			name:        "embedded 429",
			body:        `{"responseData":{"translatedText":"MYMEMORY WARNING"},"responseStatus":429,"responseDetails":"TOO MANY REQUESTS"}`,
			rateLimited: true,
		},
		{
			name:       "embedded string 403",
			body:       `{"responseData":{"translatedText":"INVALID LANGUAGE PAIR"},"responseStatus":"403","responseDetails":"INVALID LANGUAGE PAIR"}`,
			wantStatus: 403,
		},
		{
			name:        "quota finished",
			body:        `{"responseData":{"translatedText":"x"},"responseStatus":200,"quotaFinished":true}`,
			rateLimited: true,
		},
		{
			name:       "missing status",
			body:       `{"responseData":{"translatedText":"Hello."}}`,
			wantStatus: 200,
		},
		{
			name:       "missing translated text",
			body:       `{"responseData":{},"responseStatus":200}`,
			wantStatus: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.TranslateSegment(context.Background(), request("Olá"))
			require.Error(t, err)
			assert.Equal(t, tt.rateLimited, translation.IsRateLimited(err))

			if !tt.rateLimited {
				var rf *translation.RequestFailedError
				require.True(t, errors.As(err, &rf))
				assert.Equal(t, tt.wantStatus, rf.StatusCode)
			}
		})
	}
}

func TestProvider_HTTPStatus(t *testing.T) {
	p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := p.TranslateSegment(context.Background(), request("Olá"))
	assert.True(t, translation.IsRateLimited(err))

	p = newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	})
	_, err = p.TranslateSegment(context.Background(), request("Olá"))
	var rf *translation.RequestFailedError
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, http.StatusServiceUnavailable, rf.StatusCode)
	assert.Equal(t, "maintenance", rf.Reason)
}

func TestProvider_Initialize(t *testing.T) {
	p, err := New(DefaultConfig())
	require.NoError(t, err)

	var steps []int
	require.NoError(t, p.Initialize(context.Background(), func(percent int) {
		steps = append(steps, percent)
	}))
	assert.Equal(t, []int{100}, steps)
}

func TestFlexibleCode(t *testing.T) {
	tests := []struct {
		input string
		want  FlexibleCode
		err   bool
	}{
		{`200`, 200, false},
		{`"403"`, 403, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"abc"`, 0, true},
	}

	for _, tt := range tests {
		var c FlexibleCode
		err := json.Unmarshal([]byte(tt.input), &c)
		if tt.err {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, c, tt.input)
	}
}
