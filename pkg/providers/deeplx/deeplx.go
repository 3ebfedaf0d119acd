// Package deeplx 实现自建 DeepLX 服务的翻译后端。
// DeepLX 即使失败也可能返回 HTTP 200，真实状态在响应体的 code 字段中。
package deeplx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Name 后端名称
const Name = "deeplx"

// DefaultEndpoint 本地默认地址
const DefaultEndpoint = "http://localhost:1188/translate"

// Config DeepLX配置，APIKey 作为可选的访问令牌
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{BaseConfig: providers.DefaultConfig()}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider DeepLX 后端
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New 创建新的DeepLX后端
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}

	client, err := providers.NewHTTPClient(config.BaseConfig)
	if err != nil {
		return nil, err
	}
	return &Provider{config: config, httpClient: client}, nil
}

// GetName 获取后端名称
func (p *Provider) GetName() string {
	return Name
}

// Initialize 无需加载
func (p *Provider) Initialize(ctx context.Context, onProgress translation.LoadProgressFunc) error {
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// TranslateSegment 翻译单个片段
func (p *Provider) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	body, err := json.Marshal(TranslateRequest{
		Text:       req.Text,
		SourceLang: strings.ToUpper(req.Source),
		TargetLang: strings.ToUpper(req.Target),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	providers.ApplyHeaders(httpReq, p.config.Headers)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", translation.NewRequestFailedError(0, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", translation.NewRequestFailedError(resp.StatusCode, "failed to read response: "+err.Error())
	}
	if err := providers.CheckStatus(resp, respBody); err != nil {
		return "", err
	}

	var translateResp TranslateResponse
	if err := json.Unmarshal(respBody, &translateResp); err != nil {
		return "", translation.NewRequestFailedError(resp.StatusCode, "failed to decode response: "+err.Error())
	}

	switch {
	case translateResp.Code == http.StatusTooManyRequests:
		return "", translation.NewRateLimitedError(translateResp.Message)
	case translateResp.Code != http.StatusOK:
		return "", translation.NewRequestFailedError(translateResp.Code, translateResp.Message)
	case translateResp.Data == nil:
		return "", translation.NewRequestFailedError(resp.StatusCode, "response has no data")
	}

	return *translateResp.Data, nil
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Code       int     `json:"code"`
	Message    string  `json:"message,omitempty"`
	Data       *string `json:"data"`
	SourceLang string  `json:"source_lang,omitempty"`
}
