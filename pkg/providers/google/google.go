// Package google 实现基于 Google Cloud Translation v2 接口的翻译后端
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Name 后端名称
const Name = "google"

// DefaultEndpoint Translation API v2 地址
const DefaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Config Google Translate配置
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{BaseConfig: providers.DefaultConfig()}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider Google Translate 后端
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New 创建新的Google Translate后端
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

// Initialize 检查密钥
func (p *Provider) Initialize(ctx context.Context, onProgress translation.LoadProgressFunc) error {
	if p.config.APIKey == "" {
		return fmt.Errorf("google translate requires an api key")
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// TranslateSegment 翻译单个片段
func (p *Provider) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	params := url.Values{}
	params.Set("key", p.config.APIKey)
	params.Set("q", req.Text)
	params.Set("source", normalizeLanguageCode(req.Source))
	params.Set("target", normalizeLanguageCode(req.Target))
	params.Set("format", "text")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	providers.ApplyHeaders(httpReq, p.config.Headers)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", translation.NewRequestFailedError(0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", translation.NewRequestFailedError(resp.StatusCode, "failed to read response: "+err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Google 的错误体是 {"error": {"code", "message"}}，与通用格式不同
		var apiErr APIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			if resp.StatusCode == http.StatusTooManyRequests {
				return "", translation.NewRateLimitedError(apiErr.Error.Message)
			}
			return "", translation.NewRequestFailedError(resp.StatusCode, apiErr.Error.Message)
		}
		return "", providers.CheckStatus(resp, body)
	}

	var translateResp TranslateResponse
	if err := json.Unmarshal(body, &translateResp); err != nil {
		return "", translation.NewRequestFailedError(resp.StatusCode, "failed to decode response: "+err.Error())
	}
	if len(translateResp.Data.Translations) == 0 {
		return "", translation.NewRequestFailedError(resp.StatusCode, "no translation returned")
	}

	return translateResp.Data.Translations[0].TranslatedText, nil
}

// normalizeLanguageCode 处理 xx_YY 格式到 xx-YY
func normalizeLanguageCode(lang string) string {
	return strings.Replace(lang, "_", "-", 1)
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}

// APIError API错误
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
