// Package mymemory 实现基于 MyMemory 公共接口的翻译后端
package mymemory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Name 后端名称
const Name = "mymemory"

// DefaultEndpoint 公共接口地址
const DefaultEndpoint = "https://api.mymemory.translated.net"

// Config MyMemory 配置
type Config struct {
	providers.BaseConfig
	// 联系邮箱，提供后每日额度更高
	Email string `json:"email,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{BaseConfig: providers.DefaultConfig()}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider MyMemory 后端
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New 创建 MyMemory 后端
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")

	client, err := providers.NewHTTPClient(config.BaseConfig)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		httpClient: client,
		logger:     config.GetLogger().Named(Name),
	}, nil
}

// GetName 获取后端名称
func (p *Provider) GetName() string {
	return Name
}

// Initialize 无需预加载
func (p *Provider) Initialize(ctx context.Context, onProgress translation.LoadProgressFunc) error {
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// TranslateSegment 翻译单个片段
func (p *Provider) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	query := url.Values{}
	query.Set("q", req.Text)
	query.Set("langpair", req.Source+"|"+req.Target)
	if p.config.Email != "" {
		query.Set("de", p.config.Email)
	}
	if p.config.APIKey != "" {
		query.Set("key", p.config.APIKey)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.APIEndpoint+"/get?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
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

	if err := providers.CheckStatus(resp, body); err != nil {
		return "", err
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return "", translation.NewRequestFailedError(resp.StatusCode, "failed to decode response: "+err.Error())
	}

	// 接口在 HTTP 200 中内嵌真实状态
	switch status := int(result.ResponseStatus); {
	case status == http.StatusTooManyRequests:
		return "", translation.NewRateLimitedError(result.ResponseDetails)
	case status == 0:
		return "", translation.NewRequestFailedError(resp.StatusCode, "response has no responseStatus")
	case status != http.StatusOK:
		return "", translation.NewRequestFailedError(status, result.ResponseDetails)
	}

	if result.QuotaFinished {
		return "", translation.NewRateLimitedError("daily quota finished")
	}
	if result.ResponseData.TranslatedText == nil {
		return "", translation.NewRequestFailedError(resp.StatusCode, "response has no translatedText")
	}

	p.logger.Debug("segment translated",
		zap.Int("segment", req.Index+1),
		zap.Float64("match", result.ResponseData.Match))

	return *result.ResponseData.TranslatedText, nil
}

// Response 接口响应
type Response struct {
	ResponseData struct {
		TranslatedText *string `json:"translatedText"`
		Match          float64 `json:"match"`
	} `json:"responseData"`
	QuotaFinished   bool         `json:"quotaFinished"`
	ResponseDetails string       `json:"responseDetails"`
	ResponseStatus  FlexibleCode `json:"responseStatus"`
}

// FlexibleCode 状态码，接口有时返回数字，有时返回字符串
type FlexibleCode int

// UnmarshalJSON 同时接受数字与字符串形式
func (c *FlexibleCode) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*c = 0
		return nil
	}

	raw = strings.Trim(raw, `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid response status %q: %w", raw, err)
	}
	*c = FlexibleCode(n)
	return nil
}
