// Package deepl 实现基于 DeepL v2 接口的翻译后端
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Name 后端名称
const Name = "deepl"

// 官方接口地址，免费密钥以 ":fx" 结尾
const (
	ProEndpoint  = "https://api.deepl.com/v2"
	FreeEndpoint = "https://api-free.deepl.com/v2"
)

// statusQuotaExceeded DeepL 专用的额度耗尽状态码
const statusQuotaExceeded = 456

// Config DeepL配置
type Config struct {
	providers.BaseConfig
	Formality string `json:"formality,omitempty"` // more / less / default
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{BaseConfig: providers.DefaultConfig()}
}

// Provider DeepL 后端
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New 创建新的DeepL后端，未指定地址时按密钥类型选择免费或专业接口
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = endpointForKey(config.APIKey)
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

func endpointForKey(key string) string {
	if strings.HasSuffix(key, ":fx") {
		return FreeEndpoint
	}
	return ProEndpoint
}

// GetName 获取后端名称
func (p *Provider) GetName() string {
	return Name
}

// Initialize 检查密钥，不发起网络请求
func (p *Provider) Initialize(ctx context.Context, onProgress translation.LoadProgressFunc) error {
	if p.config.APIKey == "" {
		return fmt.Errorf("deepl requires an api key")
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// TranslateSegment 翻译单个片段
func (p *Provider) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	params := url.Values{}
	params.Set("text", req.Text)
	params.Set("source_lang", normalizeLanguageCode(req.Source, true))
	params.Set("target_lang", normalizeLanguageCode(req.Target, false))
	if p.config.Formality != "" {
		params.Set("formality", p.config.Formality)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+"/translate", strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.config.APIKey)
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

	switch resp.StatusCode {
	case http.StatusForbidden:
		return "", translation.NewRequestFailedError(resp.StatusCode, "authentication failed")
	case statusQuotaExceeded:
		return "", translation.NewRequestFailedError(resp.StatusCode, "quota exceeded")
	}
	if err := providers.CheckStatus(resp, body); err != nil {
		return "", err
	}

	var translateResp TranslateResponse
	if err := json.Unmarshal(body, &translateResp); err != nil {
		return "", translation.NewRequestFailedError(resp.StatusCode, "failed to decode response: "+err.Error())
	}
	if len(translateResp.Translations) == 0 {
		return "", translation.NewRequestFailedError(resp.StatusCode, "no translation returned")
	}

	first := translateResp.Translations[0]
	if first.DetectedSourceLanguage != "" {
		p.logger.Debug("detected source language", zap.String("language", first.DetectedSourceLanguage))
	}
	return first.Text, nil
}

// normalizeLanguageCode 标准化语言代码为DeepL格式
func normalizeLanguageCode(lang string, isSource bool) string {
	// DeepL使用大写的语言代码
	upper := strings.ToUpper(strings.ReplaceAll(lang, "_", "-"))

	// 对于英语和葡萄牙语，目标语言需要指定变体
	if !isSource {
		switch upper {
		case "EN":
			return "EN-US"
		case "PT":
			return "PT-BR"
		}
	} else if i := strings.IndexByte(upper, '-'); i > 0 {
		// 源语言不接受地区变体
		return upper[:i]
	}

	return upper
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
