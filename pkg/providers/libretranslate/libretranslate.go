// Package libretranslate 实现基于 LibreTranslate HTTP 接口的翻译后端
package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Name 后端名称
const Name = "libretranslate"

// DefaultEndpoint 官方演示服务器
const DefaultEndpoint = "https://libretranslate.com"

// Config LibreTranslate配置
type Config struct {
	providers.BaseConfig
	// 文本格式，text 或 html
	Format string `json:"format"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
		Format:     "text",
	}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider LibreTranslate 后端
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	languages []Language // 缓存支持的语言
}

// New 创建新的LibreTranslate后端
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")
	if config.Format == "" {
		config.Format = "text"
	}

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

// Initialize 探测服务器支持的语言。
// 探测失败不视为加载失败，退回内置语言列表。
func (p *Provider) Initialize(ctx context.Context, onProgress translation.LoadProgressFunc) error {
	report(onProgress, 0)

	if err := p.fetchLanguages(ctx); err != nil {
		p.logger.Warn("failed to fetch languages, using defaults",
			zap.String("endpoint", p.config.APIEndpoint),
			zap.Error(err))
		p.setLanguages(getDefaultLanguages())
	}

	report(onProgress, 100)
	return nil
}

// Languages 返回已缓存的语言列表
func (p *Provider) Languages() []Language {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Language, len(p.languages))
	copy(out, p.languages)
	return out
}

// TranslateSegment 翻译单个片段
func (p *Provider) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	translateReq := TranslateRequest{
		Q:      req.Text,
		Source: req.Source,
		Target: req.Target,
		Format: p.config.Format,
		APIKey: p.config.APIKey,
	}

	resp, err := p.translate(ctx, translateReq)
	if err != nil {
		return "", err
	}

	if resp.DetectedLanguage != nil {
		p.logger.Debug("detected source language",
			zap.String("language", resp.DetectedLanguage.Language),
			zap.Float64("confidence", resp.DetectedLanguage.Confidence))
	}

	return *resp.TranslatedText, nil
}

// translate 执行一次翻译请求，不做重试
func (p *Provider) translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	providers.ApplyHeaders(httpReq, p.config.Headers)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, translation.NewRequestFailedError(0, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, translation.NewRequestFailedError(resp.StatusCode, "failed to read response: "+err.Error())
	}

	if err := providers.CheckStatus(resp, respBody); err != nil {
		return nil, err
	}

	var translateResp TranslateResponse
	if err := json.Unmarshal(respBody, &translateResp); err != nil {
		return nil, translation.NewRequestFailedError(resp.StatusCode, "failed to decode response: "+err.Error())
	}
	if translateResp.Error != "" {
		return nil, translation.NewRequestFailedError(resp.StatusCode, translateResp.Error)
	}
	if translateResp.TranslatedText == nil {
		return nil, translation.NewRequestFailedError(resp.StatusCode, "response has no translatedText")
	}

	return &translateResp, nil
}

// fetchLanguages 获取支持的语言列表
func (p *Provider) fetchLanguages(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.APIEndpoint+"/languages", nil)
	if err != nil {
		return err
	}
	providers.ApplyHeaders(req, p.config.Headers)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch languages: %s", resp.Status)
	}

	var languages []Language
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return err
	}

	p.setLanguages(languages)
	return nil
}

func (p *Provider) setLanguages(languages []Language) {
	p.mu.Lock()
	p.languages = languages
	p.mu.Unlock()
}

func report(fn translation.LoadProgressFunc, percent int) {
	if fn != nil {
		fn(percent)
	}
}

// getDefaultLanguages 返回默认语言列表
func getDefaultLanguages() []Language {
	return []Language{
		{Code: "en", Name: "English"},
		{Code: "ar", Name: "Arabic"},
		{Code: "zh", Name: "Chinese"},
		{Code: "fr", Name: "French"},
		{Code: "de", Name: "German"},
		{Code: "it", Name: "Italian"},
		{Code: "ja", Name: "Japanese"},
		{Code: "pt", Name: "Portuguese"},
		{Code: "ru", Name: "Russian"},
		{Code: "es", Name: "Spanish"},
	}
}

// Language 语言信息
type Language struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets,omitempty"`
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Q      string `json:"q"`                 // 要翻译的文本
	Source string `json:"source"`            // 源语言
	Target string `json:"target"`            // 目标语言
	Format string `json:"format"`            // 文本格式
	APIKey string `json:"api_key,omitempty"` // API密钥（如果需要）
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	TranslatedText   *string `json:"translatedText"`
	Error            string  `json:"error,omitempty"`
	DetectedLanguage *struct {
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
	} `json:"detectedLanguage,omitempty"`
}
