// Package openai 实现基于 OpenAI 兼容聊天接口的翻译后端
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Name 后端名称
const Name = "openai"

// DefaultModel 默认模型
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are a professional translator. Translate the user's text accurately while preserving the original meaning and tone. Reply with the translation only, without explanations or quotes."

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       DefaultModel,
		Temperature: 0.3,
		MaxTokens:   2048,
	}
}

// Provider OpenAI 后端
type Provider struct {
	config Config
	client *openai.Client
	logger *zap.Logger
}

// New 创建 OpenAI 后端
func New(config Config) (*Provider, error) {
	if config.Model == "" {
		config.Model = DefaultModel
	}

	httpClient, err := providers.NewHTTPClient(config.BaseConfig)
	if err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.HTTPClient = httpClient
	if config.APIEndpoint != "" {
		// go-openai 的接口后缀以斜杠开头
		clientConfig.BaseURL = strings.TrimSuffix(config.APIEndpoint, "/")
	}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: config.GetLogger().Named(Name),
	}, nil
}

// GetName 获取后端名称
func (p *Provider) GetName() string {
	return Name
}

// Initialize 检查密钥配置。自定义地址（本地兼容服务）允许不带密钥。
func (p *Provider) Initialize(ctx context.Context, onProgress translation.LoadProgressFunc) error {
	if p.config.APIKey == "" && p.config.APIEndpoint == "" {
		return errors.New("openai api key is required")
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// TranslateSegment 翻译单个片段
func (p *Provider) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req),
			},
		},
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classifyError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", translation.NewRequestFailedError(http.StatusOK, "response has no choices")
	}

	p.logger.Debug("segment translated",
		zap.Int("segment", req.Index+1),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt 构建用户提示词，语言代码转换为英文名称
func BuildPrompt(req *translation.SegmentRequest) string {
	return fmt.Sprintf("Translate the following text from %s to %s:\n\n%s",
		LanguageName(req.Source), LanguageName(req.Target), req.Text)
}

// LanguageName 返回语言代码的英文名称，无法识别时返回原代码
func LanguageName(code string) string {
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// classifyError 将客户端错误转换为限流或请求失败
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return translation.NewRateLimitedError(apiErr.Message)
		}
		return translation.NewRequestFailedError(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return translation.NewRateLimitedError(http.StatusText(reqErr.HTTPStatusCode))
		}
		return translation.NewRequestFailedError(reqErr.HTTPStatusCode, reqErr.Error())
	}

	return translation.NewRequestFailedError(0, err.Error())
}
