// Package providers 提供翻译后端的公共配置、HTTP 响应分类与注册表
package providers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 单次请求超时
	Timeout time.Duration `json:"timeout"`

	// 代理设置
	ProxyURL string `json:"proxy_url,omitempty"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`

	Logger *zap.Logger `json:"-"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout: 30 * time.Second,
		Headers: make(map[string]string),
	}
}

// GetLogger 返回配置的日志记录器，未设置时返回空实现
func (c BaseConfig) GetLogger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// NewHTTPClient 根据配置创建 HTTP 客户端
func NewHTTPClient(cfg BaseConfig) (*http.Client, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", cfg.ProxyURL, err)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(proxy)
		client.Transport = transport
	}

	return client, nil
}

// ApplyHeaders 设置自定义头部
func ApplyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}
