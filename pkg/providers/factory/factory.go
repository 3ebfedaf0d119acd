// Package factory 根据配置选择并创建翻译后端
package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/deepl"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/deeplx"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/google"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/libretranslate"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/mymemory"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/raw"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// 构造器选项键
const (
	optionEmail = "email"
	optionModel = "model"
)

// ProviderFactory 后端工厂
type ProviderFactory struct {
	registry *providers.Registry
	logger   *zap.Logger
}

// New 创建新的后端工厂并注册内置后端
func New(logger *zap.Logger) *ProviderFactory {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &ProviderFactory{
		registry: providers.NewRegistry(),
		logger:   logger,
	}

	builtins := map[string]providers.Constructor{
		deepl.Name:          createDeepL,
		deeplx.Name:         createDeepLX,
		google.Name:         createGoogle,
		libretranslate.Name: createLibreTranslate,
		mymemory.Name:       createMyMemory,
		openai.Name:         createOpenAI,
		raw.Name:            createRaw,
	}
	for name, ctor := range builtins {
		// 内置名称不会重复
		_ = f.registry.Register(name, ctor)
	}

	return f
}

// Register 注册自定义后端
func (f *ProviderFactory) Register(name string, ctor providers.Constructor) error {
	return f.registry.Register(name, ctor)
}

// Available 返回可用后端名称
func (f *ProviderFactory) Available() []string {
	return f.registry.List()
}

// CreateBackend 根据配置创建后端，返回的后端带有请求统计（stats.Reporter）
func (f *ProviderFactory) CreateBackend(cfg *config.Config) (translation.Backend, error) {
	if cfg == nil {
		return nil, translation.ErrNoBackend
	}

	base := providers.DefaultConfig()
	base.APIKey = cfg.APIKey
	base.APIEndpoint = cfg.Endpoint
	base.ProxyURL = cfg.ProxyURL
	base.Logger = f.logger
	if cfg.RequestTimeout > 0 {
		base.Timeout = cfg.RequestTimeout
	}
	for k, v := range cfg.Headers {
		base.Headers[k] = v
	}

	options := map[string]string{
		optionEmail: cfg.Email,
		optionModel: cfg.Model,
	}

	backend, err := f.registry.Create(cfg.Backend, base, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", translation.ErrNoBackend, err)
	}

	f.logger.Debug("backend created",
		zap.String("backend", backend.GetName()),
		zap.String("endpoint", cfg.Endpoint))

	return stats.NewMiddleware(backend), nil
}

func createDeepL(base providers.BaseConfig, _ map[string]string) (translation.Backend, error) {
	config := deepl.DefaultConfig()
	config.BaseConfig = base
	return deepl.New(config)
}

func createDeepLX(base providers.BaseConfig, _ map[string]string) (translation.Backend, error) {
	config := deeplx.DefaultConfig()
	config.BaseConfig = base
	return deeplx.New(config)
}

func createGoogle(base providers.BaseConfig, _ map[string]string) (translation.Backend, error) {
	config := google.DefaultConfig()
	config.BaseConfig = base
	return google.New(config)
}

func createLibreTranslate(base providers.BaseConfig, _ map[string]string) (translation.Backend, error) {
	config := libretranslate.DefaultConfig()
	config.BaseConfig = base
	if config.APIEndpoint == "" {
		config.APIEndpoint = libretranslate.DefaultEndpoint
	}
	return libretranslate.New(config)
}

func createMyMemory(base providers.BaseConfig, options map[string]string) (translation.Backend, error) {
	config := mymemory.DefaultConfig()
	config.BaseConfig = base
	config.Email = options[optionEmail]
	return mymemory.New(config)
}

func createOpenAI(base providers.BaseConfig, options map[string]string) (translation.Backend, error) {
	config := openai.DefaultConfig()
	config.BaseConfig = base
	if model := options[optionModel]; model != "" {
		config.Model = model
	}
	return openai.New(config)
}

func createRaw(_ providers.BaseConfig, _ map[string]string) (translation.Backend, error) {
	return raw.New(), nil
}
