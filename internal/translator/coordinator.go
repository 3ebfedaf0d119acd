// Package translator 协调文档提取、会话加载与分段翻译，
// 供命令行、HTTP 服务、队列 worker 与 Lambda 入口共用。
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/pkg/language"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// ErrEmptyRequest 请求既没有文件也没有文本
var ErrEmptyRequest = errors.New("request has neither a document nor text")

// TranslationResult 翻译结果
type TranslationResult struct {
	ID             string        `json:"id"`
	FileName       string        `json:"file_name,omitempty"`
	OriginalText   string        `json:"original_text"`
	TranslatedText string        `json:"translated_text"`
	SourceLang     string        `json:"source_lang"`
	TargetLang     string        `json:"target_lang"`
	SourceCode     string        `json:"source_code"`
	TargetCode     string        `json:"target_code"`
	Segments       int           `json:"segments"`
	Skipped        bool          `json:"skipped,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	Duration       time.Duration `json:"duration"`
}

// Request 翻译请求，Data 与 Text 二选一
type Request struct {
	FileName   string
	Data       []byte
	Text       string
	SourceLang string
	TargetLang string
	MaxPages   int
}

// Hooks 进度回调，均可为空
type Hooks struct {
	// OnExtracted 文本提取完成后调用
	OnExtracted func(chars int)
	// OnProgress 每完成一个片段调用一次
	OnProgress translation.ProgressFunc
}

// TranslationCoordinator 翻译协调器
type TranslationCoordinator struct {
	config   *config.Config
	pipeline *translation.Pipeline
	registry *document.Registry
	session  atomic.Pointer[translation.Session]
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewTranslationCoordinator 创建翻译协调器
func NewTranslationCoordinator(cfg *config.Config, pipeline *translation.Pipeline, registry *document.Registry, logger *zap.Logger) (*TranslationCoordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = document.NewRegistry(cfg.MaxFileSize, logger)
	}

	return &TranslationCoordinator{
		config:   cfg,
		pipeline: pipeline,
		registry: registry,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// NewFromConfig 按配置构建语言表与流水线
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*TranslationCoordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	table := language.DefaultTable()
	if cfg.LanguageTable != "" {
		loaded, err := language.LoadTable(cfg.LanguageTable)
		if err != nil {
			return nil, fmt.Errorf("failed to load language table: %w", err)
		}
		table = loaded
	}

	pipeline := translation.NewPipeline(
		translation.WithMaxSegmentLength(cfg.MaxSegmentLength),
		translation.WithPacingDelay(cfg.PacingDelay),
		translation.WithRetry(cfg.MaxRetries, cfg.RetryBaseDelay),
		translation.WithLanguageTable(table),
		translation.WithLogger(logger),
	)

	return NewTranslationCoordinator(cfg, pipeline, document.NewRegistry(cfg.MaxFileSize, logger), logger)
}

// Load 加载后端并保存会话句柄
func (c *TranslationCoordinator) Load(ctx context.Context, backend translation.Backend, onLoad translation.LoadProgressFunc) error {
	c.logger.Info("loading translation backend", zap.String("backend", nameOf(backend)))

	sess, err := translation.Load(ctx, backend, onLoad)
	if err != nil {
		c.logger.Error("failed to load translation backend", zap.Error(err))
		return err
	}

	c.session.Store(sess)
	c.logger.Info("translation backend ready",
		zap.String("backend", backend.GetName()),
		zap.String("session", sess.ID()))
	return nil
}

// SetSession 替换当前会话
func (c *TranslationCoordinator) SetSession(sess *translation.Session) {
	c.session.Store(sess)
}

// Session 返回当前会话，未加载时为 nil
func (c *TranslationCoordinator) Session() *translation.Session {
	return c.session.Load()
}

// Ready 后端是否已加载
func (c *TranslationCoordinator) Ready() bool {
	return c.session.Load().Ready()
}

// Languages 返回语言表
func (c *TranslationCoordinator) Languages() *language.Table {
	return c.pipeline.LanguageTable()
}

// Registry 返回文档提取器注册表
func (c *TranslationCoordinator) Registry() *document.Registry {
	return c.registry
}

// Config 返回配置
func (c *TranslationCoordinator) Config() *config.Config {
	return c.config
}

// Translate 提取（如有需要）并翻译文档
func (c *TranslationCoordinator) Translate(ctx context.Context, req Request, hooks Hooks) (*TranslationResult, error) {
	sess := c.session.Load()
	if !sess.Ready() {
		return nil, translation.ErrNotReady
	}

	text, err := c.extract(ctx, req)
	if err != nil {
		return nil, err
	}
	if hooks.OnExtracted != nil {
		hooks.OnExtracted(len([]rune(text)))
	}

	sourceTag := firstNonEmpty(req.SourceLang, c.config.SourceLang)
	targetTag := firstNonEmpty(req.TargetLang, c.config.TargetLang)

	id := c.newID()
	log := c.logger.With(zap.String("id", id), zap.String("file", req.FileName))
	log.Info("starting document translation",
		zap.String("source", sourceTag),
		zap.String("target", targetTag),
		zap.Int("chars", len([]rune(text))))

	res, err := c.pipeline.TranslateDocumentResult(ctx, sess, text, sourceTag, targetTag, hooks.OnProgress)
	if err != nil {
		log.Error("document translation failed", zap.Error(err))
		return nil, err
	}

	return &TranslationResult{
		ID:             id,
		FileName:       req.FileName,
		OriginalText:   text,
		TranslatedText: res.Text,
		SourceLang:     sourceTag,
		TargetLang:     targetTag,
		SourceCode:     res.Languages.Source,
		TargetCode:     res.Languages.Target,
		Segments:       res.Segments,
		Skipped:        res.Skipped,
		Timestamp:      c.now().UTC(),
		Duration:       res.Duration,
	}, nil
}

func (c *TranslationCoordinator) extract(ctx context.Context, req Request) (string, error) {
	if len(req.Data) == 0 {
		if strings.TrimSpace(req.Text) == "" {
			return "", ErrEmptyRequest
		}
		return req.Text, nil
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = c.config.MaxPages
	}

	return c.registry.Extract(ctx, req.FileName, req.Data, document.Options{MaxPages: maxPages})
}

func nameOf(b translation.Backend) string {
	if b == nil {
		return ""
	}
	return b.GetName()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
