// Package translation 实现文档的分段翻译流水线：
// 分段、逐段带重试翻译、进度回调与按序拼接。
package translation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/language"
	"github.com/nerdneilsfield/go-doc-translator/pkg/retry"
	"github.com/nerdneilsfield/go-doc-translator/pkg/segment"
)

// segmentSeparator 拼接译文片段的分隔符
const segmentSeparator = " "

// Result 文档翻译结果
type Result struct {
	Text      string        `json:"text"`
	Languages language.Pair `json:"languages"`
	Segments  int           `json:"segments"`
	Skipped   bool          `json:"skipped"` // 源语言与目标语言相同，未发起请求
	Duration  time.Duration `json:"duration"`
}

// Pipeline 翻译流水线，创建后只读，可被多个 goroutine 同时使用
type Pipeline struct {
	opts      pipelineOptions
	segmenter *segment.Segmenter
	table     *language.Table
	logger    *zap.Logger
	policy    retry.Policy
}

// NewPipeline 创建翻译流水线
func NewPipeline(opts ...Option) *Pipeline {
	options := defaultPipelineOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.table == nil {
		options.table = language.DefaultTable()
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.sleep == nil {
		options.sleep = retry.Sleep
	}
	if options.classifier == nil {
		options.classifier = DefaultClassifier(options.retryBaseDelay)
	}

	p := &Pipeline{
		opts:      options,
		segmenter: segment.New(options.maxSegmentLength),
		table:     options.table,
		logger:    options.logger,
	}
	p.policy = retry.Policy{
		MaxAttempts: options.maxRetries,
		Classify:    options.classifier,
		Sleep:       options.sleep,
	}

	return p
}

// LanguageTable 返回流水线使用的语言表
func (p *Pipeline) LanguageTable() *language.Table {
	return p.table
}

// MaxSegmentLength 返回片段最大长度
func (p *Pipeline) MaxSegmentLength() int {
	return p.segmenter.MaxLength()
}

// TranslateDocument 翻译整篇文档并返回译文
func (p *Pipeline) TranslateDocument(ctx context.Context, sess *Session, text, sourceTag, targetTag string, onProgress ProgressFunc) (string, error) {
	result, err := p.TranslateDocumentResult(ctx, sess, text, sourceTag, targetTag, onProgress)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// TranslateDocumentResult 翻译整篇文档并返回带统计信息的结果。
//
// 片段严格按顺序逐个翻译；任何片段重试耗尽都会使整个调用失败，不返回部分译文。
// 源语言与目标语言解析为同一代码时原样返回文本，不发起请求也不触发进度回调。
func (p *Pipeline) TranslateDocumentResult(ctx context.Context, sess *Session, text, sourceTag, targetTag string, onProgress ProgressFunc) (*Result, error) {
	if !sess.Ready() {
		return nil, ErrNotReady
	}

	start := time.Now()
	pair := p.table.Resolve(sourceTag, targetTag)

	if pair.Same() {
		p.logger.Debug("source and target resolve to the same language, skipping",
			zap.String("language", pair.Source))
		return &Result{
			Text:      text,
			Languages: pair,
			Skipped:   true,
			Duration:  time.Since(start),
		}, nil
	}

	segments := p.segmenter.Segment(text)
	total := len(segments)
	log := p.logger.With(
		zap.String("session", sess.ID()),
		zap.String("backend", sess.Backend().GetName()),
		zap.String("source", pair.Source),
		zap.String("target", pair.Target),
	)
	log.Info("translating document",
		zap.Int("segments", total),
		zap.Int("max_segment_length", p.segmenter.MaxLength()),
		zap.Int("chars", len([]rune(text))),
	)

	translated := make([]string, 0, total)
	for i, seg := range segments {
		req := &SegmentRequest{
			Text:   seg,
			Source: pair.Source,
			Target: pair.Target,
			Index:  i,
			Total:  total,
		}

		out, err := p.translateSegment(ctx, sess.Backend(), req, log)
		if err != nil {
			log.Error("segment translation failed",
				zap.Int("segment", i+1),
				zap.Int("total", total),
				zap.Error(err),
			)
			return nil, &TranslationError{
				Code:    ErrCodeTranslationFailed,
				Message: "translation failed",
				Cause:   err,
				Segment: i + 1,
				Total:   total,
			}
		}
		translated = append(translated, out)

		if onProgress != nil {
			onProgress(i+1, total)
		}

		// 相邻请求之间保持间隔，避免触发远程限流
		if i < total-1 && p.opts.pacingDelay > 0 {
			if err := p.opts.sleep(ctx, p.opts.pacingDelay); err != nil {
				return nil, NewTranslationError(ErrCodeTranslationFailed, "translation interrupted", err)
			}
		}
	}

	result := &Result{
		Text:      strings.Join(translated, segmentSeparator),
		Languages: pair,
		Segments:  total,
		Duration:  time.Since(start),
	}
	log.Info("document translated", zap.Duration("duration", result.Duration))

	return result, nil
}

// translateSegment 带重试地翻译单个片段
func (p *Pipeline) translateSegment(ctx context.Context, backend Backend, req *SegmentRequest, log *zap.Logger) (string, error) {
	policy := p.policy
	policy.OnRetry = func(attempt int, decision retry.Decision, err error) {
		log.Warn("segment attempt failed, retrying",
			zap.Int("segment", req.Index+1),
			zap.Int("attempt", attempt),
			zap.String("action", decision.Action.String()),
			zap.Duration("delay", decision.Delay),
			zap.Error(err),
		)
	}

	return retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return backend.TranslateSegment(ctx, req)
	})
}
