package translation

import (
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/pkg/language"
	"github.com/nerdneilsfield/go-doc-translator/pkg/retry"
	"github.com/nerdneilsfield/go-doc-translator/pkg/segment"
)

// 默认参数
const (
	DefaultMaxSegmentLength = segment.DefaultMaxLength
	DefaultPacingDelay      = 200 * time.Millisecond
	DefaultMaxRetries       = retry.DefaultMaxAttempts
	DefaultRetryBaseDelay   = retry.DefaultBaseDelay
)

// Option 流水线配置选项函数
type Option func(*pipelineOptions)

// pipelineOptions 流水线内部选项
type pipelineOptions struct {
	maxSegmentLength int
	pacingDelay      time.Duration
	maxRetries       int
	retryBaseDelay   time.Duration
	table            *language.Table
	logger           *zap.Logger
	sleep            retry.SleepFunc
	classifier       retry.Classifier
}

func defaultPipelineOptions() pipelineOptions {
	return pipelineOptions{
		maxSegmentLength: DefaultMaxSegmentLength,
		pacingDelay:      DefaultPacingDelay,
		maxRetries:       DefaultMaxRetries,
		retryBaseDelay:   DefaultRetryBaseDelay,
	}
}

// WithMaxSegmentLength 设置片段最大长度
func WithMaxSegmentLength(n int) Option {
	return func(o *pipelineOptions) {
		if n > 0 {
			o.maxSegmentLength = n
		}
	}
}

// WithPacingDelay 设置相邻片段请求之间的间隔
func WithPacingDelay(d time.Duration) Option {
	return func(o *pipelineOptions) {
		if d >= 0 {
			o.pacingDelay = d
		}
	}
}

// WithRetry 设置每个片段的最大尝试次数与退避基准延迟
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(o *pipelineOptions) {
		if maxRetries > 0 {
			o.maxRetries = maxRetries
		}
		if baseDelay >= 0 {
			o.retryBaseDelay = baseDelay
		}
	}
}

// WithClassifier 替换默认的错误分类
func WithClassifier(classifier retry.Classifier) Option {
	return func(o *pipelineOptions) {
		o.classifier = classifier
	}
}

// WithLanguageTable 设置语言映射表
func WithLanguageTable(table *language.Table) Option {
	return func(o *pipelineOptions) {
		o.table = table
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// WithSleep 替换等待函数（测试中避免真实等待）
func WithSleep(sleep retry.SleepFunc) Option {
	return func(o *pipelineOptions) {
		o.sleep = sleep
	}
}
