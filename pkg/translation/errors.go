package translation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerdneilsfield/go-doc-translator/pkg/retry"
)

// 预定义错误
var (
	// ErrNotReady 翻译器未初始化
	ErrNotReady = errors.New("translator not initialized")

	// ErrRateLimited 远程接口限流
	ErrRateLimited = errors.New("rate limited")

	// ErrTranslationFailed 文档级翻译失败
	ErrTranslationFailed = errors.New("translation failed")

	// ErrNoBackend 未配置翻译后端
	ErrNoBackend = errors.New("translation backend not configured")
)

// 错误代码常量
const (
	ErrCodeLoad              = "LOAD_ERROR"
	ErrCodeTranslationFailed = "TRANSLATION_FAILED"
)

// RequestFailedError 远程请求失败（非成功状态码或响应格式错误）
type RequestFailedError struct {
	StatusCode int    // HTTP 或接口内嵌的状态码，0 表示无状态码
	Reason     string // 失败原因
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Reason)
	}
	return "request failed: " + e.Reason
}

// NewRequestFailedError 创建请求失败错误
func NewRequestFailedError(statusCode int, reason string) *RequestFailedError {
	return &RequestFailedError{StatusCode: statusCode, Reason: reason}
}

// NewRateLimitedError 创建限流错误，status 为远程返回的状态描述
func NewRateLimitedError(status string) error {
	if status == "" {
		return ErrRateLimited
	}
	return fmt.Errorf("%w: %s", ErrRateLimited, status)
}

// IsRateLimited 判断是否为限流错误
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// TranslationError 翻译错误
type TranslationError struct {
	Code    string // 错误代码
	Message string // 错误消息
	Cause   error  // 原因
	Segment int    // 失败片段序号（从 1 开始），0 表示与片段无关
	Total   int    // 片段总数
}

// Error 实现error接口，保留底层错误消息
func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Segment > 0 {
		msg += fmt.Sprintf(" at segment %d/%d", e.Segment, e.Total)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回原因错误
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// Is 文档级失败可以用 errors.Is(err, ErrTranslationFailed) 判断
func (e *TranslationError) Is(target error) bool {
	return target == ErrTranslationFailed && e.Code == ErrCodeTranslationFailed
}

// NewTranslationError 创建翻译错误
func NewTranslationError(code, message string, cause error) *TranslationError {
	return &TranslationError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// DefaultClassifier 默认的错误分类：
// 限流按 attempt × base 线性退避，上下文取消不重试，其他错误立即重试。
func DefaultClassifier(base time.Duration) retry.Classifier {
	return func(err error, attempt int) retry.Decision {
		switch {
		case errors.Is(err, context.Canceled):
			return retry.Fatal()
		case errors.Is(err, ErrNotReady):
			return retry.Fatal()
		case IsRateLimited(err):
			return retry.RetryAfter(retry.LinearDelay(attempt, base))
		default:
			return retry.RetryImmediate()
		}
	}
}
