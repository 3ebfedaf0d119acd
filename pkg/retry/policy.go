package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts 默认最大尝试次数（含首次请求）
const DefaultMaxAttempts = 3

// DefaultBaseDelay 默认退避基准延迟
const DefaultBaseDelay = 2 * time.Second

// Action 失败后的处理方式
type Action int

const (
	ActionFatal          Action = iota // 不可重试，立即返回
	ActionRetryImmediate               // 立即重试
	ActionRetryDelayed                 // 等待后重试
)

func (a Action) String() string {
	switch a {
	case ActionRetryImmediate:
		return "retry_immediate"
	case ActionRetryDelayed:
		return "retry_delayed"
	default:
		return "fatal"
	}
}

// Decision 分类器对一次失败给出的决定
type Decision struct {
	Action Action
	Delay  time.Duration
}

// Fatal 不重试
func Fatal() Decision {
	return Decision{Action: ActionFatal}
}

// RetryImmediate 立即重试
func RetryImmediate() Decision {
	return Decision{Action: ActionRetryImmediate}
}

// RetryAfter 等待 d 后重试
func RetryAfter(d time.Duration) Decision {
	return Decision{Action: ActionRetryDelayed, Delay: d}
}

// Classifier 将第 attempt 次（从 1 开始）尝试的错误映射为处理决定
type Classifier func(err error, attempt int) Decision

// SleepFunc 可被上下文打断的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep 默认等待实现
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LinearDelay 线性退避：attempt × base
func LinearDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * base
}

// Policy 重试策略，与具体的远程接口无关
type Policy struct {
	// MaxAttempts 最大尝试次数（总次数，包括第一次）
	MaxAttempts int

	// Classify 错误分类，为空时所有错误都立即重试
	Classify Classifier

	// Sleep 等待函数，为空时使用 Sleep
	Sleep SleepFunc

	// OnRetry 每次安排重试前回调
	OnRetry func(attempt int, decision Decision, err error)
}

// ExhaustedError 重试次数耗尽
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap 返回最后一次的错误
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted 判断错误是否由重试耗尽导致
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Do 按策略执行 fn。
//
// 成功时返回结果；分类为 Fatal 的错误原样返回；
// 尝试次数用尽时返回包装最后一次错误的 *ExhaustedError。
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	classify := p.Classify
	if classify == nil {
		classify = func(error, int) Decision { return RetryImmediate() }
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		decision := classify(err, attempt)
		if decision.Action == ActionFatal {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, decision, err)
		}

		if decision.Action == ActionRetryDelayed {
			if err := sleep(ctx, decision.Delay); err != nil {
				return zero, err
			}
		}
	}

	return zero, &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}
