// Package stats 为翻译后端记录请求统计
package stats

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// 错误类型
const (
	ErrorRateLimited   = "rate_limited"
	ErrorRequestFailed = "request_failed"
	ErrorCanceled      = "canceled"
	ErrorTimeout       = "timeout"
	ErrorUnknown       = "unknown"
)

// Snapshot 统计快照
type Snapshot struct {
	Backend            string           `json:"backend"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	CharsIn            int64            `json:"chars_in"`
	CharsOut           int64            `json:"chars_out"`
	AverageLatency     time.Duration    `json:"average_latency"`
	MinLatency         time.Duration    `json:"min_latency"`
	MaxLatency         time.Duration    `json:"max_latency"`
	ErrorTypes         map[string]int64 `json:"error_types,omitempty"`
	LastRequestTime    time.Time        `json:"last_request_time,omitempty"`
}

// Reporter 可以提供统计快照的后端
type Reporter interface {
	Stats() Snapshot
}

// Middleware 统计中间件，包装任意后端
type Middleware struct {
	next translation.Backend
	now  func() time.Time

	mu           sync.Mutex
	total        int64
	success      int64
	failed       int64
	charsIn      int64
	charsOut     int64
	totalLatency time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
	errorTypes   map[string]int64
	last         time.Time
}

// NewMiddleware 创建统计中间件
func NewMiddleware(next translation.Backend) *Middleware {
	return &Middleware{
		next:       next,
		now:        time.Now,
		errorTypes: make(map[string]int64),
	}
}

// GetName 返回被包装后端的名称
func (m *Middleware) GetName() string {
	return m.next.GetName()
}

// Initialize 直接转发
func (m *Middleware) Initialize(ctx context.Context, onLoad translation.LoadProgressFunc) error {
	return m.next.Initialize(ctx, onLoad)
}

// TranslateSegment 带统计的翻译方法，每次调用（包括重试）各计一次
func (m *Middleware) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	start := m.now()
	out, err := m.next.TranslateSegment(ctx, req)
	m.record(utf8.RuneCountInString(req.Text), utf8.RuneCountInString(out), m.now().Sub(start), err)
	return out, err
}

func (m *Middleware) record(in, out int, latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.last = m.now()
	m.charsIn += int64(in)
	m.totalLatency += latency
	if m.total == 1 || latency < m.minLatency {
		m.minLatency = latency
	}
	if latency > m.maxLatency {
		m.maxLatency = latency
	}

	if err != nil {
		m.failed++
		m.errorTypes[classifyError(err)]++
		return
	}
	m.success++
	m.charsOut += int64(out)
}

// Stats 返回当前统计的副本
func (m *Middleware) Stats() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Backend:            m.next.GetName(),
		TotalRequests:      m.total,
		SuccessfulRequests: m.success,
		FailedRequests:     m.failed,
		CharsIn:            m.charsIn,
		CharsOut:           m.charsOut,
		MinLatency:         m.minLatency,
		MaxLatency:         m.maxLatency,
		LastRequestTime:    m.last,
	}
	if m.total > 0 {
		snap.AverageLatency = m.totalLatency / time.Duration(m.total)
	}
	if len(m.errorTypes) > 0 {
		snap.ErrorTypes = make(map[string]int64, len(m.errorTypes))
		for k, v := range m.errorTypes {
			snap.ErrorTypes[k] = v
		}
	}
	return snap
}

// classifyError 分类错误类型
func classifyError(err error) string {
	var reqErr *translation.RequestFailedError
	switch {
	case translation.IsRateLimited(err):
		return ErrorRateLimited
	case errors.Is(err, context.Canceled):
		return ErrorCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.As(err, &reqErr):
		return ErrorRequestFailed
	default:
		return ErrorUnknown
	}
}
