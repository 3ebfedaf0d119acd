package translation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session 已初始化的翻译器句柄。
//
// 只能通过 Load 获得；零值或 nil 会话视为未就绪。
// 会话创建后只读，可在多个调用之间共享。
type Session struct {
	id       string
	backend  Backend
	ready    bool
	loadedAt time.Time
}

// Load 初始化后端并返回会话句柄。
//
// onLoad 收到的百分比单调不减并被限制在 0-100 之间，成功时最后一次一定是 100。
func Load(ctx context.Context, backend Backend, onLoad LoadProgressFunc) (*Session, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}

	reporter := newLoadReporter(onLoad)
	if err := backend.Initialize(ctx, reporter.report); err != nil {
		return nil, NewTranslationError(ErrCodeLoad, "failed to load translator "+backend.GetName(), err)
	}
	reporter.finish()

	return &Session{
		id:       uuid.New().String(),
		backend:  backend,
		ready:    true,
		loadedAt: time.Now(),
	}, nil
}

// Ready 会话是否可用
func (s *Session) Ready() bool {
	return s != nil && s.ready && s.backend != nil
}

// ID 会话标识
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Backend 返回会话使用的后端
func (s *Session) Backend() Backend {
	if s == nil {
		return nil
	}
	return s.backend
}

// LoadedAt 会话加载完成时间
func (s *Session) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// loadReporter 保证加载进度单调且有界
type loadReporter struct {
	fn   LoadProgressFunc
	last int
}

func newLoadReporter(fn LoadProgressFunc) *loadReporter {
	return &loadReporter{fn: fn, last: -1}
}

func (r *loadReporter) report(percent int) {
	if r.fn == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= r.last {
		return
	}
	r.last = percent
	r.fn(percent)
}

func (r *loadReporter) finish() {
	r.report(100)
}
