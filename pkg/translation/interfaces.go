package translation

import (
	"context"
)

// Backend 翻译后端接口（远程接口、本地模型等可互相替换）
type Backend interface {
	// GetName 获取后端名称
	GetName() string

	// Initialize 初始化后端，onLoad 接收 0-100 的加载百分比
	Initialize(ctx context.Context, onLoad LoadProgressFunc) error

	// TranslateSegment 翻译单个片段，限流时返回包装 ErrRateLimited 的错误
	TranslateSegment(ctx context.Context, req *SegmentRequest) (string, error)
}

// SegmentRequest 单个片段的翻译请求，语言代码为外部接口格式
type SegmentRequest struct {
	Text   string
	Source string
	Target string
	Index  int // 片段序号（从 0 开始）
	Total  int
}

// LoadProgressFunc 加载进度回调（百分比）
type LoadProgressFunc func(percent int)

// ProgressFunc 翻译进度回调，每完成一个片段调用一次
type ProgressFunc func(current, total int)
