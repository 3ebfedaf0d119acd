// Package raw 提供原样返回文本的后端，用于调试与离线测试
package raw

import (
	"context"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// Name 后端名称
const Name = "raw"

// Provider Raw 后端实现（跳过翻译，直接返回原文）
type Provider struct{}

// New 创建新的 Raw 后端
func New() *Provider {
	return &Provider{}
}

// GetName 获取后端名称
func (p *Provider) GetName() string {
	return Name
}

// Initialize 无需加载
func (p *Provider) Initialize(ctx context.Context, onProgress translation.LoadProgressFunc) error {
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// TranslateSegment 直接返回原文
func (p *Provider) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return req.Text, nil
}
