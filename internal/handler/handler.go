// Package handler 实现文档翻译的 Lambda 入口
package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
)

// Request Lambda 翻译请求。
// Document 为原始文件字节（JSON 中为 base64），未携带文件时翻译 Text。
type Request struct {
	FileName   string `json:"fileName,omitempty"`
	Document   []byte `json:"document,omitempty"`
	Text       string `json:"text,omitempty"`
	SourceLang string `json:"sourceLang,omitempty"`
	TargetLang string `json:"targetLang,omitempty"`
	MaxPages   int    `json:"maxPages,omitempty"`
}

// Response Lambda 翻译响应
type Response struct {
	Result *translator.TranslationResult `json:"result,omitempty"`
	Error  string                        `json:"error,omitempty"`
}

// Handler 使用已加载的协调器处理翻译请求
type Handler struct {
	coordinator *translator.TranslationCoordinator
	warmer      *Warmer
	logger      *zap.Logger
}

// New 创建处理器，warmer 可以为 nil
func New(coordinator *translator.TranslationCoordinator, warmer *Warmer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{coordinator: coordinator, warmer: warmer, logger: logger.Named("lambda")}
}

// HandleEvent Lambda 原始事件入口
func (h *Handler) HandleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// 先识别预热事件
	if warmup, ok := IsWarmupEvent(event); ok {
		return h.warmer.Handle(ctx, warmup, h.coordinator.Ready()), nil
	}

	var req Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}
	return h.Handle(ctx, req)
}

// Handle 处理翻译请求。
// 失败写入 Response.Error，调用方总能拿到 JSON 响应体。
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return &Response{Error: err.Error()}, nil
	}

	res, err := h.coordinator.Translate(ctx, translator.Request{
		FileName:   req.FileName,
		Data:       req.Document,
		Text:       req.Text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		MaxPages:   req.MaxPages,
	}, translator.Hooks{})
	if err != nil {
		h.logger.Error("translation failed", zap.String("file", req.FileName), zap.Error(err))
		return &Response{Error: fmt.Sprintf("translation failed: %v", err)}, nil
	}

	return &Response{Result: res}, nil
}

func validateRequest(req Request) error {
	if len(req.Document) == 0 && req.Text == "" {
		return fmt.Errorf("document or text is required")
	}
	if len(req.Document) > 0 && req.FileName == "" {
		return fmt.Errorf("fileName is required with document")
	}
	if req.MaxPages < 0 {
		return fmt.Errorf("maxPages must not be negative")
	}
	return nil
}
