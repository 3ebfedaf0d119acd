// Package main 文档翻译 Lambda 函数入口
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/handler"
	"github.com/nerdneilsfield/go-doc-translator/internal/logger"
	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/factory"
)

func main() {
	ctx := context.Background()

	// 配置来自 DOCTRANSLATOR_* 环境变量
	cfg, err := config.LoadConfig("")
	if err != nil {
		logger.NewLogger(false).Fatal("failed to load config", zap.Error(err))
	}

	log := logger.NewLogger(cfg.Debug)
	defer func() {
		_ = log.Sync()
	}()

	coordinator, err := translator.NewFromConfig(cfg, log)
	if err != nil {
		log.Fatal("failed to create coordinator", zap.Error(err))
	}

	backend, err := factory.New(log).CreateBackend(cfg)
	if err != nil {
		log.Fatal("failed to create backend", zap.Error(err))
	}

	// 冷启动时加载一次，后续调用复用会话
	if err := coordinator.Load(ctx, backend, nil); err != nil {
		log.Fatal("failed to load backend", zap.Error(err))
	}

	warmer, err := handler.NewSDKWarmer(ctx, cfg.WarmupMaxConcurrency)
	if err != nil {
		log.Warn("aws config unavailable, warmup will not fan out", zap.Error(err))
		warmer = nil
	}

	lambda.Start(handler.New(coordinator, warmer, log).HandleEvent)
}
