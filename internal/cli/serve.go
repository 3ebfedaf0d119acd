package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/queue"
	"github.com/nerdneilsfield/go-doc-translator/internal/server"
	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/factory"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 翻译服务",
		Long: `启动 HTTP 服务，提供文档上传翻译接口:
  POST /api/translate   multipart 表单 (file 或 text, source, target, max_pages)
  GET  /api/languages   支持的语言
  GET  /healthz         翻译后端是否已加载`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			coordinator, err := translator.NewFromConfig(cfg, log)
			if err != nil {
				return err
			}
			backendImpl, err := factory.New(log).CreateBackend(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// 后端在后台加载，加载完成前 /healthz 返回 503
			go func() {
				err := coordinator.Load(ctx, backendImpl, func(percent int) {
					log.Debug("backend loading", zap.Int("percent", percent))
				})
				if err != nil {
					log.Error("failed to load backend, requests will be rejected", zap.Error(err))
				}
			}()

			return server.New(coordinator, log).ListenAndServe(ctx, cfg.ListenAddr)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "监听地址，例如 :8080")
	return cmd
}

func newWorkerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "从 RabbitMQ 队列消费翻译任务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			coordinator, err := translator.NewFromConfig(cfg, log)
			if err != nil {
				return err
			}
			backendImpl, err := factory.New(log).CreateBackend(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := coordinator.Load(ctx, backendImpl, nil); err != nil {
				return err
			}

			log.Info("connecting to rabbitmq", zap.String("queue", cfg.JobQueue))
			mq, err := queue.Dial(cfg.AMQPURL)
			if err != nil {
				return err
			}
			defer func() {
				_ = mq.Close()
			}()

			deliveries, err := mq.Consume(cfg.JobQueue)
			if err != nil {
				return err
			}

			log.Info("worker started",
				zap.String("jobs", cfg.JobQueue),
				zap.String("results", cfg.ResultQueue))

			err = queue.NewProcessor(coordinator, mq, cfg.ResultQueue, log).Run(ctx, deliveries)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ 连接地址")
	return cmd
}
