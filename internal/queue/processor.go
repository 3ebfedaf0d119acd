// Package queue 从消息队列消费翻译任务并发布结果
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
)

// 默认队列名
const (
	DefaultJobQueue    = "doctranslator.jobs"
	DefaultResultQueue = "doctranslator.results"
)

// ErrInterrupted 任务因 worker 停止而中断，消息应重新入队
var ErrInterrupted = errors.New("job interrupted by shutdown")

// Publisher 消息发布接口
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// Job 翻译任务消息，Document 以 base64 编码传输
type Job struct {
	ID         string `json:"id"`
	FileName   string `json:"file_name,omitempty"`
	Document   []byte `json:"document,omitempty"`
	Text       string `json:"text,omitempty"`
	SourceLang string `json:"source_lang,omitempty"`
	TargetLang string `json:"target_lang,omitempty"`
	MaxPages   int    `json:"max_pages,omitempty"`
}

// JobResult 任务结果消息
type JobResult struct {
	JobID  string                        `json:"job_id"`
	Result *translator.TranslationResult `json:"result,omitempty"`
	Error  string                        `json:"error,omitempty"`
}

// Processor 任务处理器
type Processor struct {
	coordinator *translator.TranslationCoordinator
	publisher   Publisher
	resultQueue string
	logger      *zap.Logger
}

// NewProcessor 创建任务处理器
func NewProcessor(coordinator *translator.TranslationCoordinator, publisher Publisher, resultQueue string, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resultQueue == "" {
		resultQueue = DefaultResultQueue
	}
	return &Processor{
		coordinator: coordinator,
		publisher:   publisher,
		resultQueue: resultQueue,
		logger:      logger.Named("queue"),
	}
}

// ProcessMessage 处理一条任务消息。
// 翻译失败会作为结果消息发布，只有消息无法解析或结果无法发布时才返回错误。
// ctx 取消导致的失败不发布结果，返回包装 ErrInterrupted 的错误。
func (p *Processor) ProcessMessage(ctx context.Context, body []byte) error {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("invalid job payload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	}

	log := p.logger.With(zap.String("job", job.ID), zap.String("file", job.FileName))
	log.Info("processing job",
		zap.String("source", job.SourceLang),
		zap.String("target", job.TargetLang),
		zap.Int("bytes", len(job.Document)))

	out := JobResult{JobID: job.ID}
	res, err := p.coordinator.Translate(ctx, translator.Request{
		FileName:   job.FileName,
		Data:       job.Document,
		Text:       job.Text,
		SourceLang: job.SourceLang,
		TargetLang: job.TargetLang,
		MaxPages:   job.MaxPages,
	}, translator.Hooks{
		OnProgress: func(current, total int) {
			log.Debug("segment translated", zap.Int("current", current), zap.Int("total", total))
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			log.Info("job interrupted", zap.Error(err))
			return fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		log.Warn("job failed", zap.Error(err))
		out.Error = err.Error()
	} else {
		out.Result = res
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode job result: %w", err)
	}
	if err := p.publisher.Publish(ctx, p.resultQueue, payload); err != nil {
		return fmt.Errorf("failed to publish job result: %w", err)
	}
	return nil
}

// Run 逐条处理投递的消息直到通道关闭或 ctx 取消。
// 任务按顺序处理，与分段翻译的串行约束一致。
// 停止时正在处理的任务重新入队，无法解析或无法发布结果的消息直接丢弃。
func (p *Processor) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				p.logger.Info("delivery channel closed")
				return nil
			}

			start := time.Now()
			err := p.ProcessMessage(ctx, d.Body)
			if errors.Is(err, ErrInterrupted) {
				p.logger.Info("requeueing interrupted message", zap.Uint64("tag", d.DeliveryTag))
				if nackErr := d.Nack(false, true); nackErr != nil {
					p.logger.Error("failed to requeue message", zap.Error(nackErr))
				}
				return ctx.Err()
			}
			if err != nil {
				p.logger.Error("failed to process message", zap.Error(err))
				// 无法解析的消息不重新入队
				if nackErr := d.Nack(false, false); nackErr != nil {
					p.logger.Error("failed to nack message", zap.Error(nackErr))
				}
				continue
			}

			if ackErr := d.Ack(false); ackErr != nil {
				p.logger.Error("failed to ack message", zap.Error(ackErr))
			}
			p.logger.Debug("message handled", zap.Duration("duration", time.Since(start)))
		}
	}
}
