package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ 单连接单通道的 RabbitMQ 客户端
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial 连接 RabbitMQ 并打开通道
func Dial(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &RabbitMQ{conn: conn, ch: ch}, nil
}

// Consume 声明持久队列并开始消费，每次只预取一条消息
func (r *RabbitMQ) Consume(queue string) (<-chan amqp.Delivery, error) {
	if _, err := r.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := r.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	return r.ch.Consume(queue, "", false, false, false, false, nil)
}

// Publish 发布 JSON 消息
func (r *RabbitMQ) Publish(ctx context.Context, queue string, body []byte) error {
	if _, err := r.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	err := r.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close 关闭通道与连接
func (r *RabbitMQ) Close() error {
	var firstErr error
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
