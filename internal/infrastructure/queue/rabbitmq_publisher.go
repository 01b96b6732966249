package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQPublisher struct {
	conn         *amqp.Connection
	ch           publishChannel
	primaryQueue string
	backoff      func(attempt int) time.Duration
}

func NewMQPublisher(amqpConnection *amqp.Connection, amqpChannel *amqp.Channel, queueName string) (*RabbitMQPublisher, error) {
	if err := declareJobQueue(amqpChannel, queueName); err != nil {
		_ = amqpChannel.Close()
		_ = amqpConnection.Close()
		return nil, err
	}
	if err := amqpChannel.Confirm(false); err != nil {
		_ = amqpChannel.Close()
		_ = amqpConnection.Close()
		return nil, fmt.Errorf("failed to enable publish confirms: %w", err)
	}

	publisher := newPublisher(amqpChannel, queueName)
	publisher.conn = amqpConnection
	return publisher, nil
}

func newPublisher(ch publishChannel, queueName string) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		ch:           ch,
		primaryQueue: queueName,
		backoff:      backoffDelay,
	}
}

func (p *RabbitMQPublisher) PublishBatch(ctx context.Context, jobs []Job) error {
	for _, job := range jobs {
		body, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
		}
		pub := amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    job.ID,
			Type:         job.Type,
		}
		if err := p.ch.PublishWithContext(ctx, "", p.primaryQueue, false, false, pub); err != nil {
			return err
		}
	}
	return nil
}

func (p *RabbitMQPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 1 * time.Second
	case 2:
		return 5 * time.Second
	case 3:
		return 30 * time.Second
	case 4:
		return 2 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// PublishWithRetry republishes the whole batch on failure. Workers dedupe by
// job lock, so a partially published batch is safe to resend.
func (p *RabbitMQPublisher) PublishWithRetry(ctx context.Context, jobs []Job, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.PublishBatch(ctx, jobs)
		if err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled: %w", err)
		case <-time.After(p.backoff(attempt)):
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", maxAttempts, err)
}
