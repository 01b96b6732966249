package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/config"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/metrics"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const consumerTag = "review-reply-worker"

var ErrConsumerClosed = errors.New("consumer is closed")

var _ ConsumerPort = (*RabbitMQConsumer)(nil)

type ConsumerPort interface {
	Consume() (<-chan amqp.Delivery, error)
	Close() error
	HealthCheck() error
}

// JobHandler runs one decoded job. A returned error dead-letters the
// delivery; the next scheduled enqueue picks the work up again.
type JobHandler func(ctx context.Context, job Job) error

type RabbitMQConfig struct {
	URL               string
	QueueName         string
	PrefetchCount     int
	RetryBaseDelay    time.Duration
	MaxRetryDelay     time.Duration
	ConnectionTimeout time.Duration
	HeartbeatInterval time.Duration
	ReconnectInterval time.Duration
	MaxDialAttempts   int
}

func NewRabbitMQConfig(cfg config.RabbitMQConfig) *RabbitMQConfig {
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}
	attempts := cfg.MaxRetryAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &RabbitMQConfig{
		URL:               cfg.URL(),
		QueueName:         cfg.Queue,
		PrefetchCount:     prefetch,
		RetryBaseDelay:    time.Second,
		MaxRetryDelay:     30 * time.Second,
		ConnectionTimeout: 10 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		ReconnectInterval: 5 * time.Second,
		MaxDialAttempts:   attempts,
	}
}

// RabbitMQConsumer keeps one channel open on the job queue and re-dials in
// the background whenever the broker drops the connection.
type RabbitMQConsumer struct {
	config  *RabbitMQConfig
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	dropped chan *amqp.Error

	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRabbitMQConsumer(cfg *RabbitMQConfig, logger *slog.Logger) *RabbitMQConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	c := &RabbitMQConsumer{
		config: cfg,
		logger: logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "rabbitmq-consume",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		ctx:    ctx,
		cancel: cancel,
	}

	if err := c.dial(); err != nil {
		logger.Error("Initial RabbitMQ connection failed", "error", err)
	}
	go c.supervise()
	return c
}

// dial retries with exponential backoff until connected, closed, or out of
// attempts.
func (c *RabbitMQConsumer) dial() error {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxDialAttempts; attempt++ {
		if c.closed.Load() {
			return ErrConsumerClosed
		}
		if lastErr = c.open(); lastErr == nil {
			c.logger.Info("Connected to RabbitMQ", "queue", c.config.QueueName, "attempt", attempt)
			return nil
		}
		metrics.QueueReconnects.Inc()
		c.logger.Warn("RabbitMQ connection attempt failed", "attempt", attempt, "max_attempts", c.config.MaxDialAttempts, "error", lastErr)

		if attempt < c.config.MaxDialAttempts {
			select {
			case <-c.ctx.Done():
				return c.ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", c.config.MaxDialAttempts, lastErr)
}

func (c *RabbitMQConsumer) open() error {
	conn, err := amqp.DialConfig(c.config.URL, amqp.Config{
		Heartbeat: c.config.HeartbeatInterval,
		Dial:      amqp.DefaultDial(c.config.ConnectionTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareJobQueue(ch, c.config.QueueName); err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.Qos(c.config.PrefetchCount, 0, false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() {
		_ = c.conn.Close()
	}
	c.conn, c.channel = conn, ch
	c.dropped = conn.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// supervise re-dials as soon as the broker closes the connection, and on a
// ticker in case the initial dial never succeeded.
func (c *RabbitMQConsumer) supervise() {
	ticker := time.NewTicker(c.config.ReconnectInterval)
	defer ticker.Stop()
	for {
		c.mu.RLock()
		dropped := c.dropped
		c.mu.RUnlock()

		select {
		case <-c.ctx.Done():
			return
		case amqpErr, ok := <-dropped:
			if ok && amqpErr != nil {
				c.logger.Warn("RabbitMQ connection lost", "error", amqpErr)
			}
			c.mu.Lock()
			c.dropped = nil
			c.mu.Unlock()
		case <-ticker.C:
		}

		if c.HealthCheck() != nil && !c.closed.Load() {
			if err := c.dial(); err != nil {
				c.logger.Error("RabbitMQ reconnection failed", "error", err)
			}
		}
	}
}

func (c *RabbitMQConsumer) backoff(attempt int) time.Duration {
	delay := c.config.RetryBaseDelay << (attempt - 1)
	if delay <= 0 || delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}

func (c *RabbitMQConsumer) Consume() (<-chan amqp.Delivery, error) {
	if c.closed.Load() {
		return nil, ErrConsumerClosed
	}
	result, err := c.breaker.Execute(func() (any, error) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.channel == nil || c.channel.IsClosed() {
			return nil, errors.New("channel is not available")
		}
		deliveries, err := c.channel.Consume(c.config.QueueName, consumerTag, false, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to start consuming: %w", err)
		}
		return deliveries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(<-chan amqp.Delivery), nil
}

func (c *RabbitMQConsumer) HealthCheck() error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("connection is not available")
	}
	if c.channel == nil || c.channel.IsClosed() {
		return errors.New("channel is not available")
	}
	return nil
}

func (c *RabbitMQConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Cancel(consumerTag, false); err != nil {
			errs = append(errs, fmt.Errorf("failed to cancel consumer: %w", err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	c.logger.Info("RabbitMQ consumer closed")
	return nil
}

// HandleDeliveries decodes and dispatches deliveries until ctx is done or
// the channel closes. Malformed and failed jobs are dead-lettered.
func HandleDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery, handle JobHandler, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			handleDelivery(ctx, delivery, handle, logger)
		}
	}
}

func handleDelivery(ctx context.Context, delivery amqp.Delivery, handle JobHandler, logger *slog.Logger) {
	job, err := DecodeJob(delivery.Body)
	if err != nil {
		logger.Warn("Discarding malformed job", constants.MessageID, delivery.MessageId, "error", err)
		metrics.JobsProcessed.WithLabelValues("unknown", "invalid").Inc()
		_ = delivery.Nack(false, false)
		return
	}

	if err := handle(ctx, job); err != nil {
		logger.Error("Job failed, sent to dead letter queue",
			constants.MessageID, job.ID,
			"type", job.Type,
			"request_id", job.RequestID,
			"error", err)
		metrics.JobsProcessed.WithLabelValues(job.Type, "failed").Inc()
		_ = delivery.Nack(false, false)
		return
	}
	metrics.JobsProcessed.WithLabelValues(job.Type, "success").Inc()
	_ = delivery.Ack(false)
}
