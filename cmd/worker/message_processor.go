package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/bootstrap"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/queue"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/worker"
	"github.com/common-nighthawk/go-figure"
	"gorm.io/gorm"
)

const consumeRetryDelay = 5 * time.Second

type MessageProcessor struct {
	config           Config
	logger           *slog.Logger
	db               *gorm.DB
	engine           *bootstrap.Engine
	processor        *worker.Processor
	rabbitMQConsumer *queue.RabbitMQConsumer
	shutdownChan     chan os.Signal
	ctx              context.Context
	cancel           context.CancelFunc
}

func NewMessageProcessor(config Config, db *gorm.DB, applicationLogger *slog.Logger) (*MessageProcessor, error) {
	ctx, cancel := context.WithCancel(context.Background())

	engine, err := bootstrap.NewEngine(ctx, db, bootstrap.NewRedisClient(config.Redis), config.Redis, config.Domain, applicationLogger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &MessageProcessor{
		config:           config,
		logger:           applicationLogger,
		db:               db,
		engine:           engine,
		processor:        worker.NewProcessor(engine.Syncs, engine.Policy, engine.Locker, config.Redis.WorkerLockTTL, applicationLogger),
		rabbitMQConsumer: queue.NewRabbitMQConsumer(queue.NewRabbitMQConfig(config.RabbitMQ), applicationLogger),
		shutdownChan:     make(chan os.Signal, 1),
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

func (m *MessageProcessor) Start() error {
	signal.Notify(m.shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		figure.NewFigure("WORKER", "", true).Print()
		m.logger.Info("Starting message consumption", "queue", m.config.RabbitMQ.Queue)
		m.consumeMessages()
	}()

	<-m.shutdownChan
	m.logger.Info("Received shutdown signal, starting graceful shutdown")

	return m.shutdown()
}

// consumeMessages resubscribes whenever the delivery channel closes; the
// consumer reconnects to RabbitMQ in the background.
func (m *MessageProcessor) consumeMessages() {
	for {
		deliveries, err := m.rabbitMQConsumer.Consume()
		if err == nil {
			err = queue.HandleDeliveries(m.ctx, deliveries, m.processor.Handle, m.logger)
		}
		if m.ctx.Err() != nil {
			return
		}
		m.logger.Error("Message consumption interrupted", "error", err)

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(consumeRetryDelay):
		}
	}
}

func (m *MessageProcessor) shutdown() error {
	m.logger.Info("Shutting down worker server")
	m.cancel()

	if err := m.rabbitMQConsumer.Close(); err != nil {
		m.logger.Error("Failed to close RabbitMQ consumer", "error", err)
	}
	if err := m.engine.Close(); err != nil {
		m.logger.Error("Failed to close engine", "error", err)
	}
	if sqlDB, err := m.db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	m.logger.Info("Worker server shutdown complete")
	return nil
}
