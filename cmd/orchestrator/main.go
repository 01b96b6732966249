package main

import (
	"os"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/adapter"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/queue"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/orchestrator"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/database"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	config := loadConfig()

	applicationLogger := logger.SetupLoggerWithFile(config.Logging.Level, logger.FileOptions{
		Path:       config.Logging.OutputFile,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
	})

	amqpConnection, err := amqp.Dial(config.RabbitMQ.URL())
	if err != nil {
		applicationLogger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}

	amqpChannel, err := amqpConnection.Channel()
	if err != nil {
		applicationLogger.Error("Failed to open a channel", "error", err)
		_ = amqpConnection.Close()
		os.Exit(1)
	}

	publisher, err := queue.NewMQPublisher(amqpConnection, amqpChannel, config.RabbitMQ.Queue)
	if err != nil {
		applicationLogger.Error("Failed to create RabbitMQ publisher", "error", err)
		_ = amqpConnection.Close()
		os.Exit(1)
	}
	defer publisher.Close()

	db, err := database.GormOpenWithPool(config.Database.DSN(), database.PoolConfig{
		MaxOpenConns:    config.Database.MaxOpenConnections,
		MaxIdleConns:    config.Database.MaxIdleConnections,
		ConnMaxLifetime: config.Database.ConnMaxLife,
	})
	if err != nil {
		applicationLogger.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	service := orchestrator.NewService(
		publisher,
		adapter.NewGormConnectionRepository(db),
		adapter.NewGormReviewRepository(db),
		orchestrator.Options{
			BatchSize:        config.BatchSize,
			BatchDelay:       config.BatchDelay(),
			MaxRetryAttempts: config.RabbitMQ.MaxRetryAttempts,
		},
		applicationLogger,
	)

	server := &OrchestratorGRPCServer{
		config:  config,
		logger:  applicationLogger,
		service: service,
	}
	if err := server.Start(); err != nil {
		applicationLogger.Error("Failed to start orchestrator server", "error", err)
		os.Exit(1)
	}
}
