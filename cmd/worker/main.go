package main

import (
	"os"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/database"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/logger"
)

func main() {
	config := loadConfig()
	applicationLogger := logger.SetupLoggerWithFile(config.Logging.Level, logger.FileOptions{
		Path:       config.Logging.OutputFile,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
	})

	db, err := database.GormOpenWithPool(config.Database.DSN(), database.PoolConfig{
		MaxOpenConns:    config.Database.MaxOpenConnections,
		MaxIdleConns:    config.Database.MaxIdleConnections,
		ConnMaxLifetime: config.Database.ConnMaxLife,
	})
	if err != nil {
		applicationLogger.Error("db connect failed", "error", err.Error())
		os.Exit(1)
	}

	if config.Database.AutoMigrate {
		if err := database.RunMigrations(db, database.OwnedEntities()...); err != nil {
			applicationLogger.Error("db migrations failed", "error", err.Error())
			os.Exit(1)
		}
	}

	server, err := NewMessageProcessor(config, db, applicationLogger)
	if err != nil {
		applicationLogger.Error("Failed to create message processor", "error", err.Error())
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		applicationLogger.Error("Failed to start worker server", "error", err.Error())
		os.Exit(1)
	}
}
