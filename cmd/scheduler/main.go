package main

import (
	"os"

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

	jobScheduler, err := NewScheduler(config, applicationLogger)
	if err != nil {
		applicationLogger.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}

	jobScheduler.Start()
}
