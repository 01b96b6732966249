package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/config"
)

type Config struct {
	ServerHost string `mapstructure:"server_host"`
	ServerPort uint16 `mapstructure:"server_port"`

	Database config.DatabaseConfig `mapstructure:"database"`
	RabbitMQ config.RabbitMQConfig `mapstructure:"rabbitmq"`
	Logging  config.LoggingConfig  `mapstructure:"logging"`

	BatchSize    int  `mapstructure:"batch_size"`
	BatchDelayMs int  `mapstructure:"batch_delay_ms"`
	RunOnStart   bool `mapstructure:"run_on_start"`
}

func (c *Config) ExpandEnv() {
	c.ServerHost = os.ExpandEnv(c.ServerHost)
	c.Database.ExpandEnv()
	c.RabbitMQ.ExpandEnv()
}

func (c *Config) Validate() error {
	if c.ServerPort == 0 {
		return errors.New("orchestrator server port is required")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.RabbitMQ.Validate()
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

func loadConfig() Config {
	var cfg Config
	if err := config.Load("orchestrator", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
