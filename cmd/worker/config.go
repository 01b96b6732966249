package main

import (
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/config"
)

type Config struct {
	Database config.DatabaseConfig `mapstructure:"database"`
	Redis    config.RedisConfig    `mapstructure:"redis"`
	RabbitMQ config.RabbitMQConfig `mapstructure:"rabbitmq"`
	Logging  config.LoggingConfig  `mapstructure:"logging"`
	Domain   config.DomainConfig   `mapstructure:"domain"`
}

func (c *Config) ExpandEnv() {
	c.Database.ExpandEnv()
	c.Redis.ExpandEnv()
	c.RabbitMQ.ExpandEnv()
	c.Domain.ExpandEnv()
}

func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.RabbitMQ.Validate(); err != nil {
		return err
	}
	return c.Domain.Validate()
}

func loadConfig() Config {
	var cfg Config
	if err := config.Load("worker", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
