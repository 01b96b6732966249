package main

import (
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/config"
)

type Config struct {
	Server            config.ServerConfig   `mapstructure:"server"`
	Database          config.DatabaseConfig `mapstructure:"database"`
	Redis             config.RedisConfig    `mapstructure:"redis"`
	Logging           config.LoggingConfig  `mapstructure:"logging"`
	Domain            config.DomainConfig   `mapstructure:"domain"`
	RequestsPerMinute int                   `mapstructure:"requests_per_minute"`
	TrustedProxies    []string              `mapstructure:"trusted_proxies"`
}

func (c *Config) ExpandEnv() {
	c.Database.ExpandEnv()
	c.Redis.ExpandEnv()
	c.Domain.ExpandEnv()
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Domain.Validate()
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := config.Load("api", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
