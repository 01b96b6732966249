package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/config"
)

type Config struct {
	IntervalsInMinutes struct {
		SyncLocations  uint64 `mapstructure:"sync_locations"`
		AutoReplySweep uint64 `mapstructure:"auto_reply_sweep"`
	} `mapstructure:"intervals_in_minutes"`
	OrchestratorGrpcHost string               `mapstructure:"orchestrator_grpc_host"`
	OrchestratorGrpcPort uint16               `mapstructure:"orchestrator_grpc_port"`
	Logging              config.LoggingConfig `mapstructure:"logging"`
}

func (c *Config) ExpandEnv() {
	c.OrchestratorGrpcHost = os.ExpandEnv(c.OrchestratorGrpcHost)
}

func (c *Config) Validate() error {
	if c.OrchestratorGrpcHost == "" || c.OrchestratorGrpcPort == 0 {
		return errors.New("orchestrator gRPC address is required")
	}
	if c.IntervalsInMinutes.SyncLocations == 0 {
		c.IntervalsInMinutes.SyncLocations = 60
	}
	if c.IntervalsInMinutes.AutoReplySweep == 0 {
		c.IntervalsInMinutes.AutoReplySweep = 15
	}
	return nil
}

func (c *Config) OrchestratorAddress() string {
	return fmt.Sprintf("%s:%d", c.OrchestratorGrpcHost, c.OrchestratorGrpcPort)
}

func loadConfig() Config {
	var cfg Config
	if err := config.Load("scheduler", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
