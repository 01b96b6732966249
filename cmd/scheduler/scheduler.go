package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/grpcjson"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/orchestrator"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/jasonlvhit/gocron"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const triggerTimeout = time.Minute

type Scheduler struct {
	config       Config
	orchestrator orchestrator.OrchestratorServiceClient
	scheduler    *gocron.Scheduler
	logger       *slog.Logger
}

func NewScheduler(config Config, logger *slog.Logger) (*Scheduler, error) {
	grpcjson.Register()

	grpcConnection, err := grpc.NewClient(config.OrchestratorAddress(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(grpcjson.Codec{})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to orchestrator: %w", err)
	}

	s := newScheduler(config, orchestrator.NewOrchestratorServiceClient(grpcConnection), logger)
	if err := s.setupSchedules(); err != nil {
		return nil, fmt.Errorf("failed to setup schedules: %w", err)
	}
	return s, nil
}

func newScheduler(config Config, client orchestrator.OrchestratorServiceClient, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		config:       config,
		orchestrator: client,
		scheduler:    gocron.NewScheduler(),
		logger:       logger,
	}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	figure.NewFigure("SCHEDULER", "", true).Print()
	s.logger.Info("Scheduler started", "orchestrator", s.config.OrchestratorAddress())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	s.logger.Info("Shutting down scheduler")
	s.scheduler.Clear()
}

// trigger asks the orchestrator to enqueue one round of jobType. Failures are
// logged; the next tick tries again.
func (s *Scheduler) trigger(ctx context.Context, jobType string) *orchestrator.EnqueueResponse {
	requestID := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, triggerTimeout)
	defer cancel()

	resp, err := s.orchestrator.Enqueue(ctx, &orchestrator.EnqueueRequest{
		RequestID: requestID,
		JobType:   jobType,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		s.logger.Error("Failed to trigger enqueue", "type", jobType, "request_id", requestID, "error", err)
		return nil
	}
	if !resp.Success {
		s.logger.Warn("Orchestrator rejected enqueue", "type", jobType, "request_id", requestID, "message", resp.Message)
		return resp
	}
	s.logger.Info("Enqueue triggered", "type", jobType, "request_id", requestID, "jobs_created", resp.JobsCreated)
	return resp
}

func (s *Scheduler) setupSchedules() error {
	schedules := []struct {
		jobType  string
		interval uint64
	}{
		{constants.MessageTypeSyncLocation, s.config.IntervalsInMinutes.SyncLocations},
		{constants.MessageTypeAutoReplySweep, s.config.IntervalsInMinutes.AutoReplySweep},
	}

	for _, schedule := range schedules {
		jobType := schedule.jobType
		if err := s.scheduler.Every(schedule.interval).Minutes().Do(func() {
			s.trigger(context.Background(), jobType)
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", jobType, err)
		}
		s.logger.Info("Scheduled job", "type", jobType, "interval_minutes", schedule.interval)
	}
	return nil
}
