package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/queue"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
	"github.com/google/uuid"
)

type JobPublisher interface {
	PublishWithRetry(ctx context.Context, jobs []queue.Job, maxAttempts int) error
}

type LocationLister interface {
	ListActiveLocations(ctx context.Context, afterLocationID string, limit int) ([]string, error)
}

type BusinessLister interface {
	ListBusinessesWithPendingReplies(ctx context.Context, afterBusinessID string, limit int) ([]string, error)
}

type Options struct {
	BatchSize        int
	BatchDelay       time.Duration
	MaxRetryAttempts int
}

// Service turns scheduler triggers into queue jobs: one sync job per location
// with an active connection, one sweep job per business with replies to
// decide or post.
type Service struct {
	publisher  JobPublisher
	locations  LocationLister
	businesses BusinessLister
	options    Options
	logger     *slog.Logger
}

func NewService(publisher JobPublisher, locations LocationLister, businesses BusinessLister, options Options, logger *slog.Logger) *Service {
	if options.BatchSize <= 0 {
		options.BatchSize = 500
	}
	if options.MaxRetryAttempts <= 0 {
		options.MaxRetryAttempts = 3
	}
	return &Service{
		publisher:  publisher,
		locations:  locations,
		businesses: businesses,
		options:    options,
		logger:     logger,
	}
}

func (s *Service) Enqueue(ctx context.Context, req *EnqueueRequest) (*EnqueueResponse, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	switch req.JobType {
	case constants.MessageTypeSyncLocation, constants.MessageTypeAutoReplySweep:
	default:
		return &EnqueueResponse{
			Success:   false,
			Message:   fmt.Sprintf("invalid job type %q", req.JobType),
			RequestID: requestID,
		}, nil
	}

	jobsCreated, jobs, err := s.enqueueJobs(ctx, req.JobType, requestID)
	if err != nil {
		s.logger.Error("Enqueue failed", "error", err, "request_id", requestID, "job_type", req.JobType)
		return &EnqueueResponse{
			Success:     false,
			Message:     fmt.Sprintf("enqueue failed: %v", err),
			RequestID:   requestID,
			JobsCreated: int32(jobsCreated),
			Jobs:        jobs,
		}, nil
	}
	if jobsCreated > 0 {
		s.logger.Info("Jobs enqueued", "request_id", requestID, "job_type", req.JobType, "jobs_created", jobsCreated)
	}

	return &EnqueueResponse{
		Success:     true,
		Message:     "jobs enqueued",
		RequestID:   requestID,
		JobsCreated: int32(jobsCreated),
		Jobs:        jobs,
	}, nil
}

func (s *Service) GetHealthStatus(_ context.Context, _ *HealthRequest) (*HealthResponse, error) {
	return &HealthResponse{Status: "healthy"}, nil
}

// RunOnce enqueues every job type once; used at orchestrator start-up.
func (s *Service) RunOnce(ctx context.Context) {
	requestID := uuid.NewString()
	syncJobs, _, err := s.enqueueJobs(ctx, constants.MessageTypeSyncLocation, requestID)
	if err != nil {
		s.logger.Error("Sync job batch failed", "error", err)
		return
	}
	sweepJobs, _, err := s.enqueueJobs(ctx, constants.MessageTypeAutoReplySweep, requestID)
	if err != nil {
		s.logger.Error("Auto-reply job batch failed", "error", err)
		return
	}
	s.logger.Info("Initial jobs published", "sync_jobs", syncJobs, "auto_reply_jobs", sweepJobs)
}

func (s *Service) enqueueJobs(ctx context.Context, jobType, requestID string) (int, []JobInfo, error) {
	jobsTotal := 0
	jobInfos := make([]JobInfo, 0)
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return jobsTotal, jobInfos, err
		}

		var (
			ids []string
			err error
		)
		if jobType == constants.MessageTypeSyncLocation {
			ids, err = s.locations.ListActiveLocations(ctx, after, s.options.BatchSize)
		} else {
			ids, err = s.businesses.ListBusinessesWithPendingReplies(ctx, after, s.options.BatchSize)
		}
		if err != nil {
			return jobsTotal, jobInfos, fmt.Errorf("failed to list %s targets: %w", jobType, err)
		}
		if len(ids) == 0 {
			break
		}

		jobs := make([]queue.Job, 0, len(ids))
		for _, id := range ids {
			var job queue.Job
			info := JobInfo{JobType: jobType, Status: JobStatusPending}
			if jobType == constants.MessageTypeSyncLocation {
				job = queue.NewSyncLocationJob(id, requestID)
				info.LocationID = id
			} else {
				job = queue.NewAutoReplySweepJob(id, requestID)
				info.BusinessID = id
			}
			info.JobID = job.ID
			jobs = append(jobs, job)
			jobInfos = append(jobInfos, info)
		}

		if err := s.publisher.PublishWithRetry(ctx, jobs, s.options.MaxRetryAttempts); err != nil {
			return jobsTotal, jobInfos[:jobsTotal], err
		}
		jobsTotal += len(jobs)

		if len(ids) < s.options.BatchSize {
			break
		}
		after = ids[len(ids)-1]

		if s.options.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return jobsTotal, jobInfos, ctx.Err()
			case <-time.After(s.options.BatchDelay):
			}
		}
	}
	return jobsTotal, jobInfos, nil
}
