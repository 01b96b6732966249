// Package worker runs queue jobs against the application use cases.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/application/usecase"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/queue"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/ports"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
)

const defaultJobLockTTL = 15 * time.Minute

type LocationSyncer interface {
	SyncLocation(ctx context.Context, locationID string) ([]usecase.SyncOutcome, error)
}

type BusinessSweeper interface {
	RunSweepForBusiness(ctx context.Context, businessID string) usecase.SweepResult
}

type Processor struct {
	syncs   LocationSyncer
	sweeps  BusinessSweeper
	locker  ports.LockPort
	lockTTL time.Duration
	logger  *slog.Logger
}

func NewProcessor(syncs LocationSyncer, sweeps BusinessSweeper, locker ports.LockPort, lockTTL time.Duration, logger *slog.Logger) *Processor {
	if lockTTL <= 0 {
		lockTTL = defaultJobLockTTL
	}
	return &Processor{
		syncs:   syncs,
		sweeps:  sweeps,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

func jobLockKey(job queue.Job) string {
	return fmt.Sprintf("job_lock_%s", job.ID)
}

// Handle runs one job under a per-job lock. A job whose lock is held by
// another worker is a duplicate delivery and is skipped.
func (p *Processor) Handle(ctx context.Context, job queue.Job) error {
	p.logger.Info("Processing job", constants.MessageID, job.ID, "type", job.Type)

	lockKey := jobLockKey(job)
	locked, err := p.locker.Acquire(ctx, lockKey, p.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		p.logger.Warn("Job is already being processed, skipping", constants.MessageID, job.ID)
		return nil
	}
	defer func() {
		if err := p.locker.Release(context.Background(), lockKey); err != nil {
			p.logger.Error("Failed to release lock", constants.MessageID, job.ID, "error", err)
		}
	}()

	switch job.Type {
	case constants.MessageTypeSyncLocation:
		err = p.syncLocation(ctx, job)
	case constants.MessageTypeAutoReplySweep:
		err = p.sweepBusiness(ctx, job)
	default:
		p.logger.Warn("Unknown job type, skipping", "type", job.Type)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to process %s job: %w", job.Type, err)
	}

	p.logger.Info("Successfully processed job", constants.MessageID, job.ID, "type", job.Type)
	return nil
}

func (p *Processor) syncLocation(ctx context.Context, job queue.Job) error {
	outcomes, err := p.syncs.SyncLocation(ctx, job.LocationID)
	if errors.Is(err, usecase.ErrSyncInProgress) {
		p.logger.Info("Location sync already running, skipping", constants.LocationID, job.LocationID)
		return nil
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			failed++
		}
	}
	p.logger.Info("Location synced",
		constants.LocationID, job.LocationID,
		"connections", len(outcomes),
		"failed", failed)
	return nil
}

func (p *Processor) sweepBusiness(ctx context.Context, job queue.Job) error {
	result := p.sweeps.RunSweepForBusiness(ctx, job.BusinessID)
	p.logger.Info("Auto-reply sweep finished",
		constants.BusinessID, job.BusinessID,
		"evaluated", result.Evaluated,
		"approved", result.Approved,
		"posted", result.Posted,
		"errors", result.Errors,
		"duration", result.Duration)
	return ctx.Err()
}
