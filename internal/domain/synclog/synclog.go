package synclog

import (
	"context"
	"time"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// SyncLog is the append-only record of one connection's sync run.
type SyncLog struct {
	ID               string
	SourceID         string
	LocationID       string
	Platform         string
	Status           Status
	ReviewsSynced    int
	ReviewsFailed    int
	ErrorMessage     *string
	ErrorStack       *string
	RequestSnapshot  map[string]any
	ResponseSnapshot map[string]any
	StartedAt        time.Time
	FinishedAt       time.Time
	DurationMs       int64
}

type Repository interface {
	Append(ctx context.Context, log *SyncLog) error
}
