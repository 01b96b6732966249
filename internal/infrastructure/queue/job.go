package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
)

var ErrInvalidJob = errors.New("invalid job")

// Job is one unit of background work carried over RabbitMQ.
type Job struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	LocationID string    `json:"locationId,omitempty"`
	BusinessID string    `json:"businessId,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func NewSyncLocationJob(locationID, requestID string) Job {
	return Job{
		ID:         constants.MessageTypeSyncLocation + "_" + locationID,
		Type:       constants.MessageTypeSyncLocation,
		LocationID: locationID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC(),
	}
}

func NewAutoReplySweepJob(businessID, requestID string) Job {
	return Job{
		ID:         constants.MessageTypeAutoReplySweep + "_" + businessID,
		Type:       constants.MessageTypeAutoReplySweep,
		BusinessID: businessID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (j Job) Validate() error {
	switch j.Type {
	case constants.MessageTypeSyncLocation:
		if j.LocationID == "" {
			return fmt.Errorf("%w: %s job without location id", ErrInvalidJob, j.Type)
		}
	case constants.MessageTypeAutoReplySweep:
		if j.BusinessID == "" {
			return fmt.Errorf("%w: %s job without business id", ErrInvalidJob, j.Type)
		}
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidJob, j.Type)
	}
	return nil
}

func DecodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return job, job.Validate()
}
