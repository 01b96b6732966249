package review

import (
	"context"
	"time"
)

// Filter selects a keyset-paginated batch of reviews in one reply status.
type Filter struct {
	Status        ReplyStatus
	BusinessID    string
	AfterID       string
	// ChangedBefore, when set, keeps only reviews whose reply status last
	// changed strictly before it.
	ChangedBefore time.Time
	Limit         int
}

type Repository interface {
	FindByID(ctx context.Context, id string) (*Review, error)
	FindByExternalID(ctx context.Context, platform, externalID, locationID string) (*Review, error)
	// Create inserts r unless a row with the same (platform, external_id,
	// location_id) already exists, in which case it reports created=false.
	Create(ctx context.Context, r *Review) (created bool, err error)
	// UpdateIngested refreshes the platform-owned fields of r; with
	// includeReply it also stores the mirrored platform reply.
	UpdateIngested(ctx context.Context, r *Review, includeReply bool) error
	// SaveReplyState persists the reply fields of r, refusing with
	// ErrInvalidTransition when the stored row is already terminal.
	SaveReplyState(ctx context.Context, r *Review) error
	FindByStatus(ctx context.Context, filter Filter) ([]*Review, error)
	CountRepliedSince(ctx context.Context, businessID, locationID string, since time.Time) (int64, error)
	// ListBusinessesWithPendingReplies pages through business ids owning
	// unprocessed or approved reviews.
	ListBusinessesWithPendingReplies(ctx context.Context, afterBusinessID string, limit int) ([]string, error)
}

type ReplyRecordRepository interface {
	Create(ctx context.Context, record *ReplyRecord) error
	UpdateStatus(ctx context.Context, id string, status RecordStatus, errMessage *string) error
	// FindLatestOpen returns the newest draft or approved record of a review.
	FindLatestOpen(ctx context.Context, reviewID string) (*ReplyRecord, error)
	ListByReview(ctx context.Context, reviewID string) ([]*ReplyRecord, error)
}
