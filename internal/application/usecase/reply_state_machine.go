package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/metrics"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
)

const defaultPostTimeout = 30 * time.Second

// ReplyStateMachine owns every write to a review's reply fields and to its
// reply records. Posted and rejected are terminal.
type ReplyStateMachine struct {
	reviews     review.Repository
	replies     review.ReplyRecordRepository
	connections connection.Repository
	adapters    *platform.Registry
	postTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func NewReplyStateMachine(
	reviews review.Repository,
	replies review.ReplyRecordRepository,
	connections connection.Repository,
	adapters *platform.Registry,
	logger *slog.Logger,
) *ReplyStateMachine {
	return &ReplyStateMachine{
		reviews:     reviews,
		replies:     replies,
		connections: connections,
		adapters:    adapters,
		postTimeout: defaultPostTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// WithPostTimeout bounds the platform call made when posting a reply.
func (uc *ReplyStateMachine) WithPostTimeout(timeout time.Duration) *ReplyStateMachine {
	if timeout > 0 {
		uc.postTimeout = timeout
	}
	return uc
}

type ManualReplyOptions struct {
	AuthorType review.AuthorType
	SourceType review.SourceType
	UserID     *string
}

// Ingest upserts a platform review by (platform, externalID, locationID).
// New reviews start unprocessed. A reply already present on the platform is
// mirrored onto the review and marks it posted.
func (uc *ReplyStateMachine) Ingest(ctx context.Context, in review.Incoming) (*review.Review, bool, error) {
	if err := validateIncoming(in); err != nil {
		return nil, false, err
	}

	existing, err := uc.reviews.FindByExternalID(ctx, in.Platform, in.ExternalID, in.LocationID)
	if err != nil && !errors.Is(err, review.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up review: %w", err)
	}

	if existing == nil {
		r := &review.Review{
			BusinessID:  in.BusinessID,
			LocationID:  in.LocationID,
			SourceID:    in.SourceID,
			Platform:    in.Platform,
			ExternalID:  in.ExternalID,
			Author:      in.Author,
			Rating:      in.Rating,
			Content:     in.Content,
			PublishedAt: in.PublishedAt,
			Tags:        in.Tags,
		}
		sentiment := string(review.ClassifyRating(in.Rating))
		r.Sentiment = &sentiment
		uc.mirrorExistingReply(r, in)

		created, err := uc.reviews.Create(ctx, r)
		if err != nil {
			return nil, false, fmt.Errorf("failed to create review: %w", err)
		}
		if created {
			uc.logger.Debug("Review ingested", constants.ReviewID, r.ID, constants.Platform, r.Platform)
			return r, true, nil
		}
		// A concurrent ingest inserted the same review first.
		existing, err = uc.reviews.FindByExternalID(ctx, in.Platform, in.ExternalID, in.LocationID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload review: %w", err)
		}
	}

	existing.Author = in.Author
	existing.Rating = in.Rating
	sentiment := string(review.ClassifyRating(in.Rating))
	existing.Sentiment = &sentiment
	existing.Content = in.Content
	existing.PublishedAt = in.PublishedAt
	if in.SourceID != "" {
		existing.SourceID = in.SourceID
	}
	if in.Tags != nil {
		existing.Tags = in.Tags
	}
	previous := existing.ReplyStatus
	mirrored := uc.mirrorExistingReply(existing, in)

	if err := uc.reviews.UpdateIngested(ctx, existing, mirrored); err != nil {
		return nil, false, fmt.Errorf("failed to update review: %w", err)
	}
	if previous != existing.ReplyStatus {
		if err := uc.reviews.SaveReplyState(ctx, existing); err != nil {
			return nil, false, err
		}
		metrics.ReplyTransitions.WithLabelValues(existing.ReplyStatus.String()).Inc()
	}
	return existing, false, nil
}

func validateIncoming(in review.Incoming) error {
	switch {
	case in.Platform == "":
		return fmt.Errorf("%w: platform is required", review.ErrValidation)
	case in.ExternalID == "":
		return fmt.Errorf("%w: external id is required", review.ErrValidation)
	case in.LocationID == "":
		return fmt.Errorf("%w: location id is required", review.ErrValidation)
	case in.Rating < 1 || in.Rating > 5:
		return fmt.Errorf("%w: rating %d out of range", review.ErrValidation, in.Rating)
	}
	return nil
}

func (uc *ReplyStateMachine) mirrorExistingReply(r *review.Review, in review.Incoming) bool {
	if in.ExistingReply == nil || strings.TrimSpace(*in.ExistingReply) == "" {
		return false
	}
	reply := *in.ExistingReply
	r.Response = &reply
	respondedAt := uc.now()
	if in.ExistingReplyAt != nil {
		respondedAt = *in.ExistingReplyAt
	}
	r.RespondedAt = &respondedAt
	if !r.ReplyStatus.IsTerminal() {
		r.ReplyStatus = review.StatusPosted
		r.ReplyError = nil
		// Stamp with the platform reply time so imported replies do not count
		// against today's auto-reply budget.
		r.ReplyStatusChangedAt = &respondedAt
	}
	return true
}

// SubmitManualReply records a human-authored reply and posts it immediately.
func (uc *ReplyStateMachine) SubmitManualReply(ctx context.Context, reviewID, content string, opts ManualReplyOptions) (*review.Review, error) {
	r, err := uc.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := review.CheckTransition(r.ReplyStatus, review.StatusPosted); err != nil {
		return nil, err
	}

	if opts.AuthorType == "" {
		opts.AuthorType = review.AuthorUser
	}
	if opts.SourceType == "" {
		opts.SourceType = review.SourceManual
	}
	record := &review.ReplyRecord{
		ReviewID:   r.ID,
		Content:    content,
		AuthorType: opts.AuthorType,
		SourceType: opts.SourceType,
		Status:     review.RecordDraft,
		UserID:     opts.UserID,
	}
	if err := uc.replies.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create reply record: %w", err)
	}

	uc.logger.Info("Submitting manual reply", constants.ReviewID, r.ID, "author_type", opts.AuthorType)
	return uc.postAndFinalize(ctx, r, record)
}

// PostApproved posts the stored draft of an approved review.
func (uc *ReplyStateMachine) PostApproved(ctx context.Context, reviewID string) (*review.Review, error) {
	r, err := uc.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.ReplyStatus != review.StatusApproved {
		return nil, fmt.Errorf("%w: %s review cannot be posted", review.ErrInvalidTransition, r.ReplyStatus)
	}

	content := ""
	if r.Response != nil {
		content = *r.Response
	}
	record, err := uc.replies.FindLatestOpen(ctx, r.ID)
	if err != nil && !errors.Is(err, review.ErrNotFound) {
		return nil, fmt.Errorf("failed to load reply record: %w", err)
	}
	if record == nil || record.Content != content {
		record = &review.ReplyRecord{
			ReviewID:   r.ID,
			Content:    content,
			AuthorType: review.AuthorAuto,
			SourceType: review.SourceAI,
			Status:     review.RecordApproved,
		}
		if err := uc.replies.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to create reply record: %w", err)
		}
	}
	return uc.postAndFinalize(ctx, r, record)
}

// postAndFinalize sends the record's content to the platform and moves both
// the review and the record to posted or failed. On failure the updated
// review is returned together with the cause.
func (uc *ReplyStateMachine) postAndFinalize(ctx context.Context, r *review.Review, record *review.ReplyRecord) (*review.Review, error) {
	result, postErr := uc.post(ctx, r, record.Content)
	now := uc.now()

	if postErr != nil {
		message := postErr.Error()
		r.ReplyStatus = review.StatusFailed
		r.ReplyError = &message
		r.ReplyStatusChangedAt = &now
		if err := uc.reviews.SaveReplyState(ctx, r); err != nil {
			return nil, err
		}
		if err := uc.replies.UpdateStatus(ctx, record.ID, review.RecordFailed, &message); err != nil {
			uc.logger.Error("Failed to mark reply record failed", constants.ReviewID, r.ID, "reply_id", record.ID, "error", err)
		}
		metrics.ReplyTransitions.WithLabelValues(review.StatusFailed.String()).Inc()
		uc.logger.Warn("Reply post failed", constants.ReviewID, r.ID, "error", postErr)
		return r, postErr
	}

	content := record.Content
	respondedAt := now
	if result != nil && !result.UpdateTime.IsZero() {
		respondedAt = result.UpdateTime
	}
	r.ReplyStatus = review.StatusPosted
	r.Response = &content
	r.RespondedAt = &respondedAt
	r.ReplyError = nil
	r.ReplyStatusChangedAt = &now
	if err := uc.reviews.SaveReplyState(ctx, r); err != nil {
		return nil, err
	}
	if err := uc.replies.UpdateStatus(ctx, record.ID, review.RecordPosted, nil); err != nil {
		uc.logger.Error("Failed to mark reply record posted", constants.ReviewID, r.ID, "reply_id", record.ID, "error", err)
	}
	metrics.ReplyTransitions.WithLabelValues(review.StatusPosted.String()).Inc()
	uc.logger.Info("Reply posted", constants.ReviewID, r.ID, constants.Platform, r.Platform)
	return r, nil
}

func (uc *ReplyStateMachine) post(ctx context.Context, r *review.Review, content string) (*platform.PostResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: reply content is empty", review.ErrValidation)
	}
	if r.SourceID == "" {
		return nil, fmt.Errorf("%w: review has no source connection", review.ErrValidation)
	}
	conn, err := uc.connections.FindByID(ctx, r.SourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn.Status == connection.StatusDisconnected {
		return nil, fmt.Errorf("%w: %s", connection.ErrDisconnected, conn.ID)
	}
	adapter, err := uc.adapters.Get(conn.Platform)
	if err != nil {
		return nil, err
	}

	postCtx, cancel := context.WithTimeout(ctx, uc.postTimeout)
	defer cancel()
	return adapter.PostReply(postCtx, conn, r.ExternalID, content)
}

// RejectReply moves a review to rejected from any non-terminal state.
// Rejecting twice is a no-op; rejecting a posted reply is refused.
func (uc *ReplyStateMachine) RejectReply(ctx context.Context, reviewID string) (*review.Review, error) {
	r, err := uc.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.ReplyStatus == review.StatusRejected {
		return r, nil
	}
	if err := review.CheckTransition(r.ReplyStatus, review.StatusRejected); err != nil {
		return nil, err
	}

	now := uc.now()
	r.ReplyStatus = review.StatusRejected
	r.Response = nil
	r.ReplyError = nil
	r.ReplyStatusChangedAt = &now
	if err := uc.reviews.SaveReplyState(ctx, r); err != nil {
		return nil, err
	}

	record, err := uc.replies.FindLatestOpen(ctx, r.ID)
	switch {
	case err == nil:
		if err := uc.replies.UpdateStatus(ctx, record.ID, review.RecordRejected, nil); err != nil {
			uc.logger.Error("Failed to mark reply record rejected", constants.ReviewID, r.ID, "error", err)
		}
	case !errors.Is(err, review.ErrNotFound):
		uc.logger.Error("Failed to load reply record", constants.ReviewID, r.ID, "error", err)
	}

	metrics.ReplyTransitions.WithLabelValues(review.StatusRejected.String()).Inc()
	uc.logger.Info("Reply rejected", constants.ReviewID, r.ID)
	return r, nil
}

func (uc *ReplyStateMachine) MarkSkipped(ctx context.Context, reviewID, reason string) (*review.Review, error) {
	return uc.transition(ctx, reviewID, review.StatusSkipped, func(r *review.Review) {
		r.ReplyError = &reason
	}, nil)
}

// MarkPendingApproval stores the AI suggestions and parks the review until a
// human approves or rejects it.
func (uc *ReplyStateMachine) MarkPendingApproval(ctx context.Context, reviewID string, suggestions *review.Suggestions) (*review.Review, error) {
	return uc.transition(ctx, reviewID, review.StatusPendingApproval, func(r *review.Review) {
		r.AISuggestions = suggestions
		r.Response = nil
		r.ReplyError = nil
	}, func(r *review.Review) error {
		if suggestions == nil || suggestions.Draft == "" {
			return nil
		}
		return uc.replies.Create(ctx, &review.ReplyRecord{
			ReviewID:   r.ID,
			Content:    suggestions.Draft,
			AuthorType: review.AuthorAuto,
			SourceType: review.SourceAI,
			Status:     review.RecordDraft,
		})
	})
}

// MarkApproved sets the review's response to draftContent and records an
// approved AI reply awaiting posting.
func (uc *ReplyStateMachine) MarkApproved(ctx context.Context, reviewID, draftContent string, suggestions *review.Suggestions) (*review.Review, error) {
	if strings.TrimSpace(draftContent) == "" {
		return nil, fmt.Errorf("%w: draft content is empty", review.ErrValidation)
	}
	return uc.transition(ctx, reviewID, review.StatusApproved, func(r *review.Review) {
		r.Response = &draftContent
		r.ReplyError = nil
		if suggestions != nil {
			r.AISuggestions = suggestions
		}
	}, func(r *review.Review) error {
		return uc.replies.Create(ctx, &review.ReplyRecord{
			ReviewID:   r.ID,
			Content:    draftContent,
			AuthorType: review.AuthorAuto,
			SourceType: review.SourceAI,
			Status:     review.RecordApproved,
		})
	})
}

// ApprovePending is the human approval of a pending_approval review. An empty
// content approves the stored AI draft unchanged.
func (uc *ReplyStateMachine) ApprovePending(ctx context.Context, reviewID, content string, userID *string) (*review.Review, error) {
	r, err := uc.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if r.ReplyStatus != review.StatusPendingApproval {
		return nil, fmt.Errorf("%w: %s review cannot be approved", review.ErrInvalidTransition, r.ReplyStatus)
	}

	aiDraft := ""
	if r.AISuggestions != nil {
		aiDraft = r.AISuggestions.Draft
	}
	if strings.TrimSpace(content) == "" {
		content = aiDraft
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: no reply content to approve", review.ErrValidation)
	}

	open, err := uc.replies.FindLatestOpen(ctx, r.ID)
	if err != nil && !errors.Is(err, review.ErrNotFound) {
		return nil, fmt.Errorf("failed to load reply record: %w", err)
	}

	now := uc.now()
	r.ReplyStatus = review.StatusApproved
	r.Response = &content
	r.ReplyError = nil
	r.ReplyStatusChangedAt = &now
	if err := uc.reviews.SaveReplyState(ctx, r); err != nil {
		return nil, err
	}

	if open != nil && open.Content == content {
		err = uc.replies.UpdateStatus(ctx, open.ID, review.RecordApproved, nil)
	} else {
		if open != nil {
			if err := uc.replies.UpdateStatus(ctx, open.ID, review.RecordRejected, nil); err != nil {
				uc.logger.Error("Failed to retire superseded draft", constants.ReviewID, r.ID, "error", err)
			}
		}
		sourceType := review.SourceManual
		if content == aiDraft {
			sourceType = review.SourceAI
		}
		err = uc.replies.Create(ctx, &review.ReplyRecord{
			ReviewID:   r.ID,
			Content:    content,
			AuthorType: review.AuthorUser,
			SourceType: sourceType,
			Status:     review.RecordApproved,
			UserID:     userID,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}

	metrics.ReplyTransitions.WithLabelValues(review.StatusApproved.String()).Inc()
	uc.logger.Info("Pending reply approved", constants.ReviewID, r.ID)
	return r, nil
}

// MarkFailed records a failure that happened before any platform call.
func (uc *ReplyStateMachine) MarkFailed(ctx context.Context, reviewID string, cause error) (*review.Review, error) {
	return uc.transition(ctx, reviewID, review.StatusFailed, func(r *review.Review) {
		message := "unknown error"
		if cause != nil {
			message = cause.Error()
		}
		r.ReplyError = &message
	}, nil)
}

// transition applies mutate, persists the result through the terminal-state
// guard and only then runs afterSave. A failing afterSave is logged; the
// status change stands.
func (uc *ReplyStateMachine) transition(
	ctx context.Context,
	reviewID string,
	to review.ReplyStatus,
	mutate func(r *review.Review),
	afterSave func(r *review.Review) error,
) (*review.Review, error) {
	r, err := uc.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := review.CheckTransition(r.ReplyStatus, to); err != nil {
		return nil, err
	}

	now := uc.now()
	r.ReplyStatus = to
	r.ReplyStatusChangedAt = &now
	mutate(r)
	if err := uc.reviews.SaveReplyState(ctx, r); err != nil {
		return nil, err
	}
	metrics.ReplyTransitions.WithLabelValues(to.String()).Inc()

	if afterSave != nil {
		if err := afterSave(r); err != nil {
			uc.logger.Error("Failed to record reply history", constants.ReviewID, r.ID, "status", to.String(), "error", err)
		}
	}
	return r, nil
}
