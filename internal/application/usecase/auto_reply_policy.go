package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/business"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/draft"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/metrics"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
)

const (
	defaultSweepBatchSize = 50
	defaultDraftTimeout   = 60 * time.Second
	defaultFailedCooldown = time.Hour
)

type Outcome string

const (
	OutcomeDeferred        Outcome = "deferred"
	OutcomeSkipped         Outcome = "skipped"
	OutcomePendingApproval Outcome = "pending_approval"
	OutcomeApproved        Outcome = "approved"
	OutcomeFailed          Outcome = "failed"
	OutcomeError           Outcome = "error"
)

type Decision struct {
	Outcome Outcome
	Reason  string
}

type SweepResult struct {
	Evaluated  int
	Deferred   int
	Skipped    int
	Pending    int
	Approved   int
	Failed     int
	Retried    int
	Posted     int
	PostFailed int
	Errors     int
	StartTime  time.Time
	Duration   time.Duration
}

func (r *SweepResult) record(d Decision) {
	r.Evaluated++
	switch d.Outcome {
	case OutcomeDeferred:
		r.Deferred++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomePendingApproval:
		r.Pending++
	case OutcomeApproved:
		r.Approved++
	case OutcomeFailed:
		r.Failed++
	default:
		r.Errors++
	}
	metrics.AutoReplyDecisions.WithLabelValues(string(d.Outcome)).Inc()
}

// AutoReplyPolicyEngine decides, per unprocessed review, whether to skip,
// defer, draft for approval or approve an AI reply, and posts approved replies.
type AutoReplyPolicyEngine struct {
	reviews      review.Repository
	businesses   business.Repository
	drafter      draft.Drafter
	stateMachine *ReplyStateMachine
	batchSize      int
	draftTimeout   time.Duration
	failedCooldown time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

func NewAutoReplyPolicyEngine(
	reviews review.Repository,
	businesses business.Repository,
	drafter draft.Drafter,
	stateMachine *ReplyStateMachine,
	logger *slog.Logger,
) *AutoReplyPolicyEngine {
	return &AutoReplyPolicyEngine{
		reviews:      reviews,
		businesses:   businesses,
		drafter:      drafter,
		stateMachine: stateMachine,
		batchSize:      defaultSweepBatchSize,
		draftTimeout:   defaultDraftTimeout,
		failedCooldown: defaultFailedCooldown,
		now:            time.Now,
		logger:         logger,
	}
}

func (uc *AutoReplyPolicyEngine) WithBatchSize(size int) *AutoReplyPolicyEngine {
	if size > 0 {
		uc.batchSize = size
	}
	return uc
}

func (uc *AutoReplyPolicyEngine) WithDraftTimeout(timeout time.Duration) *AutoReplyPolicyEngine {
	if timeout > 0 {
		uc.draftTimeout = timeout
	}
	return uc
}

// WithFailedCooldown sets how long a failed review rests before a sweep
// evaluates it again.
func (uc *AutoReplyPolicyEngine) WithFailedCooldown(cooldown time.Duration) *AutoReplyPolicyEngine {
	if cooldown > 0 {
		uc.failedCooldown = cooldown
	}
	return uc
}

// RunSweep posts every approved reply, evaluates every unprocessed review,
// then re-evaluates failed reviews that have rested for the cooldown. Each
// review gets at most one attempt per sweep; replies approved during this
// sweep are posted by the next one.
func (uc *AutoReplyPolicyEngine) RunSweep(ctx context.Context) SweepResult {
	return uc.sweep(ctx, "")
}

func (uc *AutoReplyPolicyEngine) RunSweepForBusiness(ctx context.Context, businessID string) SweepResult {
	return uc.sweep(ctx, businessID)
}

func (uc *AutoReplyPolicyEngine) sweep(ctx context.Context, businessID string) SweepResult {
	result := SweepResult{StartTime: uc.now()}
	uc.logger.Info("Starting auto-reply sweep", constants.BusinessID, businessID, "batch_size", uc.batchSize)

	uc.forEachReview(ctx, review.Filter{Status: review.StatusApproved, BusinessID: businessID}, &result, func(r *review.Review) {
		if _, err := uc.stateMachine.PostApproved(ctx, r.ID); err != nil {
			result.PostFailed++
			uc.logger.Warn("Failed to post approved reply", constants.ReviewID, r.ID, "error", err)
			return
		}
		result.Posted++
	})

	uc.forEachReview(ctx, review.Filter{Status: review.StatusUnprocessed, BusinessID: businessID}, &result, func(r *review.Review) {
		result.record(uc.evaluateSafely(ctx, r))
	})

	// Reviews that failed earlier in this sweep changed status just now and
	// fall outside the cooldown.
	retryBefore := result.StartTime.Add(-uc.failedCooldown)
	uc.forEachReview(ctx, review.Filter{Status: review.StatusFailed, BusinessID: businessID, ChangedBefore: retryBefore}, &result, func(r *review.Review) {
		result.Retried++
		result.record(uc.evaluateSafely(ctx, r))
	})

	result.Duration = time.Since(result.StartTime)
	metrics.SweepDuration.Observe(result.Duration.Seconds())
	uc.logger.Info("Auto-reply sweep completed",
		constants.BusinessID, businessID,
		"evaluated", result.Evaluated,
		"approved", result.Approved,
		"pending", result.Pending,
		"skipped", result.Skipped,
		"deferred", result.Deferred,
		"failed", result.Failed,
		"retried", result.Retried,
		"posted", result.Posted,
		"post_failed", result.PostFailed,
		"errors", result.Errors,
		"duration", result.Duration)
	return result
}

// forEachReview walks the reviews in one status with keyset pagination so
// rows that change status mid-sweep are neither skipped nor revisited.
func (uc *AutoReplyPolicyEngine) forEachReview(ctx context.Context, filter review.Filter, result *SweepResult, fn func(r *review.Review)) {
	filter.Limit = uc.batchSize
	for {
		if ctx.Err() != nil {
			uc.logger.Warn("Auto-reply sweep interrupted", "status", filter.Status.String(), "error", ctx.Err())
			return
		}
		batch, err := uc.reviews.FindByStatus(ctx, filter)
		if err != nil {
			result.Errors++
			uc.logger.Error("Failed to load review batch", "status", filter.Status.String(), "error", err)
			return
		}
		if len(batch) == 0 {
			return
		}
		for _, r := range batch {
			fn(r)
		}
		filter.AfterID = batch[len(batch)-1].ID
		if len(batch) < uc.batchSize {
			return
		}
	}
}

func (uc *AutoReplyPolicyEngine) evaluateSafely(ctx context.Context, r *review.Review) (decision Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			uc.logger.Error("Panic while evaluating review", constants.ReviewID, r.ID, "panic", rec)
			decision = Decision{Outcome: OutcomeError, Reason: fmt.Sprint(rec)}
		}
	}()
	return uc.Evaluate(ctx, r, uc.now())
}

// Evaluate applies the auto-reply rules to one review; the first matching
// rule wins. Persistence errors yield OutcomeError and leave the review
// untouched so the next sweep retries it.
func (uc *AutoReplyPolicyEngine) Evaluate(ctx context.Context, r *review.Review, now time.Time) Decision {
	profile, err := uc.businesses.FindProfile(ctx, r.BusinessID)
	if err != nil {
		uc.logger.Error("Failed to load business profile", constants.BusinessID, r.BusinessID, "error", err)
		return Decision{Outcome: OutcomeError, Reason: err.Error()}
	}
	if profile == nil || profile.AutoReply == nil || !profile.AutoReply.Enabled {
		return uc.skip(ctx, r, "auto-reply disabled")
	}
	settings := profile.AutoReply

	if now.Sub(r.PublishedAt) < settings.Delay() {
		return Decision{Outcome: OutcomeDeferred, Reason: "within reply delay"}
	}

	since := business.StartOfDay(now, settings.Location())
	replied, err := uc.reviews.CountRepliedSince(ctx, r.BusinessID, r.LocationID, since)
	if err != nil {
		uc.logger.Error("Failed to count today's replies", constants.ReviewID, r.ID, "error", err)
		return Decision{Outcome: OutcomeError, Reason: err.Error()}
	}
	if replied >= int64(settings.MaxRepliesPerDay) {
		return uc.skip(ctx, r, fmt.Sprintf("daily reply limit reached (%d/%d)", replied, settings.MaxRepliesPerDay))
	}

	sentiment := review.ClassifyRating(r.Rating)
	if !settings.Accepts(sentiment) {
		return uc.skip(ctx, r, fmt.Sprintf("%s review not eligible in %s mode", sentiment, settings.Mode))
	}

	suggestions, err := uc.generateDraft(ctx, profile, r, sentiment)
	if err != nil {
		cause := fmt.Errorf("%w: %v", draft.ErrDraftGenerationFailed, err)
		if _, markErr := uc.stateMachine.MarkFailed(ctx, r.ID, cause); markErr != nil {
			return uc.persistError(r, markErr)
		}
		return Decision{Outcome: OutcomeFailed, Reason: cause.Error()}
	}

	if sentiment == review.SentimentNegative && settings.ManualNegativeApproval {
		if _, err := uc.stateMachine.MarkPendingApproval(ctx, r.ID, suggestions); err != nil {
			return uc.persistError(r, err)
		}
		return Decision{Outcome: OutcomePendingApproval}
	}

	if _, err := uc.stateMachine.MarkApproved(ctx, r.ID, suggestions.Draft, suggestions); err != nil {
		return uc.persistError(r, err)
	}
	return Decision{Outcome: OutcomeApproved}
}

func (uc *AutoReplyPolicyEngine) generateDraft(ctx context.Context, profile *business.Profile, r *review.Review, sentiment review.Sentiment) (*review.Suggestions, error) {
	tone := profile.AutoReply.Tone
	if tone == "" {
		tone = business.DefaultTone
	}

	draftCtx, cancel := context.WithTimeout(ctx, uc.draftTimeout)
	defer cancel()
	suggestions, err := uc.drafter.Draft(draftCtx, draft.Request{
		BusinessName: profile.Name,
		Tone:         tone,
		Platform:     r.Platform,
		Author:       r.Author,
		Rating:       r.Rating,
		Content:      r.Content,
		Sentiment:    sentiment,
	})
	if err != nil {
		return nil, err
	}
	if suggestions == nil || suggestions.Draft == "" {
		return nil, errors.New("drafter returned an empty reply")
	}
	return suggestions, nil
}

func (uc *AutoReplyPolicyEngine) skip(ctx context.Context, r *review.Review, reason string) Decision {
	if _, err := uc.stateMachine.MarkSkipped(ctx, r.ID, reason); err != nil {
		return uc.persistError(r, err)
	}
	return Decision{Outcome: OutcomeSkipped, Reason: reason}
}

func (uc *AutoReplyPolicyEngine) persistError(r *review.Review, err error) Decision {
	uc.logger.Error("Failed to persist auto-reply decision", constants.ReviewID, r.ID, "error", err)
	return Decision{Outcome: OutcomeError, Reason: err.Error()}
}
