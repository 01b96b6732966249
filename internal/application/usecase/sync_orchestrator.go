package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/synclog"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/metrics"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/ports"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
)

const (
	defaultMaxPages      = 20
	defaultFetchTimeout  = 30 * time.Second
	defaultSyncLockTTL   = 10 * time.Minute
	locationListPageSize = 100
)

var ErrSyncInProgress = errors.New("sync already in progress for location")

type SyncOutcome struct {
	SourceID      string         `json:"sourceId"`
	Platform      string         `json:"platform"`
	Status        synclog.Status `json:"status"`
	ReviewsSynced int            `json:"reviewsSynced"`
	ReviewsFailed int            `json:"reviewsFailed,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type SyncAllResult struct {
	Locations int
	Skipped   int
	Failed    int
	Outcomes  []SyncOutcome
	Duration  time.Duration
}

// SyncOrchestrator pulls reviews for every active connection of a location
// and feeds them through the reply state machine.
type SyncOrchestrator struct {
	connections  connection.Repository
	adapters     *platform.Registry
	stateMachine *ReplyStateMachine
	syncLogs     synclog.Repository
	locker       ports.LockPort
	maxPages     int
	fetchTimeout time.Duration
	lockTTL      time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

func NewSyncOrchestrator(
	connections connection.Repository,
	adapters *platform.Registry,
	stateMachine *ReplyStateMachine,
	syncLogs synclog.Repository,
	locker ports.LockPort,
	logger *slog.Logger,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		connections:  connections,
		adapters:     adapters,
		stateMachine: stateMachine,
		syncLogs:     syncLogs,
		locker:       locker,
		maxPages:     defaultMaxPages,
		fetchTimeout: defaultFetchTimeout,
		lockTTL:      defaultSyncLockTTL,
		now:          time.Now,
		logger:       logger,
	}
}

func (uc *SyncOrchestrator) WithLimits(maxPages int, fetchTimeout, lockTTL time.Duration) *SyncOrchestrator {
	if maxPages > 0 {
		uc.maxPages = maxPages
	}
	if fetchTimeout > 0 {
		uc.fetchTimeout = fetchTimeout
	}
	if lockTTL > 0 {
		uc.lockTTL = lockTTL
	}
	return uc
}

func syncLockKey(locationID string) string {
	return fmt.Sprintf("sync_lock_%s", locationID)
}

// SyncLocation syncs every active connection of the location. One
// connection's failure is recorded in its outcome and sync log and never
// aborts its siblings.
func (uc *SyncOrchestrator) SyncLocation(ctx context.Context, locationID string) ([]SyncOutcome, error) {
	if locationID == "" {
		return nil, fmt.Errorf("%w: location id is required", review.ErrValidation)
	}

	key := syncLockKey(locationID)
	locked, err := uc.locker.Acquire(ctx, key, uc.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrSyncInProgress, locationID)
	}
	defer func() {
		if err := uc.locker.Release(context.Background(), key); err != nil {
			uc.logger.Warn("Failed to release sync lock", constants.LocationID, locationID, "error", err)
		}
	}()

	conns, err := uc.connections.FindActiveByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}

	uc.logger.Info("Starting location sync", constants.LocationID, locationID, "connections", len(conns))
	outcomes := make([]SyncOutcome, 0, len(conns))
	for _, conn := range conns {
		outcomes = append(outcomes, uc.syncConnection(ctx, conn))
	}
	return outcomes, nil
}

// SyncAll runs SyncLocation for every location that has an active
// connection. Locations already being synced elsewhere are skipped.
func (uc *SyncOrchestrator) SyncAll(ctx context.Context) (*SyncAllResult, error) {
	start := uc.now()
	result := &SyncAllResult{}
	after := ""
	for {
		locations, err := uc.connections.ListActiveLocations(ctx, after, locationListPageSize)
		if err != nil {
			return result, fmt.Errorf("failed to list locations: %w", err)
		}
		for _, locationID := range locations {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Locations++
			outcomes, err := uc.SyncLocation(ctx, locationID)
			switch {
			case errors.Is(err, ErrSyncInProgress):
				result.Skipped++
			case err != nil:
				result.Failed++
				uc.logger.Error("Location sync failed", constants.LocationID, locationID, "error", err)
			default:
				result.Outcomes = append(result.Outcomes, outcomes...)
			}
		}
		if len(locations) < locationListPageSize {
			break
		}
		after = locations[len(locations)-1]
	}
	result.Duration = time.Since(start)
	uc.logger.Info("Full sync completed",
		"locations", result.Locations,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration)
	return result, nil
}

func (uc *SyncOrchestrator) syncConnection(ctx context.Context, conn *connection.Connection) SyncOutcome {
	started := uc.now()
	entry := &synclog.SyncLog{
		SourceID:   conn.ID,
		LocationID: conn.LocationID,
		Platform:   conn.Platform,
		StartedAt:  started,
		RequestSnapshot: map[string]any{
			"connectionId": conn.ID,
			"platform":     conn.Platform,
			"maxPages":     uc.maxPages,
		},
	}
	stats := &pageStats{}
	stack, err := uc.runSafely(ctx, conn, stats)
	return uc.finish(ctx, conn, entry, stats, err, stack, started)
}

// runSafely contains panics raised while syncing one connection so that the
// remaining connections of the location still run.
func (uc *SyncOrchestrator) runSafely(ctx context.Context, conn *connection.Connection, stats *pageStats) (stack string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during sync: %v", rec)
			stack = string(debug.Stack())
		}
	}()
	if err := uc.fetchAndIngest(ctx, conn, stats); err != nil {
		return errorChain(err), err
	}
	return "", nil
}

type pageStats struct {
	pages      int
	fetched    int
	synced     int
	failed     int
	created    int
	nextCursor string
	finished   bool
}

func (uc *SyncOrchestrator) fetchAndIngest(ctx context.Context, conn *connection.Connection, stats *pageStats) error {
	adapter, err := uc.adapters.Get(conn.Platform)
	if err != nil {
		return err
	}

	cursor := ""
	for stats.pages < uc.maxPages {
		fetchCtx, cancel := context.WithTimeout(ctx, uc.fetchTimeout)
		page, err := adapter.FetchReviews(fetchCtx, conn, cursor)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to fetch reviews page %d: %w", stats.pages+1, err)
		}
		stats.pages++
		stats.fetched += len(page.Reviews)

		for _, native := range page.Reviews {
			in, err := toIncoming(conn, native)
			if err == nil {
				var created bool
				_, created, err = uc.stateMachine.Ingest(ctx, in)
				if created {
					stats.created++
				}
			}
			metrics.RecordIngest(conn.Platform, err)
			if err != nil {
				stats.failed++
				uc.logger.Warn("Failed to ingest review", constants.ConnectionID, conn.ID, "external_id", native.ExternalID, "error", err)
				continue
			}
			stats.synced++
		}

		stats.nextCursor = page.NextCursor
		if page.NextCursor == "" {
			stats.finished = true
			return nil
		}
		cursor = page.NextCursor
	}
	uc.logger.Info("Sync page limit reached", constants.ConnectionID, conn.ID, "pages", stats.pages)
	return nil
}

func (uc *SyncOrchestrator) finish(ctx context.Context, conn *connection.Connection, entry *synclog.SyncLog, stats *pageStats, runErr error, stack string, started time.Time) SyncOutcome {
	entry.FinishedAt = uc.now()
	entry.DurationMs = entry.FinishedAt.Sub(started).Milliseconds()
	entry.ReviewsSynced = stats.synced
	entry.ReviewsFailed = stats.failed
	entry.ResponseSnapshot = map[string]any{
		"pages":      stats.pages,
		"fetched":    stats.fetched,
		"created":    stats.created,
		"nextCursor": stats.nextCursor,
		"complete":   stats.finished,
	}
	entry.Status = synclog.StatusSuccess
	if runErr != nil {
		message := runErr.Error()
		entry.Status = synclog.StatusFailed
		entry.ErrorMessage = &message
		if stack != "" {
			entry.ErrorStack = &stack
		}
	}

	if err := uc.syncLogs.Append(ctx, entry); err != nil {
		uc.logger.Error("Failed to write sync log", constants.ConnectionID, conn.ID, "error", err)
	}
	metrics.SyncRuns.WithLabelValues(conn.Platform, string(entry.Status)).Inc()
	uc.logger.Info("Connection sync finished",
		constants.ConnectionID, conn.ID,
		constants.Platform, conn.Platform,
		"status", entry.Status,
		"reviews_synced", entry.ReviewsSynced,
		"reviews_failed", entry.ReviewsFailed,
		"duration_ms", entry.DurationMs)
	return outcomeOf(entry)
}

func outcomeOf(entry *synclog.SyncLog) SyncOutcome {
	outcome := SyncOutcome{
		SourceID:      entry.SourceID,
		Platform:      entry.Platform,
		Status:        entry.Status,
		ReviewsSynced: entry.ReviewsSynced,
		ReviewsFailed: entry.ReviewsFailed,
	}
	if entry.ErrorMessage != nil {
		outcome.Error = *entry.ErrorMessage
	}
	return outcome
}

func toIncoming(conn *connection.Connection, native platform.NativeReview) (review.Incoming, error) {
	rating, err := platform.MapStarRating(native.StarRating)
	if err != nil {
		return review.Incoming{}, err
	}
	publishedAt := native.CreateTime
	if publishedAt.IsZero() {
		publishedAt = native.UpdateTime
	}
	in := review.Incoming{
		BusinessID:  conn.BusinessID,
		LocationID:  conn.LocationID,
		SourceID:    conn.ID,
		Platform:    conn.Platform,
		ExternalID:  native.ExternalID,
		Author:      native.Author,
		Rating:      rating,
		Content:     native.Comment,
		PublishedAt: publishedAt,
	}
	if native.Reply != nil && native.Reply.Comment != "" {
		reply := native.Reply.Comment
		in.ExistingReply = &reply
		if !native.Reply.UpdateTime.IsZero() {
			repliedAt := native.Reply.UpdateTime
			in.ExistingReplyAt = &repliedAt
		}
	}
	return in, nil
}

// errorChain renders the wrapped causes of err, outermost first.
func errorChain(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%d: %T: %s\n", depth, err, err.Error())
		err = errors.Unwrap(err)
	}
	return b.String()
}
