// Package bootstrap wires the reply engine shared by the API and the worker.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/application/usecase"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/draft"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/adapter"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"
)

const defaultProfileTTL = 5 * time.Minute

// Engine holds the use cases and the adapters they were built from.
type Engine struct {
	Connections  *adapter.GormConnectionRepository
	Reviews      *adapter.GormReviewRepository
	Locker       *adapter.RedisLockAdapter
	Cache        *adapter.RedisCacheAdapter
	Tokens       *usecase.TokenLifecycleManager
	StateMachine *usecase.ReplyStateMachine
	Policy       *usecase.AutoReplyPolicyEngine
	Syncs        *usecase.SyncOrchestrator

	gemini *adapter.GeminiDrafter
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Address(),
		Password:    cfg.Password,
		DB:          cfg.Database,
		PoolSize:    50,
		DialTimeout: cfg.DialTimeout,
	})
}

func NewEngine(ctx context.Context, db *gorm.DB, redisClient *redis.Client, redisCfg config.RedisConfig, cfg config.DomainConfig, logger *slog.Logger) (*Engine, error) {
	e := &Engine{
		Connections: adapter.NewGormConnectionRepository(db),
		Reviews:     adapter.NewGormReviewRepository(db),
		Locker:      adapter.NewRedisLockAdapterWithClient(redisClient),
		Cache:       adapter.NewRedisCacheAdapterWithClient(redisClient, redisCfg.KeyPrefix),
	}

	profileTTL := redisCfg.ProfileTTL
	if profileTTL <= 0 {
		profileTTL = defaultProfileTTL
	}
	businesses := adapter.NewCachedBusinessRepository(adapter.NewGormBusinessRepository(db), e.Cache, profileTTL, logger)

	refreshers := map[string]connection.Refresher{
		connection.PlatformGoogle: adapter.NewGoogleTokenRefresher(adapter.GoogleOAuthConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			TokenURL:     cfg.Google.TokenURL,
			Timeout:      cfg.Tokens.RefreshTimeout,
		}),
	}
	if cfg.Facebook.AppID != "" {
		refreshers[connection.PlatformFacebook] = adapter.NewFacebookTokenRefresher(adapter.FacebookOAuthConfig{
			AppID:     cfg.Facebook.AppID,
			AppSecret: cfg.Facebook.AppSecret,
			GraphURL:  cfg.Facebook.GraphURL,
			Timeout:   cfg.Facebook.Timeout,
		})
	}
	e.Tokens = usecase.NewTokenLifecycleManager(e.Connections, refreshers, logger).
		WithRefreshTimeout(cfg.Tokens.RefreshTimeout)

	registry := platform.NewRegistry(
		adapter.NewGoogleBusinessAdapter(googleAPIConfig(cfg.Google), e.Tokens, logger),
	)

	e.StateMachine = usecase.NewReplyStateMachine(
		e.Reviews,
		adapter.NewGormReplyRecordRepository(db),
		e.Connections,
		registry,
		logger,
	).WithPostTimeout(cfg.AutoReply.PostTimeout)

	drafter, err := e.newDrafter(ctx, cfg.Gemini, logger)
	if err != nil {
		return nil, err
	}
	e.Policy = usecase.NewAutoReplyPolicyEngine(e.Reviews, businesses, drafter, e.StateMachine, logger).
		WithBatchSize(cfg.AutoReply.BatchSize).
		WithDraftTimeout(cfg.AutoReply.DraftTimeout).
		WithFailedCooldown(cfg.AutoReply.FailedCooldown)

	e.Syncs = usecase.NewSyncOrchestrator(
		e.Connections,
		registry,
		e.StateMachine,
		adapter.NewGormSyncLogRepository(db),
		e.Locker,
		logger,
	).WithLimits(cfg.Sync.MaxPages, cfg.Sync.FetchTimeout, cfg.Sync.LockTTL)

	return e, nil
}

func googleAPIConfig(cfg config.GoogleConfig) *adapter.APIConfig {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	probes := cfg.BreakerHalfOpenProbes
	if probes == 0 {
		probes = 3
	}
	resetTimeout := cfg.BreakerResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &adapter.APIConfig{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstLimit: cfg.BurstLimit,
		CircuitBreaker: &adapter.CircuitBreakerConfig{
			MaxRequests: probes,
			Interval:    time.Minute,
			Timeout:     resetTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
		},
	}
}

// newDrafter falls back to a drafter that always fails when no Gemini key is
// configured; reviews needing a draft are then marked failed by the sweep.
func (e *Engine) newDrafter(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (draft.Drafter, error) {
	if cfg.APIKey == "" {
		logger.Warn("Gemini API key not set, AI drafting disabled")
		return unconfiguredDrafter{}, nil
	}
	gemini, err := adapter.NewGeminiDrafter(ctx, adapter.GeminiConfig{
		APIKey:    cfg.APIKey,
		ModelName: cfg.Model,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini drafter: %w", err)
	}
	e.gemini = gemini
	return gemini, nil
}

func (e *Engine) Close() error {
	var errs []error
	if e.gemini != nil {
		errs = append(errs, e.gemini.Close())
	}
	// Cache and Locker share one redis client.
	errs = append(errs, e.Cache.Close())
	return errors.Join(errs...)
}

type unconfiguredDrafter struct{}

func (unconfiguredDrafter) Draft(context.Context, draft.Request) (*review.Suggestions, error) {
	return nil, fmt.Errorf("%w: no drafting model configured", draft.ErrDraftGenerationFailed)
}
