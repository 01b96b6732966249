package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/metrics"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
)

const (
	DefaultSafetyMargin   = 5 * time.Minute
	defaultRefreshTimeout = 15 * time.Second
)

// TokenLifecycleManager hands out access tokens that stay valid for at least
// the safety margin, refreshing them through the platform when needed. Tokens
// are never cached: every call re-reads the connection.
type TokenLifecycleManager struct {
	connections    connection.Repository
	refreshers     map[string]connection.Refresher
	safetyMargin   time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

func NewTokenLifecycleManager(
	connections connection.Repository,
	refreshers map[string]connection.Refresher,
	logger *slog.Logger,
) *TokenLifecycleManager {
	return &TokenLifecycleManager{
		connections:    connections,
		refreshers:     refreshers,
		safetyMargin:   DefaultSafetyMargin,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
		logger:         logger,
	}
}

func (uc *TokenLifecycleManager) WithRefreshTimeout(timeout time.Duration) *TokenLifecycleManager {
	if timeout > 0 {
		uc.refreshTimeout = timeout
	}
	return uc
}

func (uc *TokenLifecycleManager) GetValidToken(ctx context.Context, connectionID string) (string, error) {
	conn, err := uc.connections.FindByID(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if conn.Status == connection.StatusDisconnected {
		return "", fmt.Errorf("%w: %s", connection.ErrDisconnected, conn.ID)
	}
	if !conn.NeedsRefresh(uc.now(), uc.safetyMargin) {
		return conn.AccessToken, nil
	}
	// A failed refresh needs the user to re-authorize; do not hammer the
	// platform with a credential it already refused.
	if conn.Status == connection.StatusError {
		return "", fmt.Errorf("%w: connection %s requires re-authorization", connection.ErrTokenRefreshFailed, conn.ID)
	}
	return uc.refresh(ctx, conn)
}

func (uc *TokenLifecycleManager) refresh(ctx context.Context, conn *connection.Connection) (string, error) {
	refresher, ok := uc.refreshers[conn.Platform]
	if !ok {
		return "", uc.fail(ctx, conn, fmt.Errorf("no token refresher for platform %s", conn.Platform))
	}

	uc.logger.Info("Refreshing access token", constants.ConnectionID, conn.ID, constants.Platform, conn.Platform)

	refreshCtx, cancel := context.WithTimeout(ctx, uc.refreshTimeout)
	defer cancel()
	token, err := refresher.Refresh(refreshCtx, conn.RenewalKey(), conn)
	metrics.RecordTokenRefresh(conn.Platform, err)
	if err != nil {
		return "", uc.fail(ctx, conn, err)
	}

	staleAccessToken := conn.AccessToken
	conn.ApplyToken(token)
	updated, err := uc.connections.UpdateTokenIfUnchanged(ctx, conn, staleAccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}
	if !updated {
		// Another caller refreshed first; its token is the one on record.
		latest, err := uc.connections.FindByID(ctx, conn.ID)
		if err != nil {
			return "", err
		}
		uc.logger.Debug("Concurrent token refresh detected", constants.ConnectionID, conn.ID)
		return latest.AccessToken, nil
	}
	return conn.AccessToken, nil
}

// fail flags the connection and returns the refresh error. The stored access
// token is left untouched.
func (uc *TokenLifecycleManager) fail(ctx context.Context, conn *connection.Connection, cause error) error {
	message := cause.Error()
	if err := uc.connections.MarkError(ctx, conn.ID, message); err != nil {
		uc.logger.Error("Failed to flag connection", constants.ConnectionID, conn.ID, "error", err)
	}
	uc.logger.Warn("Access token refresh failed", constants.ConnectionID, conn.ID, constants.Platform, conn.Platform, "error", cause)
	return fmt.Errorf("%w: connection %s: %v", connection.ErrTokenRefreshFailed, conn.ID, cause)
}
