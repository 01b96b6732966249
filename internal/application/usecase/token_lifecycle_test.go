package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func googleConnection(expiresIn time.Duration) *connection.Connection {
	return &connection.Connection{
		ID:           "conn-1",
		BusinessID:   "biz-1",
		LocationID:   "loc-1",
		Platform:     connection.PlatformGoogle,
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		ExpiresAt:    ptr(fixedNow.Add(expiresIn)),
		Status:       connection.StatusActive,
	}
}

func newTokenManager(t *testing.T, conns *memConnections) (*TokenLifecycleManager, *mocks.MockRefresher) {
	refresher := mocks.NewMockRefresher(gomock.NewController(t))
	m := NewTokenLifecycleManager(conns, map[string]connection.Refresher{
		connection.PlatformGoogle:   refresher,
		connection.PlatformFacebook: refresher,
	}, discardLogger())
	m.now = func() time.Time { return fixedNow }
	return m, refresher
}

func TestGetValidTokenReturnsCurrentToken(t *testing.T) {
	m, _ := newTokenManager(t, newMemConnections(googleConnection(time.Hour)))

	token, err := m.GetValidToken(context.Background(), "conn-1")

	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
}

func TestGetValidTokenRefreshesInsideSafetyMargin(t *testing.T) {
	conns := newMemConnections(googleConnection(2 * time.Minute))
	m, refresher := newTokenManager(t, conns)
	refresher.EXPECT().
		Refresh(gomock.Any(), "refresh-1", gomock.Any()).
		Return(&connection.Token{AccessToken: "new-access", ExpiresAt: fixedNow.Add(time.Hour)}, nil)

	token, err := m.GetValidToken(context.Background(), "conn-1")

	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
	stored := conns.rows["conn-1"]
	assert.Equal(t, "new-access", stored.AccessToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
	assert.Equal(t, fixedNow.Add(time.Hour), *stored.ExpiresAt)
}

func TestGetValidTokenRenewsFacebookWithUserToken(t *testing.T) {
	conn := googleConnection(-time.Minute)
	conn.Platform = connection.PlatformFacebook
	conn.RefreshToken = ""
	conn.Metadata = map[string]string{connection.MetadataUserAccessToken: "user-token"}
	conns := newMemConnections(conn)
	m, refresher := newTokenManager(t, conns)
	refresher.EXPECT().
		Refresh(gomock.Any(), "user-token", gomock.Any()).
		Return(&connection.Token{AccessToken: "page-token", RenewalKey: "user-token-2"}, nil)

	token, err := m.GetValidToken(context.Background(), "conn-1")

	require.NoError(t, err)
	assert.Equal(t, "page-token", token)
	assert.Equal(t, "user-token-2", conns.rows["conn-1"].Meta(connection.MetadataUserAccessToken))
}

func TestGetValidTokenPrefersConcurrentRefresh(t *testing.T) {
	conns := newMemConnections(googleConnection(time.Minute))
	conns.beforeUpdate = func(stored *connection.Connection) {
		stored.AccessToken = "racer-access"
	}
	m, refresher := newTokenManager(t, conns)
	refresher.EXPECT().
		Refresh(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&connection.Token{AccessToken: "mine", ExpiresAt: fixedNow.Add(time.Hour)}, nil)

	token, err := m.GetValidToken(context.Background(), "conn-1")

	require.NoError(t, err)
	assert.Equal(t, "racer-access", token)
	assert.Equal(t, "racer-access", conns.rows["conn-1"].AccessToken)
}

func TestGetValidTokenFlagsConnectionOnRefreshFailure(t *testing.T) {
	conns := newMemConnections(googleConnection(-time.Hour))
	m, refresher := newTokenManager(t, conns)
	refresher.EXPECT().
		Refresh(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("invalid_grant"))

	_, err := m.GetValidToken(context.Background(), "conn-1")

	require.ErrorIs(t, err, connection.ErrTokenRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Equal(t, "invalid_grant", conns.marked["conn-1"])
	assert.Equal(t, connection.StatusError, conns.rows["conn-1"].Status)
	assert.Equal(t, "old-access", conns.rows["conn-1"].AccessToken)

	// A flagged connection is not retried against the platform.
	_, err = m.GetValidToken(context.Background(), "conn-1")
	assert.ErrorIs(t, err, connection.ErrTokenRefreshFailed)
}

func TestGetValidTokenRefusesDisconnected(t *testing.T) {
	conn := googleConnection(time.Hour)
	conn.Status = connection.StatusDisconnected
	m, _ := newTokenManager(t, newMemConnections(conn))

	_, err := m.GetValidToken(context.Background(), "conn-1")

	assert.ErrorIs(t, err, connection.ErrDisconnected)
}

func TestGetValidTokenWithoutRefresher(t *testing.T) {
	conn := googleConnection(-time.Minute)
	conn.Platform = "yelp"
	conns := newMemConnections(conn)
	m, _ := newTokenManager(t, conns)

	_, err := m.GetValidToken(context.Background(), "conn-1")

	assert.ErrorIs(t, err, connection.ErrTokenRefreshFailed)
	assert.Contains(t, conns.marked["conn-1"], "no token refresher for platform yelp")
}

func TestGetValidTokenUnknownConnection(t *testing.T) {
	m, _ := newTokenManager(t, newMemConnections())

	_, err := m.GetValidToken(context.Background(), "missing")

	assert.ErrorIs(t, err, connection.ErrNotFound)
}
