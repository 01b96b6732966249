package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleTokenRefresher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		if r.PostForm.Get("refresh_token") != "refresh-1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
			return
		}
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "access-2", "token_type": "Bearer", "expires_in": 3600, "refresh_token": "refresh-2"}`))
	}))
	defer server.Close()
	refresher := NewGoogleTokenRefresher(GoogleOAuthConfig{ClientID: "client-1", ClientSecret: "secret", TokenURL: server.URL})
	conn := &connection.Connection{ID: "conn-1", Platform: connection.PlatformGoogle}

	token, err := refresher.Refresh(context.Background(), "refresh-1", conn)
	require.NoError(t, err)
	assert.Equal(t, "access-2", token.AccessToken)
	assert.Equal(t, "refresh-2", token.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)

	_, err = refresher.Refresh(context.Background(), "revoked", conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")

	_, err = refresher.Refresh(context.Background(), "", conn)
	assert.EqualError(t, err, "connection has no refresh token")
}

func TestFacebookTokenRefresher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
			if r.URL.Query().Get("fb_exchange_token") == "expired" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": {"message": "Session has expired", "type": "OAuthException", "code": 190}}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token": "user-2", "token_type": "bearer", "expires_in": 7200}`))
		case "/page-1":
			assert.Equal(t, "user-2", r.URL.Query().Get("access_token"))
			_, _ = w.Write([]byte(`{"id": "page-1", "access_token": "page-token"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	refresher := NewFacebookTokenRefresher(FacebookOAuthConfig{AppID: "app", AppSecret: "secret", GraphURL: server.URL})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	refresher.now = func() time.Time { return now }
	conn := &connection.Connection{
		ID:       "conn-fb",
		Platform: connection.PlatformFacebook,
		Metadata: map[string]string{connection.MetadataPageID: "page-1"},
	}

	token, err := refresher.Refresh(context.Background(), "user-1", conn)
	require.NoError(t, err)
	assert.Equal(t, "page-token", token.AccessToken)
	assert.Equal(t, "user-2", token.RenewalKey)
	assert.Equal(t, now.Add(2*time.Hour), token.ExpiresAt)

	_, err = refresher.Refresh(context.Background(), "expired", conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph API error 400 (OAuthException): Session has expired")

	conn.Metadata = nil
	_, err = refresher.Refresh(context.Background(), "user-1", conn)
	assert.EqualError(t, err, "connection has no page id")
}
