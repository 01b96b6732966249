package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleTokenRefresher runs the OAuth2 refresh-token grant against Google.
type GoogleTokenRefresher struct {
	config     *oauth2.Config
	httpClient *http.Client
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	// TokenURL overrides Google's token endpoint.
	TokenURL string
	Timeout  time.Duration
}

func NewGoogleTokenRefresher(cfg GoogleOAuthConfig) *GoogleTokenRefresher {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleTokenRefresher{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *GoogleTokenRefresher) Refresh(ctx context.Context, renewalKey string, conn *connection.Connection) (*connection.Token, error) {
	if renewalKey == "" {
		return nil, errors.New("connection has no refresh token")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	// An empty access token forces the source to hit the token endpoint.
	token, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: renewalKey}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return nil, fmt.Errorf("google token endpoint rejected refresh for connection %s: %s", conn.ID, retrieveErr.ErrorCode)
		}
		return nil, fmt.Errorf("google token refresh for connection %s: %w", conn.ID, err)
	}

	refreshed := &connection.Token{AccessToken: token.AccessToken, ExpiresAt: token.Expiry}
	if token.RefreshToken != "" && token.RefreshToken != renewalKey {
		refreshed.RefreshToken = token.RefreshToken
	}
	return refreshed, nil
}
