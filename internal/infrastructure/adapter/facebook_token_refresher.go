package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
)

const (
	DefaultFacebookGraphURL = "https://graph.facebook.com/v19.0"
	// Long-lived user tokens last about 60 days when Graph omits expires_in.
	facebookDefaultTokenTTL = 60 * 24 * time.Hour
)

// FacebookTokenRefresher exchanges the stored long-lived user token for a
// fresh one and derives the page access token from it.
type FacebookTokenRefresher struct {
	client    *http.Client
	graphURL  string
	appID     string
	appSecret string
	now       func() time.Time
}

type FacebookOAuthConfig struct {
	AppID     string
	AppSecret string
	GraphURL  string
	Timeout   time.Duration
}

func NewFacebookTokenRefresher(cfg FacebookOAuthConfig) *FacebookTokenRefresher {
	graphURL := cfg.GraphURL
	if graphURL == "" {
		graphURL = DefaultFacebookGraphURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FacebookTokenRefresher{
		client:    &http.Client{Timeout: timeout},
		graphURL:  graphURL,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		now:       time.Now,
	}
}

type facebookTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type facebookPageResponse struct {
	ID          string `json:"id"`
	AccessToken string `json:"access_token"`
}

type facebookErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (r *FacebookTokenRefresher) Refresh(ctx context.Context, renewalKey string, conn *connection.Connection) (*connection.Token, error) {
	if renewalKey == "" {
		return nil, errors.New("connection has no user access token")
	}
	pageID := conn.Meta(connection.MetadataPageID)
	if pageID == "" {
		return nil, errors.New("connection has no page id")
	}

	exchange := url.Values{}
	exchange.Set("grant_type", "fb_exchange_token")
	exchange.Set("client_id", r.appID)
	exchange.Set("client_secret", r.appSecret)
	exchange.Set("fb_exchange_token", renewalKey)

	var userToken facebookTokenResponse
	if err := r.get(ctx, r.graphURL+"/oauth/access_token?"+exchange.Encode(), &userToken); err != nil {
		return nil, fmt.Errorf("failed to exchange user token: %w", err)
	}
	if userToken.AccessToken == "" {
		return nil, errors.New("facebook returned an empty user token")
	}

	pageQuery := url.Values{}
	pageQuery.Set("fields", "access_token")
	pageQuery.Set("access_token", userToken.AccessToken)

	var page facebookPageResponse
	if err := r.get(ctx, fmt.Sprintf("%s/%s?%s", r.graphURL, url.PathEscape(pageID), pageQuery.Encode()), &page); err != nil {
		return nil, fmt.Errorf("failed to load page token: %w", err)
	}
	if page.AccessToken == "" {
		return nil, fmt.Errorf("facebook returned no access token for page %s", pageID)
	}

	ttl := facebookDefaultTokenTTL
	if userToken.ExpiresIn > 0 {
		ttl = time.Duration(userToken.ExpiresIn) * time.Second
	}
	return &connection.Token{
		AccessToken: page.AccessToken,
		ExpiresAt:   r.now().Add(ttl),
		RenewalKey:  userToken.AccessToken,
	}, nil
}

func (r *FacebookTokenRefresher) get(ctx context.Context, endpoint string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	response, err := r.client.Do(request)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(response.Body)

	if response.StatusCode >= 400 {
		var graphErr facebookErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		if json.Unmarshal(raw, &graphErr) == nil && graphErr.Error.Message != "" {
			return fmt.Errorf("graph API error %d (%s): %s", response.StatusCode, graphErr.Error.Type, graphErr.Error.Message)
		}
		return &HTTPError{StatusCode: response.StatusCode, Body: string(raw)}
	}
	return json.NewDecoder(response.Body).Decode(out)
}
