package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/dto"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/infrastructure/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultGoogleBusinessBaseURL = "https://mybusiness.googleapis.com/v4"
	googleReviewsPageSize        = 50
)

type GoogleBusinessAdapter struct {
	client         *http.Client
	baseURL        string
	tokens         platform.TokenProvider
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *slog.Logger
}

type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      float64
	BurstLimit     int
	CircuitBreaker *CircuitBreakerConfig
}

type CircuitBreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// HTTPError is a non-2xx answer from the platform API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

func NewGoogleBusinessAdapter(config *APIConfig, tokens platform.TokenProvider, logger *slog.Logger) *GoogleBusinessAdapter {
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:       100,
			IdleConnTimeout:    90 * time.Second,
			DisableCompression: false,
		},
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultGoogleBusinessBaseURL
	}

	breakerConfig := config.CircuitBreaker
	if breakerConfig == nil {
		breakerConfig = &CircuitBreakerConfig{MaxRequests: 3, Interval: time.Minute, Timeout: 30 * time.Second}
	}
	cbSettings := gobreaker.Settings{
		Name:        "google-business-profile",
		MaxRequests: breakerConfig.MaxRequests,
		Interval:    breakerConfig.Interval,
		Timeout:     breakerConfig.Timeout,
		ReadyToTrip: breakerConfig.ReadyToTrip,
		// Client errors say nothing about the health of the API.
		IsSuccessful: func(err error) bool {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	if cbSettings.ReadyToTrip == nil {
		cbSettings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}

	return &GoogleBusinessAdapter{
		client:         client,
		baseURL:        baseURL,
		tokens:         tokens,
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.BurstLimit),
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:         logger,
	}
}

func (c *GoogleBusinessAdapter) Platform() string {
	return connection.PlatformGoogle
}

func (c *GoogleBusinessAdapter) locationPath(conn *connection.Connection) (string, error) {
	accountID := conn.Meta(connection.MetadataAccountID)
	locationID := conn.Meta(connection.MetadataLocationID)
	if accountID == "" || locationID == "" {
		return "", fmt.Errorf("%w: connection %s is missing account or location metadata", platform.ErrAdapter, conn.ID)
	}
	return fmt.Sprintf("%s/accounts/%s/locations/%s", c.baseURL, url.PathEscape(accountID), url.PathEscape(locationID)), nil
}

func (c *GoogleBusinessAdapter) FetchReviews(ctx context.Context, conn *connection.Connection, cursor string) (*platform.Page, error) {
	base, err := c.locationPath(conn)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("pageSize", strconv.Itoa(googleReviewsPageSize))
	if cursor != "" {
		query.Set("pageToken", cursor)
	}
	endpoint := base + "/reviews?" + query.Encode()

	var response dto.GoogleReviewsResponse
	err = metrics.RecordPlatformCall(c.Platform(), "fetch_reviews", func() error {
		return c.makeRequest(ctx, conn, http.MethodGet, endpoint, nil, &response)
	})
	if err != nil {
		return nil, c.wrap(err, "failed to fetch reviews for connection %s", conn.ID)
	}
	return response.ToPage(), nil
}

// PostReply upserts the owner reply. Google treats a repeated PUT as an
// edit, so a later manual or sweep re-post cannot create duplicates.
func (c *GoogleBusinessAdapter) PostReply(ctx context.Context, conn *connection.Connection, externalReviewID, content string) (*platform.PostResult, error) {
	base, err := c.locationPath(conn)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/reviews/%s/reply", base, url.PathEscape(externalReviewID))

	var response dto.GoogleReviewReply
	err = metrics.RecordPlatformCall(c.Platform(), "post_reply", func() error {
		return c.makeRequest(ctx, conn, http.MethodPut, endpoint, dto.GoogleReviewReply{Comment: content}, &response)
	})
	if err != nil {
		return nil, c.wrap(err, "failed to post reply to review %s", externalReviewID)
	}

	result := &platform.PostResult{ExternalReviewID: externalReviewID, Comment: response.Comment}
	if response.UpdateTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, response.UpdateTime); err == nil {
			result.UpdateTime = t
		}
	}
	return result, nil
}

// wrap tags platform failures with ErrAdapter. Token failures keep their own
// classification.
func (c *GoogleBusinessAdapter) wrap(err error, format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	if errors.Is(err, connection.ErrTokenRefreshFailed) || errors.Is(err, connection.ErrDisconnected) {
		return fmt.Errorf("%s: %w", message, err)
	}
	return fmt.Errorf("%w: %s: %w", platform.ErrAdapter, message, err)
}

// makeRequest makes exactly one attempt. Timeouts and 5xx answers surface to
// the caller, which records the failure; the next sweep or sync is the retry.
func (c *GoogleBusinessAdapter) makeRequest(ctx context.Context, conn *connection.Connection, method, url string, body any, response any) error {
	accessToken, err := c.tokens.GetValidToken(ctx, conn.ID)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	return c.performRequest(ctx, method, url, accessToken, body, response)
}

func (c *GoogleBusinessAdapter) performRequest(ctx context.Context, method, url, accessToken string, body any, response any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	_, err := c.circuitBreaker.Execute(func() (any, error) {
		return nil, c.doHTTPRequest(ctx, method, url, accessToken, body, response)
	})
	return err
}

func (c *GoogleBusinessAdapter) doHTTPRequest(ctx context.Context, method, url, accessToken string, requestBody any, response any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonData, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Authorization", "Bearer "+accessToken)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	httpResponse, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(httpResponse.Body)

	if httpResponse.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))
		return &HTTPError{StatusCode: httpResponse.StatusCode, Body: string(raw)}
	}

	if response != nil {
		if err := json.NewDecoder(httpResponse.Body).Decode(response); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
