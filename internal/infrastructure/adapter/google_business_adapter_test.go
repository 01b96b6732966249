package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func googleConn() *connection.Connection {
	return &connection.Connection{
		ID:       "conn-1",
		Platform: connection.PlatformGoogle,
		Metadata: map[string]string{
			connection.MetadataAccountID:  "acc-1",
			connection.MetadataLocationID: "loc-9",
		},
		Status: connection.StatusActive,
	}
}

func newTestGoogleAdapter(t *testing.T, server *httptest.Server) (*GoogleBusinessAdapter, *mocks.MockTokenProvider) {
	return newTestGoogleAdapterWithTimeout(t, server, 2*time.Second)
}

func newTestGoogleAdapterWithTimeout(t *testing.T, server *httptest.Server, timeout time.Duration) (*GoogleBusinessAdapter, *mocks.MockTokenProvider) {
	tokens := mocks.NewMockTokenProvider(gomock.NewController(t))
	a := NewGoogleBusinessAdapter(&APIConfig{
		BaseURL:    server.URL,
		Timeout:    timeout,
		RateLimit:  1000,
		BurstLimit: 10,
	}, tokens, discardLogger())
	return a, tokens
}

func TestGoogleFetchReviews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acc-1/locations/loc-9/reviews", r.URL.Path)
		assert.Equal(t, "next-1", r.URL.Query().Get("pageToken"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"reviews": [{"reviewId": "r-1", "reviewer": {"displayName": "Jane"}, "starRating": "FOUR", "comment": "Nice", "createTime": "2026-03-01T10:00:00Z"}],
			"totalReviewCount": 7,
			"nextPageToken": "next-2"
		}`))
	}))
	defer server.Close()
	a, tokens := newTestGoogleAdapter(t, server)
	tokens.EXPECT().GetValidToken(gomock.Any(), "conn-1").Return("access-1", nil)

	page, err := a.FetchReviews(context.Background(), googleConn(), "next-1")

	require.NoError(t, err)
	assert.Equal(t, "next-2", page.NextCursor)
	assert.Equal(t, 7, page.TotalCount)
	require.Len(t, page.Reviews, 1)
	assert.Equal(t, "r-1", page.Reviews[0].ExternalID)
	assert.Equal(t, "Jane", page.Reviews[0].Author)
}

func TestGoogleServerErrorFailsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"reviews": []}`))
	}))
	defer server.Close()
	a, tokens := newTestGoogleAdapter(t, server)
	tokens.EXPECT().GetValidToken(gomock.Any(), "conn-1").Return("access-1", nil).Times(1)

	page, err := a.FetchReviews(context.Background(), googleConn(), "")

	require.ErrorIs(t, err, platform.ErrAdapter)
	assert.Nil(t, page)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGooglePostReplyTimeoutIsNotResent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"comment": "Thanks!"}`))
	}))
	defer server.Close()
	a, tokens := newTestGoogleAdapterWithTimeout(t, server, 100*time.Millisecond)
	tokens.EXPECT().GetValidToken(gomock.Any(), "conn-1").Return("access-1", nil).Times(1)

	result, err := a.PostReply(context.Background(), googleConn(), "r-1", "Thanks!")

	require.ErrorIs(t, err, platform.ErrAdapter)
	assert.Nil(t, result)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGoogleDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "PERMISSION_DENIED"}`))
	}))
	defer server.Close()
	a, tokens := newTestGoogleAdapter(t, server)
	tokens.EXPECT().GetValidToken(gomock.Any(), gomock.Any()).Return("access-1", nil)

	_, err := a.FetchReviews(context.Background(), googleConn(), "")

	require.ErrorIs(t, err, platform.ErrAdapter)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGoogleKeepsTokenFailureClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("platform must not be called without a token")
	}))
	defer server.Close()
	a, tokens := newTestGoogleAdapter(t, server)
	tokens.EXPECT().GetValidToken(gomock.Any(), gomock.Any()).Return("", connection.ErrTokenRefreshFailed)

	_, err := a.FetchReviews(context.Background(), googleConn(), "")

	assert.ErrorIs(t, err, connection.ErrTokenRefreshFailed)
	assert.False(t, errors.Is(err, platform.ErrAdapter))
}

func TestGooglePostReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/accounts/acc-1/locations/loc-9/reviews/r-1/reply", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Thank you", body["comment"])
		_, _ = w.Write([]byte(`{"comment": "Thank you", "updateTime": "2026-03-10T12:00:00Z"}`))
	}))
	defer server.Close()
	a, tokens := newTestGoogleAdapter(t, server)
	tokens.EXPECT().GetValidToken(gomock.Any(), "conn-1").Return("access-1", nil)

	result, err := a.PostReply(context.Background(), googleConn(), "r-1", "Thank you")

	require.NoError(t, err)
	assert.Equal(t, "r-1", result.ExternalReviewID)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), result.UpdateTime)
}

func TestGoogleRequiresLocationMetadata(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	a, _ := newTestGoogleAdapter(t, server)
	conn := googleConn()
	conn.Metadata = nil

	_, err := a.FetchReviews(context.Background(), conn, "")

	assert.ErrorIs(t, err, platform.ErrAdapter)
}
