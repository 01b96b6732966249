package platform

//go:generate mockgen -source=platform.go -destination=../../mocks/mock_platform.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
)

var (
	ErrAdapter             = errors.New("platform adapter error")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrInvalidStarRating   = errors.New("invalid star rating")
)

// NativeReview is a review as returned by the platform, before mapping.
type NativeReview struct {
	ExternalID string
	Author     string
	StarRating string
	Comment    string
	CreateTime time.Time
	UpdateTime time.Time
	Reply      *NativeReply
}

type NativeReply struct {
	Comment    string
	UpdateTime time.Time
}

type Page struct {
	Reviews    []NativeReview
	NextCursor string
	TotalCount int
}

type PostResult struct {
	ExternalReviewID string
	Comment          string
	UpdateTime       time.Time
}

// Adapter talks to one review platform on behalf of a connection. Access
// tokens are obtained through a TokenProvider, never from the connection.
type Adapter interface {
	Platform() string
	FetchReviews(ctx context.Context, conn *connection.Connection, cursor string) (*Page, error)
	PostReply(ctx context.Context, conn *connection.Connection, externalReviewID, content string) (*PostResult, error)
}

type TokenProvider interface {
	GetValidToken(ctx context.Context, connectionID string) (string, error)
}

var starRatings = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// MapStarRating converts a platform star rating ("FIVE", "5") to 1-5.
func MapStarRating(raw string) (int, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if rating, ok := starRatings[value]; ok {
		return rating, nil
	}
	if rating, err := strconv.Atoi(value); err == nil && rating >= 1 && rating <= 5 {
		return rating, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStarRating, raw)
}
