package platform

import (
	"context"
	"testing"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStarRating(t *testing.T) {
	for raw, want := range map[string]int{"ONE": 1, "two": 2, " THREE ": 3, "FOUR": 4, "FIVE": 5, "4": 4} {
		got, err := MapStarRating(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "ZERO", "STAR_RATING_UNSPECIFIED", "6", "0"} {
		_, err := MapStarRating(raw)
		assert.ErrorIs(t, err, ErrInvalidStarRating, raw)
	}
}

type namedAdapter string

func (a namedAdapter) Platform() string { return string(a) }

func (namedAdapter) FetchReviews(context.Context, *connection.Connection, string) (*Page, error) {
	return &Page{}, nil
}

func (namedAdapter) PostReply(context.Context, *connection.Connection, string, string) (*PostResult, error) {
	return &PostResult{}, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(namedAdapter("google"))

	a, err := registry.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "google", a.Platform())

	_, err = registry.Get("yelp")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Equal(t, []string{"google"}, registry.Platforms())
}
