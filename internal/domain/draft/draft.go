package draft

//go:generate mockgen -source=draft.go -destination=../../mocks/mock_draft.go -package=mocks

import (
	"context"
	"errors"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
)

var ErrDraftGenerationFailed = errors.New("draft generation failed")

// Request carries what a drafter needs to write a reply for one review.
type Request struct {
	BusinessName string
	Tone         string
	Platform     string
	Author       string
	Rating       int
	Content      string
	Sentiment    review.Sentiment
}

type Drafter interface {
	Draft(ctx context.Context, req Request) (*review.Suggestions, error)
}
