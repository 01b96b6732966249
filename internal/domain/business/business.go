package business

import (
	"context"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
)

type Mode string

const (
	ModePositive        Mode = "positive"
	ModePositiveNeutral Mode = "positive_neutral"
)

const (
	DefaultMaxRepliesPerDay = 10
	DefaultTone             = "friendly and professional"
)

// AutoReplySettings is the per-business auto-reply policy. It is owned by the
// business profile and only read here.
type AutoReplySettings struct {
	Enabled                bool
	Mode                   Mode
	ManualNegativeApproval bool
	DelayHours             int
	MaxRepliesPerDay       int
	Tone                   string
	Timezone               string
}

type Profile struct {
	BusinessID string
	Name       string
	AutoReply  *AutoReplySettings
}

type Repository interface {
	// FindProfile returns nil without error when the business has no profile.
	FindProfile(ctx context.Context, businessID string) (*Profile, error)
}

// Accepts reports whether reviews of the given sentiment are eligible for an
// automatic draft under this mode. Negative reviews are always drafted; whether
// they need a human is decided separately by ManualNegativeApproval.
func (s *AutoReplySettings) Accepts(sentiment review.Sentiment) bool {
	switch sentiment {
	case review.SentimentNegative:
		return true
	case review.SentimentPositive:
		return s.Mode == ModePositive || s.Mode == ModePositiveNeutral
	case review.SentimentNeutral:
		return s.Mode == ModePositiveNeutral
	}
	return false
}

func (s *AutoReplySettings) Delay() time.Duration {
	return time.Duration(s.DelayHours) * time.Hour
}

// Location resolves the configured timezone, falling back to UTC.
func (s *AutoReplySettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StartOfDay returns local midnight of now in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
