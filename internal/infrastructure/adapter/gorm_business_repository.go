package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/business"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/ports"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/entities"
	"gorm.io/gorm"
)

type GormBusinessRepository struct {
	db *gorm.DB
}

func NewGormBusinessRepository(database *gorm.DB) *GormBusinessRepository {
	return &GormBusinessRepository{db: database}
}

func (r *GormBusinessRepository) FindProfile(ctx context.Context, businessID string) (*business.Profile, error) {
	var data entities.BusinessProfileData
	err := r.db.WithContext(ctx).Where("business_id = ?", businessID).First(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	profile := &business.Profile{BusinessID: data.BusinessID, Name: data.Name}
	if len(data.AutoReply) == 0 || string(data.AutoReply) == "null" {
		return profile, nil
	}
	var raw entities.AutoReplyJSON
	if err := json.Unmarshal(data.AutoReply, &raw); err != nil {
		return nil, fmt.Errorf("invalid auto_reply settings for business %s: %w", businessID, err)
	}
	profile.AutoReply = settingsFromJSON(raw)
	return profile, nil
}

func settingsFromJSON(raw entities.AutoReplyJSON) *business.AutoReplySettings {
	s := &business.AutoReplySettings{
		Enabled:                raw.Enabled,
		Mode:                   business.Mode(raw.Mode),
		ManualNegativeApproval: raw.ManualNegativeApproval,
		MaxRepliesPerDay:       business.DefaultMaxRepliesPerDay,
		Tone:                   raw.Tone,
		Timezone:               raw.Timezone,
	}
	if s.Mode == "" {
		s.Mode = business.ModePositive
	}
	if raw.DelayHours != nil && *raw.DelayHours > 0 {
		s.DelayHours = *raw.DelayHours
	}
	if raw.MaxRepliesPerDay != nil {
		s.MaxRepliesPerDay = *raw.MaxRepliesPerDay
	}
	return s
}

// CachedBusinessRepository keeps business profiles in the shared cache for a
// short TTL. Daily reply counts are never cached; only the settings are.
type CachedBusinessRepository struct {
	next   business.Repository
	cache  ports.CachePort
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedBusinessRepository(next business.Repository, cache ports.CachePort, ttl time.Duration, logger *slog.Logger) *CachedBusinessRepository {
	return &CachedBusinessRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

// cachedProfile also records misses so unknown businesses are not looked up
// on every review.
type cachedProfile struct {
	Found   bool              `json:"found"`
	Profile *business.Profile `json:"profile,omitempty"`
}

func (r *CachedBusinessRepository) FindProfile(ctx context.Context, businessID string) (*business.Profile, error) {
	key := "business_profile:" + businessID
	var cached cachedProfile
	hit, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("Business profile cache read failed", constants.BusinessID, businessID, "error", err)
	}
	if hit && err == nil {
		if !cached.Found {
			return nil, nil
		}
		return cached.Profile, nil
	}

	profile, err := r.next.FindProfile(ctx, businessID)
	if err != nil {
		return nil, err
	}
	entry := cachedProfile{Found: profile != nil, Profile: profile}
	if err := r.cache.Set(ctx, key, entry, r.ttl); err != nil {
		r.logger.Warn("Business profile cache write failed", constants.BusinessID, businessID, "error", err)
	}
	return profile, nil
}
