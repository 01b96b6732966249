package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewSourceData struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)"`
	BusinessID   string  `gorm:"type:varchar(36);not null;index"`
	LocationID   string  `gorm:"type:varchar(36);not null;index:idx_review_sources_location_status"`
	Platform     string  `gorm:"type:varchar(50);not null"`
	AccessToken  string  `gorm:"type:text"`
	RefreshToken *string `gorm:"type:text"`
	ExpiresAt    *time.Time
	Metadata     datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	Status       string                                `gorm:"type:varchar(20);not null;default:active;index:idx_review_sources_location_status"`
	LastError    *string                               `gorm:"type:text"`
	CreatedAt    time.Time                             `gorm:"not null"`
	UpdatedAt    time.Time                             `gorm:"not null"`
}

func (r *ReviewSourceData) BeforeCreate(_ *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = "active"
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	return
}

func (r *ReviewSourceData) TableName() string {
	return "review_sources"
}
