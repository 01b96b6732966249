package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewData struct {
	ID                   string                      `gorm:"primaryKey;type:varchar(36)"`
	BusinessID           string                      `gorm:"type:varchar(36);not null;index:idx_reviews_business_location"`
	LocationID           string                      `gorm:"type:varchar(36);not null;index:idx_reviews_business_location;uniqueIndex:idx_reviews_identity"`
	SourceID             *string                     `gorm:"type:varchar(36);index"`
	Platform             string                      `gorm:"type:varchar(50);not null;uniqueIndex:idx_reviews_identity"`
	ExternalID           string                      `gorm:"type:varchar(255);not null;uniqueIndex:idx_reviews_identity"`
	Author               string                      `gorm:"type:varchar(255)"`
	Rating               int                         `gorm:"not null"`
	Content              string                      `gorm:"type:text"`
	PublishedAt          time.Time                   `gorm:"not null"`
	Sentiment            *string                     `gorm:"type:varchar(20)"`
	Tags                 datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Response             *string                     `gorm:"type:text"`
	RespondedAt          *time.Time
	ReplyStatus          *string        `gorm:"type:varchar(32);index"`
	ReplyError           *string        `gorm:"type:text"`
	AISuggestions        datatypes.JSON `gorm:"type:jsonb"`
	ReplyStatusChangedAt *time.Time     `gorm:"index"`
	CreatedAt            time.Time      `gorm:"not null"`
	UpdatedAt            time.Time      `gorm:"not null"`
}

func (r *ReviewData) BeforeCreate(_ *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	return
}

func (r *ReviewData) BeforeUpdate(_ *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return
}

func (r *ReviewData) TableName() string {
	return "reviews"
}
