package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SyncLogData struct {
	ID               string            `gorm:"primaryKey;type:varchar(36)"`
	SourceID         string            `gorm:"type:varchar(36);not null;index"`
	LocationID       string            `gorm:"type:varchar(36);index"`
	Platform         string            `gorm:"type:varchar(50)"`
	Status           string            `gorm:"type:varchar(20);not null"`
	ReviewsSynced    int               `gorm:"not null;default:0"`
	ReviewsFailed    int               `gorm:"not null;default:0"`
	ErrorMessage     *string           `gorm:"type:text"`
	ErrorStack       *string           `gorm:"type:text"`
	RequestSnapshot  datatypes.JSONMap `gorm:"type:jsonb"`
	ResponseSnapshot datatypes.JSONMap `gorm:"type:jsonb"`
	StartedAt        time.Time         `gorm:"not null"`
	FinishedAt       time.Time         `gorm:"not null"`
	DurationMs       int64             `gorm:"not null"`
	CreatedAt        time.Time         `gorm:"not null"`
}

func (s *SyncLogData) BeforeCreate(_ *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now()
	return
}

func (s *SyncLogData) TableName() string {
	return "sync_logs"
}
