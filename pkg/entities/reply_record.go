package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReplyRecordData struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	ReviewID   string    `gorm:"type:varchar(36);not null;index:idx_reply_records_review"`
	Content    string    `gorm:"type:text;not null"`
	AuthorType string    `gorm:"type:varchar(20);not null"`
	SourceType string    `gorm:"type:varchar(20);not null"`
	Status     string    `gorm:"type:varchar(20);not null"`
	UserID     *string   `gorm:"type:varchar(36)"`
	Error      *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null;index:idx_reply_records_review"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (r *ReplyRecordData) BeforeCreate(_ *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	return
}

func (r *ReplyRecordData) TableName() string {
	return "reply_records"
}
