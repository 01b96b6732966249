package entities

import (
	"time"

	"gorm.io/datatypes"
)

// BusinessProfileData is owned by the profile service; this module only reads
// the auto_reply settings column.
type BusinessProfileData struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)"`
	BusinessID string         `gorm:"type:varchar(36);uniqueIndex;not null"`
	Name       string         `gorm:"type:varchar(255)"`
	AutoReply  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b *BusinessProfileData) TableName() string {
	return "business_profiles"
}

// AutoReplyJSON mirrors the stored auto_reply document. Pointer fields tell
// a missing key apart from an explicit zero.
type AutoReplyJSON struct {
	Enabled                bool   `json:"enabled"`
	Mode                   string `json:"mode"`
	ManualNegativeApproval bool   `json:"manualNegativeApproval"`
	DelayHours             *int   `json:"delayHours"`
	MaxRepliesPerDay       *int   `json:"maxRepliesPerDay"`
	Tone                   string `json:"tone"`
	Timezone               string `json:"timezone"`
}
