package storage

import (
	"time"

	"gorm.io/datatypes"
)

// PromptRecord 提示词历史，最新的在前
type PromptRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Prompt    string    `gorm:"type:text;uniqueIndex;not null" json:"prompt"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (PromptRecord) TableName() string {
	return "prompt_history"
}

// PublishRecord Instagram 发布审计记录，不包含凭据与图片内容
type PublishRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Status      string         `gorm:"index;not null" json:"status"` // published / failed
	Username    string         `gorm:"index" json:"username"`
	Caption     string         `gorm:"type:text" json:"caption"`
	MediaID     string         `json:"media_id,omitempty"`
	ImageSource string         `json:"image_source"` // data_uri / remote
	Error       string         `gorm:"type:text" json:"error,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (PublishRecord) TableName() string {
	return "publish_records"
}
