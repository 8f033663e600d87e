package eventbus

import "time"

// 事件类型定义
const (
	EventInstagramPublished = "instagram:published"
	EventInstagramFailed    = "instagram:failed"
	EventPromptRecorded     = "prompt:recorded"
)

const (
	PublishStatusPublished = "published"
	PublishStatusFailed    = "failed"
)

// PublishEventData 一次 Instagram 发布的结果，不包含密码与图片内容
type PublishEventData struct {
	Status      string        `json:"status"`
	Username    string        `json:"username"`
	Caption     string        `json:"caption"`
	MediaID     string        `json:"media_id,omitempty"`
	ImageSource string        `json:"image_source"`
	FailedAt    string        `json:"failed_at,omitempty"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	ImageBytes  int           `json:"image_bytes,omitempty"`
	Duration    time.Duration `json:"duration"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

type PromptEventData struct {
	Prompt string `json:"prompt"`
	Source string `json:"source"` // generate / improve
}
