package repository

import (
	"context"
	"time"

	"github.com/arth-1/socialpost/internal/platform/storage"
)

// PublishRepository 发布审计记录的数据访问接口
type PublishRepository interface {
	// Store 保存一条发布记录
	Store(ctx context.Context, record *storage.PublishRecord) error

	// Recent 按时间倒序返回最近的记录，limit<=0 表示默认 20 条
	Recent(ctx context.Context, limit int) ([]storage.PublishRecord, error)

	// Stats 按状态统计记录数
	Stats(ctx context.Context) (map[string]int64, error)

	// DeleteBefore 删除指定时间之前的记录
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
