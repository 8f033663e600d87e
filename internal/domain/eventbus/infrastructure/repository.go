package infrastructure

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/arth-1/socialpost/internal/domain/eventbus/repository"
	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/platform/storage"
)

const defaultRecentLimit = 20

type publishRepository struct {
	db *gorm.DB
}

// NewPublishRepository 创建基于 gorm 的发布审计存储
func NewPublishRepository(db *gorm.DB) repository.PublishRepository {
	return &publishRepository{db: db}
}

func (r *publishRepository) Store(ctx context.Context, record *storage.PublishRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "publish.store", "failed to store publish record", err)
	}
	return nil
}

func (r *publishRepository) Recent(ctx context.Context, limit int) ([]storage.PublishRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var records []storage.PublishRecord
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "publish.recent", "failed to list publish records", err)
	}
	return records, nil
}

func (r *publishRepository) Stats(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&storage.PublishRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "publish.stats", "failed to get publish stats", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *publishRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&storage.PublishRecord{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "publish.delete", "failed to delete old publish records", res.Error)
	}
	return res.RowsAffected, nil
}
