package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite builds a SQLite-backed history store on the prompt_history table.
func NewSQLite(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, errors.New(errors.KindConfig, "history.sqlite", "sqlite store requires database handle")
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Contains(ctx context.Context, prompt string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&storage.PromptRecord{}).Where("prompt = ?", prompt).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(errors.KindStorage, "history.sqlite", "failed to query prompt", err)
	}
	return count > 0, nil
}

func (s *sqliteStore) Prepend(ctx context.Context, prompt string) error {
	record := &storage.PromptRecord{Prompt: prompt, CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "history.sqlite", "failed to insert prompt", err)
	}
	return nil
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	var prompts []string
	err := s.db.WithContext(ctx).Model(&storage.PromptRecord{}).Order("id DESC").Pluck("prompt", &prompts).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "history.sqlite", "failed to list prompts", err)
	}
	return prompts, nil
}

func (s *sqliteStore) Trim(ctx context.Context, limit int) error {
	if limit < 0 {
		return nil
	}
	keep := s.db.Model(&storage.PromptRecord{}).Select("id").Order("id DESC").Limit(limit)
	err := s.db.WithContext(ctx).Where("id NOT IN (?)", keep).Delete(&storage.PromptRecord{}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "history.sqlite", "failed to trim prompts", err)
	}
	return nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("1 = 1").Delete(&storage.PromptRecord{}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "history.sqlite", "failed to clear prompts", err)
	}
	return nil
}

// Close is a no-op; the database handle is owned by the caller.
func (s *sqliteStore) Close(context.Context) error {
	return nil
}
