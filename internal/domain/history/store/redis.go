package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/arth-1/socialpost/internal/platform/errors"
)

type redisStore struct {
	client *redis.Client
	key    string
}

// NewRedis constructs a redis-backed history store on a single list key.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil, errors.New(errors.KindConfig, "history.redis", "redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.KindStorage, "history.redis", "redis ping failed", err)
	}

	key := cfg.Redis.Key
	if key == "" {
		key = "socialpost:history"
	}
	return &redisStore{client: client, key: key}, nil
}

func (s *redisStore) Contains(ctx context.Context, prompt string) (bool, error) {
	prompts, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range prompts {
		if p == prompt {
			return true, nil
		}
	}
	return false, nil
}

func (s *redisStore) Prepend(ctx context.Context, prompt string) error {
	if err := s.client.LPush(ctx, s.key, prompt).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "history.redis", "LPUSH failed", err)
	}
	return nil
}

func (s *redisStore) List(ctx context.Context) ([]string, error) {
	prompts, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "history.redis", "LRANGE failed", err)
	}
	return prompts, nil
}

func (s *redisStore) Trim(ctx context.Context, limit int) error {
	if limit < 0 {
		return nil
	}
	if limit == 0 {
		return s.Clear(ctx)
	}
	if err := s.client.LTrim(ctx, s.key, 0, int64(limit-1)).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "history.redis", "LTRIM failed", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "history.redis", "DEL failed", err)
	}
	return nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
