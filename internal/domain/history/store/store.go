package store

import "context"

// Store keeps prompts newest first.
type Store interface {
	Contains(ctx context.Context, prompt string) (bool, error)
	Prepend(ctx context.Context, prompt string) error
	List(ctx context.Context) ([]string, error)
	// Trim keeps the newest limit entries.
	Trim(ctx context.Context, limit int) error
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config describes the store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Key      string
}
