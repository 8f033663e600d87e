package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/arth-1/socialpost/internal/utils"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// Console overrides the coloured console sink, mainly for tests.
	Console io.Writer
}

// Logger bundles the tagged file/console logger with its slog view.
type Logger struct {
	legacy *utils.Logger
}

// New creates a Logger that writes JSON lines to Dir/Filename and coloured
// text to the console.
func New(cfg Config) (*Logger, error) {
	legacy, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: cfg.Level,
		LogDir:   cfg.Dir,
		LogFile:  cfg.Filename,
		Console:  cfg.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &Logger{legacy: legacy}, nil
}

// Legacy exposes the tagged logger used by domain services.
func (l *Logger) Legacy() *utils.Logger {
	return l.legacy
}

// Slog exposes the structured logger for middleware and observability.
func (l *Logger) Slog() *slog.Logger {
	return l.legacy.Slog()
}

func (l *Logger) Close() error {
	if l == nil || l.legacy == nil {
		return nil
	}
	return l.legacy.Close()
}
