// Package history keeps the most recent image prompts, newest first.
package history

import (
	"context"
	"strings"
	"sync"

	"github.com/arth-1/socialpost/internal/domain/eventbus"
	"github.com/arth-1/socialpost/internal/domain/history/store"
	"github.com/arth-1/socialpost/internal/utils"
)

const (
	DefaultLimit = 10
	logTag       = "历史"
)

// EventPublisher receives prompt:recorded notifications.
type EventPublisher interface {
	PublishAsync(topic string, args ...interface{})
}

// Service applies the history rules on top of a Store: blank prompts are
// ignored, known prompts keep their position and the list is capped.
type Service struct {
	store  store.Store
	limit  int
	events EventPublisher
	logger *utils.Logger

	mu sync.Mutex
}

func NewService(s store.Store, limit int, events EventPublisher, logger *utils.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{store: s, limit: limit, events: events, logger: logger}
}

// Add records prompt. It reports whether the history changed.
func (s *Service) Add(ctx context.Context, prompt, source string) (bool, error) {
	if strings.TrimSpace(prompt) == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.store.Contains(ctx, prompt)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.store.Prepend(ctx, prompt); err != nil {
		return false, err
	}
	if err := s.store.Trim(ctx, s.limit); err != nil {
		return false, err
	}

	s.logger.DebugTag(logTag, "记录提示词: %q", prompt)
	if s.events != nil {
		s.events.PublishAsync(eventbus.EventPromptRecorded, eventbus.PromptEventData{Prompt: prompt, Source: source})
	}
	return true, nil
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	prompts, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = []string{}
	}
	if len(prompts) > s.limit {
		prompts = prompts[:s.limit]
	}
	return prompts, nil
}

func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.InfoTag(logTag, "提示词历史已清空")
	return nil
}

func (s *Service) Limit() int {
	return s.limit
}

func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
