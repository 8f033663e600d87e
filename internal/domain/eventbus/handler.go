package eventbus

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"

	"github.com/arth-1/socialpost/internal/domain/eventbus/repository"
	"github.com/arth-1/socialpost/internal/platform/storage"
	"github.com/arth-1/socialpost/internal/utils"
)

// Subscriber is the subset of the bus needed to register handlers.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
}

// AuditHandler 记录发布结果；repo 为空时只写日志
type AuditHandler struct {
	repo   repository.PublishRepository
	logger *utils.Logger
}

func NewAuditHandler(repo repository.PublishRepository, logger *utils.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, logger: logger}
}

// Handle 处理事件
func (h *AuditHandler) Handle(eventType string, data interface{}) {
	switch eventType {
	case EventInstagramPublished, EventInstagramFailed:
		evt, ok := data.(PublishEventData)
		if !ok {
			h.logger.WarnTag("审计", "unexpected payload for %s: %T", eventType, data)
			return
		}
		h.handlePublish(evt)
	case EventPromptRecorded:
		if evt, ok := data.(PromptEventData); ok {
			h.logger.DebugTag("审计", "prompt recorded: source=%s", evt.Source)
		}
	default:
		h.logger.WarnTag("审计", "未处理的事件类型: %s", eventType)
	}
}

func (h *AuditHandler) handlePublish(evt PublishEventData) {
	if evt.Status == PublishStatusPublished {
		h.logger.InfoTag("审计", "instagram publish ok: user=%s media=%s duration=%s", evt.Username, evt.MediaID, evt.Duration)
	} else {
		h.logger.WarnTag("审计", "instagram publish failed: user=%s step=%s kind=%s", evt.Username, evt.FailedAt, evt.ErrorKind)
	}
	if h.repo == nil {
		return
	}

	meta, err := sonic.Marshal(map[string]interface{}{
		"failed_at":   evt.FailedAt,
		"error_kind":  evt.ErrorKind,
		"image_bytes": evt.ImageBytes,
	})
	if err != nil {
		h.logger.ErrorTag("审计", "marshal publish metadata: %v", err)
		meta = nil
	}

	createdAt := evt.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	record := &storage.PublishRecord{
		Status:      evt.Status,
		Username:    evt.Username,
		Caption:     evt.Caption,
		MediaID:     evt.MediaID,
		ImageSource: evt.ImageSource,
		Error:       evt.Error,
		DurationMs:  evt.Duration.Milliseconds(),
		Metadata:    datatypes.JSON(meta),
		CreatedAt:   createdAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.repo.Store(ctx, record); err != nil {
		h.logger.ErrorTag("审计", "persist publish record: %v", err)
	}
}

// SetupEventHandlers 将审计处理器订阅到发布相关主题
func SetupEventHandlers(bus Subscriber, handler *AuditHandler) error {
	for _, topic := range []string{EventInstagramPublished, EventInstagramFailed, EventPromptRecorded} {
		if err := bus.Subscribe(topic, func(args ...interface{}) {
			if len(args) > 0 {
				handler.Handle(topic, args[0])
			}
		}); err != nil {
			return err
		}
	}
	return nil
}
