package pipeline

import (
	"context"
	"encoding/json"

	"lookout/internal/logger"
	"lookout/pkg/models"
)

// CategoryUpdater is implemented by the filter; split out so the handler is
// testable without one.
type CategoryUpdater interface {
	UpdateCategories(categories []string)
}

// ConfigUpdateHandler applies eligible-category changes announced on the
// config update topic.
type ConfigUpdateHandler struct {
	updater CategoryUpdater
	logger  logger.Logger
}

func NewConfigUpdateHandler(updater CategoryUpdater, log logger.Logger) *ConfigUpdateHandler {
	return &ConfigUpdateHandler{
		updater: updater,
		logger:  log,
	}
}

// Handle is the broker consumer callback. Unknown event types are ignored;
// malformed payloads are logged and dropped rather than retried, a config
// update that cannot be parsed now will not parse on retry either.
func (h *ConfigUpdateHandler) Handle(ctx context.Context, key string, value []byte) error {
	var event models.ConfigUpdateEvent
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to unmarshal config update event",
			"error", err,
		)
		return nil
	}

	if event.EventType != models.EventTypeCategoriesUpdated {
		return nil
	}

	if len(event.Categories) == 0 {
		h.logger.WarnwCtx(ctx, "Config update event carries no categories, ignoring",
			"action", event.Action,
			"changed_by", event.ChangedBy,
		)
		return nil
	}

	h.logger.InfowCtx(ctx, "Applying config update",
		"event_type", event.EventType,
		"action", event.Action,
		"categories", event.Categories,
		"changed_by", event.ChangedBy,
	)

	h.updater.UpdateCategories(event.Categories)
	return nil
}
