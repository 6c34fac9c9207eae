// Package consumers adapts events from other notebook services onto the link
// service.
package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	awsevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// LinkCleaner removes every link touching an entity
type LinkCleaner interface {
	DeleteLinksForEntity(ctx context.Context, entityType, entityID string) (int, error)
}

// EntityDeletedHandler purges links of entities deleted elsewhere
type EntityDeletedHandler struct {
	cleaner LinkCleaner
	logger  *zap.Logger
}

// NewEntityDeletedHandler creates a new handler
func NewEntityDeletedHandler(cleaner LinkCleaner, logger *zap.Logger) *EntityDeletedHandler {
	return &EntityDeletedHandler{cleaner: cleaner, logger: logger}
}

// Handle removes the links of one deleted entity. Validation failures are
// returned so the transport can drop the message.
func (h *EntityDeletedHandler) Handle(ctx context.Context, detail events.EntityDeletedDetail) error {
	if detail.EntityType == "" || detail.EntityID == "" {
		return apperrors.NewValidationError("entity_type and entity_id are required")
	}

	removed, err := h.cleaner.DeleteLinksForEntity(ctx, detail.EntityType, detail.EntityID)
	if err != nil {
		h.logger.Error("Failed to remove links of deleted entity",
			zap.String("entityType", detail.EntityType),
			zap.String("entityID", detail.EntityID),
			zap.Error(err))
		return err
	}

	h.logger.Info("Removed links of deleted entity",
		zap.String("entityType", detail.EntityType),
		zap.String("entityID", detail.EntityID),
		zap.Int("removed", removed))
	return nil
}

// HandleCloudWatchEvent is the Lambda entry point for EventBridge deliveries.
// Other detail types are ignored. Malformed or invalid details are logged and
// swallowed so EventBridge does not retry them; storage failures are returned
// so the delivery is retried.
func (h *EntityDeletedHandler) HandleCloudWatchEvent(ctx context.Context, event awsevents.CloudWatchEvent) error {
	if event.DetailType != events.EventTypeEntityDeleted {
		h.logger.Debug("Skipping event", zap.String("eventID", event.ID), zap.String("detailType", event.DetailType))
		return nil
	}

	var detail events.EntityDeletedDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		h.logger.Error("Failed to unmarshal event detail",
			zap.String("eventID", event.ID),
			zap.ByteString("detail", event.Detail),
			zap.Error(err))
		return nil
	}

	if err := h.Handle(ctx, detail); err != nil {
		if apperrors.IsCallerError(err) {
			h.logger.Warn("Dropping invalid event", zap.String("eventID", event.ID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("cleanup failed for %s %s: %w", detail.EntityType, detail.EntityID, err)
	}
	return nil
}
