package eventbus

import (
	"context"
	"fmt"

	"valuation-backend/internal/storage"
)

type ActivityStorage interface {
	SaveActivity(ctx context.Context, entry storage.ActivityEntry) error
}

// ActivityConsumer writes every event to the activity log.
type ActivityConsumer struct {
	storage ActivityStorage
}

func NewActivityConsumer(storage ActivityStorage) *ActivityConsumer {
	return &ActivityConsumer{storage: storage}
}

func (c *ActivityConsumer) HandleEvent(ctx context.Context, evt Event) error {
	const op = "eventbus.ActivityConsumer.HandleEvent"

	err := c.storage.SaveActivity(ctx, storage.ActivityEntry{
		ID:             evt.ID,
		OrganizationID: evt.OrganizationID,
		UserID:         evt.UserID,
		Action:         evt.Type,
		EntityType:     evt.EntityType,
		EntityID:       evt.EntityID,
		Summary:        evt.Summary,
		OccurredAt:     evt.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
