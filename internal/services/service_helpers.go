package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

// Clock returns the current time; tests replace it
type Clock func() time.Time

// getOwnedTest loads a test through repo and checks that userID owns it
func getOwnedTest(ctx context.Context, repo repositories.Repository, id uint, userID, action string) (*models.Test, error) {
	test, err := repo.Test().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test.OwnerID != userID {
		return nil, NewPermissionError(userID, id, "test", action, "not owner")
	}
	return test, nil
}

// publishEvent is fire-and-forget: the state change it reports is already committed
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType string, data interface{}) {
	if publisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", "event_type", eventType, "event_id", event.ID, "error", err)
	}
}

func normalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
