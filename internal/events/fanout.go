package events

import (
	"context"

	"task-service/internal/models"
	"task-service/internal/services"
)

// Fanout hands each event to every publisher in order
type Fanout []services.EventPublisher

func (f Fanout) Publish(ctx context.Context, event models.TaskEvent) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}
