package progress

import (
	"context"

	"newsharvest/internal/domain"
)

// Bus carries progress events from the worker producing them to any number
// of live observers, keyed by task-group id. Publish is fire-and-forget: a
// slow or absent observer never blocks the producing task.
type Bus interface {
	Publish(ctx context.Context, taskGroupID string, event domain.ProgressEvent) error
	Subscribe(ctx context.Context, taskGroupID string) (Subscription, error)
}

// Subscription is one observer's live feed for a task group. The events
// channel is closed when the subscription is closed.
type Subscription interface {
	Events() <-chan domain.ProgressEvent
	Close() error
}

// Registry tracks which task group belongs to which user and which member
// tasks compose it. Implementations are injected, never ambient globals.
type Registry interface {
	Register(ctx context.Context, group *domain.TaskGroup) error
	Lookup(ctx context.Context, taskGroupID string) (*domain.TaskGroup, error)
	Unregister(ctx context.Context, taskGroupID string) error
}
