package progress

import (
	"context"
	"log/slog"

	"newsharvest/internal/domain"
)

// Reporter is the single progress capability handed to the orchestrator.
type Reporter interface {
	Report(ctx context.Context, event domain.ProgressEvent)
}

// BusReporter fans every event out to the local task-state store and the
// Bus. Publish failures are logged, never propagated: progress reporting
// must not fail a fetch task.
type BusReporter struct {
	bus    Bus
	states *TaskStates
	logger *slog.Logger
}

// NewBusReporter creates a reporter over the given bus and state store.
func NewBusReporter(bus Bus, states *TaskStates, logger *slog.Logger) *BusReporter {
	return &BusReporter{bus: bus, states: states, logger: logger}
}

func (r *BusReporter) Report(ctx context.Context, event domain.ProgressEvent) {
	r.states.Apply(event)

	if err := r.bus.Publish(ctx, event.TaskGroupID, event); err != nil {
		r.logger.Error("failed to publish progress event",
			"task_group_id", event.TaskGroupID,
			"source_id", event.SourceID,
			"error", err,
		)
	}
}
