package progress

import (
	"context"
	"sync"
	"time"

	"newsharvest/internal/domain"
	errpkg "newsharvest/internal/errors"
)

const subscriptionBuffer = 64

// MemoryBus is the in-process Bus implementation used for single-process
// deployments.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySubscription]struct{}
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[*memorySubscription]struct{}),
	}
}

// Publish delivers the event to every live subscriber of the task group.
// Events for subscribers whose buffer is full are dropped rather than
// blocking the producer.
func (b *MemoryBus) Publish(_ context.Context, taskGroupID string, event domain.ProgressEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[taskGroupID] {
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a new live feed for the task group.
func (b *MemoryBus) Subscribe(_ context.Context, taskGroupID string) (Subscription, error) {
	sub := &memorySubscription{
		bus:         b,
		taskGroupID: taskGroupID,
		events:      make(chan domain.ProgressEvent, subscriptionBuffer),
	}

	b.mu.Lock()
	if b.subs[taskGroupID] == nil {
		b.subs[taskGroupID] = make(map[*memorySubscription]struct{})
	}
	b.subs[taskGroupID][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

type memorySubscription struct {
	bus         *MemoryBus
	taskGroupID string
	events      chan domain.ProgressEvent
	once        sync.Once
}

func (s *memorySubscription) Events() <-chan domain.ProgressEvent {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		delete(b.subs[s.taskGroupID], s)
		if len(b.subs[s.taskGroupID]) == 0 {
			delete(b.subs, s.taskGroupID)
		}
		b.mu.Unlock()
		close(s.events)
	})
	return nil
}

// MemoryRegistry is the in-process Registry implementation.
type MemoryRegistry struct {
	mu     sync.RWMutex
	groups map[string]*domain.TaskGroup
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		groups: make(map[string]*domain.TaskGroup),
	}
}

func (r *MemoryRegistry) Register(_ context.Context, group *domain.TaskGroup) error {
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}

	r.mu.Lock()
	r.groups[group.ID] = group
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, taskGroupID string) (*domain.TaskGroup, error) {
	r.mu.RLock()
	group, ok := r.groups[taskGroupID]
	r.mu.RUnlock()

	if !ok {
		return nil, errpkg.ErrTaskGroupNotFound
	}
	return group, nil
}

func (r *MemoryRegistry) Unregister(_ context.Context, taskGroupID string) error {
	r.mu.Lock()
	delete(r.groups, taskGroupID)
	r.mu.Unlock()
	return nil
}
