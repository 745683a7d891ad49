package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"newsharvest/internal/domain"
	errpkg "newsharvest/internal/errors"
)

const (
	redisChannelPrefix = "newsharvest:progress:"
	redisGroupPrefix   = "newsharvest:group:"
)

// RedisBus bridges progress events across processes: one process publishes,
// a different process relays to its observers. Used when the worker and the
// connection handler are deployed separately.
type RedisBus struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisBus creates a bus over an existing Redis client.
func NewRedisBus(rdb *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, taskGroupID string, event domain.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, redisChannelPrefix+taskGroupID, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, taskGroupID string) (Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, redisChannelPrefix+taskGroupID)

	// Force the SUBSCRIBE round-trip so a broken connection fails here
	// instead of silently dropping events later.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan domain.ProgressEvent, subscriptionBuffer),
	}

	go func() {
		defer close(sub.events)
		for msg := range pubsub.Channel() {
			var event domain.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("dropping malformed progress event", "error", err)
				continue
			}
			select {
			case sub.events <- event:
			default:
			}
		}
	}()

	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan domain.ProgressEvent
	once   sync.Once
	err    error
}

func (s *redisSubscription) Events() <-chan domain.ProgressEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
	})
	return s.err
}

// RedisRegistry stores task-group ownership in Redis so any process can
// authorize observers.
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedisRegistry creates a registry over an existing Redis client.
func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func (r *RedisRegistry) Register(ctx context.Context, group *domain.TaskGroup) error {
	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to marshal task group: %w", err)
	}
	if err := r.rdb.Set(ctx, redisGroupPrefix+group.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to register task group: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, taskGroupID string) (*domain.TaskGroup, error) {
	data, err := r.rdb.Get(ctx, redisGroupPrefix+taskGroupID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errpkg.ErrTaskGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up task group: %w", err)
	}

	var group domain.TaskGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task group: %w", err)
	}
	return &group, nil
}

func (r *RedisRegistry) Unregister(ctx context.Context, taskGroupID string) error {
	if err := r.rdb.Del(ctx, redisGroupPrefix+taskGroupID).Err(); err != nil {
		return fmt.Errorf("failed to unregister task group: %w", err)
	}
	return nil
}
