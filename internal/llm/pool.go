package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	errpkg "newsharvest/internal/errors"
)

// PoolConfig holds the settings every pool session is built from.
type PoolConfig struct {
	Endpoint      string
	APIKey        string
	Model         string
	Size          int
	MaxTokens     int
	ContextWindow int
}

// Pool is a fixed-capacity set of reusable LLM sessions. It bounds total
// concurrent outbound LLM calls regardless of how many fetch tasks are
// running: Acquire suspends while all sessions are checked out.
type Pool struct {
	sessions chan Session
	capacity int
	closed   chan struct{}
	once     sync.Once
}

// NewPool creates the pool and its sessions. Construction fails fast when
// the endpoint, model or size configuration is missing or invalid.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("llm pool: endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm pool: model is required")
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("llm pool: size must be positive, got %d", cfg.Size)
	}

	sessions := make([]Session, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		sessions = append(sessions, newSession(cfg))
	}

	slog.Info("llm session pool created", "size", cfg.Size, "model", cfg.Model)
	return NewPoolFromSessions(sessions...), nil
}

// NewPoolFromSessions builds a pool over pre-built sessions. Capacity equals
// the number of sessions given.
func NewPoolFromSessions(sessions ...Session) *Pool {
	p := &Pool{
		sessions: make(chan Session, len(sessions)),
		capacity: len(sessions),
		closed:   make(chan struct{}),
	}
	for _, s := range sessions {
		p.sessions <- s
	}
	return p
}

// Acquire checks a session out of the pool, suspending until one is free.
// It fails fast once the pool is closed or the context is cancelled.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	select {
	case <-p.closed:
		return nil, errpkg.ErrPoolClosed
	default:
	}

	select {
	case s := <-p.sessions:
		return s, nil
	case <-p.closed:
		return nil, errpkg.ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a checked-out session to the free set. Only sessions
// obtained from Acquire may be released.
func (p *Pool) Release(s Session) {
	p.sessions <- s
}

// WithSession runs fn with a checked-out session and guarantees the release
// on every exit path, so a failed extraction call never leaks a slot.
func (p *Pool) WithSession(ctx context.Context, fn func(Session) error) error {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(s)
	return fn(s)
}

// Close drains the free set and makes any later Acquire fail fast. Sessions
// still checked out are abandoned on release.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.closed)
		for {
			select {
			case <-p.sessions:
			default:
				return
			}
		}
	})
}

// Capacity returns the fixed pool capacity.
func (p *Pool) Capacity() int {
	return p.capacity
}
