package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"newsharvest/internal/domain"
	errpkg "newsharvest/internal/errors"
	"newsharvest/internal/metrics"
	"newsharvest/internal/progress"
)

// Close codes used by the observer endpoint. Each rejection reason gets its
// own code so clients can distinguish them without parsing text.
const (
	CloseMissingCredential = 4001
	CloseInvalidCredential = 4002
	CloseUnknownIdentity   = 4003
	CloseUnknownTaskGroup  = 4004
	CloseForbidden         = 4005
	CloseInternalError     = 4011
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// ObserverGateway upgrades observer connections, authorizes them against the
// task-group registry and relays progress events from the bus until the
// observer disconnects or the batch completes.
type ObserverGateway struct {
	bus      progress.Bus
	registry progress.Registry
	states   *progress.TaskStates
	tokens   TokenValidator
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewObserverGateway creates the gateway over the given bus and registry.
func NewObserverGateway(bus progress.Bus, registry progress.Registry, states *progress.TaskStates, tokens TokenValidator, logger *slog.Logger) *ObserverGateway {
	return &ObserverGateway{
		bus:      bus,
		registry: registry,
		states:   states,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles GET /ws/fetch/{taskGroupID}?token=... . The connection is
// upgraded first so rejection reasons can travel as WebSocket close codes.
func (g *ObserverGateway) Serve(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "taskGroupID")
	token := r.URL.Query().Get("token")

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.ConnectedObservers.Inc()
	defer metrics.ConnectedObservers.Dec()

	closeWith := func(code int, reason string) {
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	}

	if token == "" {
		closeWith(CloseMissingCredential, "missing credential")
		return
	}

	userID, err := g.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, errpkg.ErrInvalidToken):
			closeWith(CloseInvalidCredential, "invalid credential")
		case errors.Is(err, errpkg.ErrUnknownIdentity):
			closeWith(CloseUnknownIdentity, "unknown identity")
		default:
			g.logger.Error("token validation failed", "error", err)
			closeWith(CloseInternalError, "internal error")
		}
		return
	}

	group, err := g.registry.Lookup(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, errpkg.ErrTaskGroupNotFound) {
			closeWith(CloseUnknownTaskGroup, "task group not found")
		} else {
			g.logger.Error("task group lookup failed", "task_group_id", groupID, "error", err)
			closeWith(CloseInternalError, "internal error")
		}
		return
	}
	if group.UserID != userID {
		closeWith(CloseForbidden, "task group belongs to another user")
		return
	}

	sub, err := g.bus.Subscribe(r.Context(), groupID)
	if err != nil {
		g.logger.Error("subscription failed", "task_group_id", groupID, "error", err)
		closeWith(CloseInternalError, "internal error")
		return
	}
	defer sub.Close()

	// Leak-prevention fallback: the registry entry goes away when the relay
	// ends, whether or not a terminal event was ever seen.
	defer func() {
		if err := g.registry.Unregister(context.Background(), groupID); err != nil {
			g.logger.Error("failed to unregister task group", "task_group_id", groupID, "error", err)
		}
		g.states.Drop(groupID)
	}()

	// An observer arriving after the batch finished would wait forever: the
	// terminal event was published before it subscribed.
	if batchDone(g.states.Snapshot(groupID)) {
		closeWith(websocket.CloseNormalClosure, "batch completed")
		return
	}

	g.logger.Info("observer connected", "task_group_id", groupID, "user_id", userID)
	g.relay(r.Context(), conn, sub, groupID)
}

// batchDone reports whether every member task in the snapshot has reached a
// terminal step. An empty snapshot means the batch state lives elsewhere and
// the relay loop decides.
func batchDone(tasks []domain.FetchTask) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, task := range tasks {
		if !task.Step.Terminal() {
			return false
		}
	}
	return true
}

// relay forwards events to the observer verbatim. Each loop iteration waits
// a bounded time at most: the ping ticker keeps the loop responsive to a
// dead connection, and the read pump cancels the context on client close.
func (g *ObserverGateway) relay(ctx context.Context, conn *websocket.Conn, sub progress.Subscription, groupID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				g.logger.Debug("observer write failed", "task_group_id", groupID, "error", err)
				return
			}
			if event.Event == domain.EventOverallCompleted {
				deadline := time.Now().Add(writeWait)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "batch completed"), deadline)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
