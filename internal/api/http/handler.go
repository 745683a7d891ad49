package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"newsharvest/internal/domain"
	errpkg "newsharvest/internal/errors"
)

// FetchScheduler is the batch-fetch surface exposed to the API layer.
type FetchScheduler interface {
	ScheduleBatchFetch(ctx context.Context, sourceIDs []string, userID string) (string, error)
	BatchStatus(ctx context.Context, taskGroupID string) (*domain.BatchStatusResponse, error)
}

// TokenValidator resolves a caller credential to a user identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// GroupLookup authorizes access to a task group.
type GroupLookup interface {
	Lookup(ctx context.Context, taskGroupID string) (*domain.TaskGroup, error)
}

// FetchHandler handles HTTP requests for batch fetches.
type FetchHandler struct {
	scheduler FetchScheduler
	registry  GroupLookup
	tokens    TokenValidator
	validator *validator.Validate
	logger    *slog.Logger
}

// NewFetchHandler creates a new FetchHandler with the provided collaborators.
func NewFetchHandler(scheduler FetchScheduler, registry GroupLookup, tokens TokenValidator, logger *slog.Logger) *FetchHandler {
	return &FetchHandler{
		scheduler: scheduler,
		registry:  registry,
		tokens:    tokens,
		validator: validator.New(),
		logger:    logger,
	}
}

// ScheduleBatch handles POST /fetch. It acknowledges immediately with the
// task-group id; success or failure of individual sources is only knowable
// from the progress stream.
func (h *FetchHandler) ScheduleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req domain.BatchFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	groupID, err := h.scheduler.ScheduleBatchFetch(ctx, req.SourceIDs, userID)
	if err != nil {
		if errors.Is(err, errpkg.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		h.logger.Error("failed to schedule batch fetch", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, domain.BatchFetchResponse{
		TaskGroupID: groupID,
		Status:      "accepted",
	})
}

// BatchStatus handles GET /fetch/{taskGroupID}: a polling snapshot of the
// batch's member tasks for callers without a live observer connection.
func (h *FetchHandler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	groupID := chi.URLParam(r, "taskGroupID")
	group, err := h.registry.Lookup(ctx, groupID)
	if err != nil {
		if errors.Is(err, errpkg.ErrTaskGroupNotFound) {
			writeError(w, http.StatusNotFound, "task group not found")
			return
		}
		h.logger.Error("failed to look up task group", "task_group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if group.UserID != userID {
		writeError(w, http.StatusForbidden, "task group belongs to another user")
		return
	}

	status, err := h.scheduler.BatchStatus(ctx, groupID)
	if err != nil {
		h.logger.Error("failed to get batch status", "task_group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *FetchHandler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing credential")
		return "", false
	}

	userID, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, errpkg.ErrInvalidToken) || errors.Is(err, errpkg.ErrUnknownIdentity) {
			writeError(w, http.StatusUnauthorized, "invalid credential")
			return "", false
		}
		h.logger.Error("failed to validate token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
