// Package handler exposes transfer watcher controls over HTTP. All watcher
// endpoints are operator-only and sit behind the admin token.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"whaled/internal/platform/middleware"
	"whaled/internal/watcher/models"
	"whaled/pkg/platform/httputil"
	"whaled/pkg/platform/middleware/admin"
)

// Service defines the interface for watcher control operations.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() models.WatchStatus
	Logs() []string
}

// Handler wires watcher endpoints to the watcher service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	adminToken     string
	adminTokenHash string
}

// New constructs a watcher handler with its dependencies. A non-empty
// adminTokenHash selects the bcrypt gate over the plaintext comparison.
func New(service Service, logger *slog.Logger, adminToken, adminTokenHash string) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		adminToken:     adminToken,
		adminTokenHash: adminTokenHash,
	}
}

// Register mounts watcher endpoints under /watch. The registry handler owns
// the root mount, so this vertical takes its own path prefix.
func (h *Handler) Register(r chi.Router) {
	watchRouter := chi.NewRouter()
	watchRouter.Use(middleware.Recovery(h.logger))
	watchRouter.Use(middleware.RequestID)
	watchRouter.Use(middleware.Logger(h.logger))
	watchRouter.Use(middleware.Timeout(10 * time.Second))
	watchRouter.Use(admin.RequireAdmin(h.adminToken, h.adminTokenHash, h.logger))

	watchRouter.Post("/start", h.handleStart)
	watchRouter.Post("/stop", h.handleStop)
	watchRouter.Get("/status", h.handleStatus)
	watchRouter.Get("/logs", h.handleLogs)

	r.Mount("/watch", watchRouter)
}

// handleStart handles POST /watch/start requests.
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Start(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to start watch",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, h.service.Status())
}

// handleStop handles POST /watch/stop requests.
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Stop(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.service.Status())
}

// handleStatus handles GET /watch/status requests.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Status())
}

// handleLogs handles GET /watch/logs requests, returning the transfer lines
// captured during the current or most recent watch session.
func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs := h.service.Logs()
	if logs == nil {
		logs = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, LogsResponse{Lines: logs})
}

// LogsResponse carries captured transfer lines.
type LogsResponse struct {
	Lines []string `json:"lines"`
}
