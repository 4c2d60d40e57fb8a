// Package httptransport assembles the full HTTP surface: registry and
// watcher verticals, operational endpoints, and the audit admin view.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	registryhandler "whaled/internal/registry/handler"
	watcherhandler "whaled/internal/watcher/handler"
	dErrors "whaled/pkg/domain-errors"
	"whaled/pkg/platform/audit"
	"whaled/pkg/platform/httputil"
	"whaled/pkg/platform/middleware/admin"
)

// Deps carries everything the router mounts. Verticals register their own
// middleware chains; the router only assembles them.
type Deps struct {
	Registry       *registryhandler.Handler
	Watcher        *watcherhandler.Handler
	Audit          AuditReader
	Logger         *slog.Logger
	AdminToken     string
	AdminTokenHash string
}

// AuditReader exposes recent audit events for the admin view.
type AuditReader interface {
	List(ctx context.Context, limit int) ([]audit.Event, error)
}

// NewRouter wires all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	deps.Registry.Register(r)
	if deps.Watcher != nil {
		deps.Watcher.Register(r)
	}

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if deps.Audit != nil {
		r.Group(func(g chi.Router) {
			g.Use(admin.RequireAdmin(deps.AdminToken, deps.AdminTokenHash, deps.Logger))
			g.Get("/admin/audit/events", handleAuditEvents(deps.Audit))
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleAuditEvents(reader AuditReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 1000 {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 1000"))
				return
			}
			limit = parsed
		}

		events, err := reader.List(r.Context(), limit)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
			return
		}
		if events == nil {
			events = []audit.Event{}
		}
		httputil.WriteJSON(w, http.StatusOK, events)
	}
}
