package http

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the HTTP router with configured routes, middleware and
// handlers: batch scheduling, batch status polling, the live observer
// endpoint, health check and Prometheus metrics.
func NewRouter(handler *FetchHandler, gateway *ObserverGateway, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Route("/fetch", func(r chi.Router) {
		r.Post("/", handler.ScheduleBatch)
		r.Get("/{taskGroupID}", handler.BatchStatus)
	})

	r.Get("/ws/fetch/{taskGroupID}", gateway.Serve)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
