package adminapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the control-plane HTTP router: public health/login
// endpoints, and JWT-protected status, manual-failover, and websocket event
// stream endpoints (spec.md's SPEC_FULL.md admin_api surface).
func NewRouter(auth *AuthService, hub *Hub, source StatusSource, failoverTrigger FailoverTrigger, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(recovery(logger))
	r.Use(requestLogger(logger))

	r.Get("/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", loginHandler(auth))

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth(auth))
			r.Get("/status", statusHandler(source))
			r.Post("/failover", failoverHandler(source, failoverTrigger))
			r.Get("/events", hub.ServeWs)
		})
	})

	return r
}
