// Package api exposes the host HTTP entry point over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the handlers. token supplies the current API token; an
// empty token disables authentication.
func NewRouter(h *Handler, token func() string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestID)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(TokenAuth(token))
		r.Post("/v1/requests", h.Requests)
	})
	return r
}
