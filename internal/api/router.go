package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/conectsim/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(withRequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverPanics)
	r.Use(s.cors)
	r.Use(limitBody)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/instrument", func(r chi.Router) {
			r.Get("/", s.handleGetInstrument)
			r.Get("/trace", s.handleGetTrace)
			r.Put("/configure", s.handleConfigureInstrument)
			r.Put("/profile/{name}", s.handleApplyProfile)
		})

		r.Route("/devices/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Put("/", s.handleSetDevice)
			r.Post("/turn", s.handleTurnDevice)
			r.Get("/history", s.handleGetDeviceHistory)
		})

		r.Route("/exposures", func(r chi.Router) {
			r.Get("/", s.handleListExposures)
			r.Post("/", s.handleExpose)
			r.Get("/{name}", s.handleGetExposure)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	// Everything outside /api/v1 is the console page.
	r.Get("/*", panel.Handler(s.cfg.PanelDir).ServeHTTP)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"instrument": s.console.Name(),
	})
}
