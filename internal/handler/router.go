/*
Package handler provides the HTTP handlers and routing setup for the relay.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (probes, metrics and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It configures CORS and applies global middleware, including the per-IP rate limit
// from deps when one is set.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}
	allowAll := deps.Config.IsDevelopment() || len(allowedOrigins) == 0

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{"*"}
	if !allowAll {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	if deps.IPLimiter != nil {
		r.Use(deps.IPLimiter.Middleware)
	}

	r.Get("/", HandleRoot)
	r.Get("/health", HandleHealth(deps))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/ws", HandleWebSocket(wsUpgrader, deps))

	r.NotFound(HandleNotFound)

	return r
}
