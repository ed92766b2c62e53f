// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/correlatus/internal/config"
	"github.com/tomtom215/correlatus/internal/logging"
)

// NewRouter builds the chi router with the global middleware stack and all
// API routes. Rate limiting applies to the mutating game endpoints only;
// dashboard reads and the WebSocket upgrade stay unthrottled because the
// publish layer does its own throttling.
func NewRouter(h *Handler, cfg *config.APIConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", h.ServeWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/mode", h.GetMode)
		r.Get("/teams", h.ListTeams)
		r.Get("/teams/{teamID}", h.GetTeam)
		r.Get("/teams/{teamID}/aggregate", h.GetTeamAggregate)
		r.Get("/teams/{teamID}/export", h.ExportTeamHistory)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

			r.Put("/mode", h.SetMode)
			r.Post("/teams", h.CreateTeam)
			r.Put("/teams/{teamID}/active", h.SetTeamActive)
			r.Post("/teams/{teamID}/join", h.JoinTeam)
			r.Post("/teams/{teamID}/leave", h.LeaveTeam)
			r.Post("/teams/{teamID}/rounds", h.CreateRound)
			r.Post("/teams/{teamID}/answers", h.SubmitAnswer)
		})
	})

	return r
}

// requestIDMiddleware attaches a request ID to the context and echoes it in
// the X-Request-ID response header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// requestLogger emits one structured line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("request_id", logging.RequestIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
