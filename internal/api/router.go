// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/authbuilder/sentinel/internal/audit"
	"github.com/authbuilder/sentinel/internal/auth"
	"github.com/authbuilder/sentinel/internal/config"
	"github.com/authbuilder/sentinel/internal/middleware"
	"github.com/authbuilder/sentinel/internal/risk"
)

// Server holds the transport's dependencies. The trail and history may be
// nil (audit disabled, engine-only deployments).
type Server struct {
	config  *config.Config
	engine  *risk.Engine
	history risk.LoginHistory
	trail   *audit.Trail
	jwt     *auth.JWTManager

	now     func() time.Time
	started time.Time
}

// NewServer wires the transport.
func NewServer(cfg *config.Config, engine *risk.Engine, history risk.LoginHistory, trail *audit.Trail) *Server {
	s := &Server{
		config:  cfg,
		engine:  engine,
		history: history,
		trail:   trail,
		now:     time.Now,
		started: time.Now(),
	}
	if cfg.Security.AuthMode == "jwt" {
		s.jwt = auth.NewJWTManager(cfg.Security.JWTSecret)
	}
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if !s.config.Security.RateLimitDisabled {
		r.Use(httprate.LimitByIP(s.config.Security.RateLimitReqs, s.config.Security.RateLimitWindow))
	}

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", s.handleHealthLive)
		r.Get("/ready", s.handleHealthReady)
	})

	r.Route("/api/risk", func(r chi.Router) {
		r.Use(auth.Middleware(s.config.Security.AuthMode, s.jwt))
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/rules", s.handleListRules)
		r.Put("/rules/{name}", s.handleUpdateRule)
	})

	return r
}
