// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

// Command server runs the Sentinel risk analysis service: the login risk
// engine behind an HTTP API, supervised by a suture tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/authbuilder/sentinel/internal/api"
	"github.com/authbuilder/sentinel/internal/audit"
	"github.com/authbuilder/sentinel/internal/config"
	"github.com/authbuilder/sentinel/internal/logging"
	"github.com/authbuilder/sentinel/internal/risk"
	"github.com/authbuilder/sentinel/internal/signals"
	"github.com/authbuilder/sentinel/internal/supervisor"
	"github.com/authbuilder/sentinel/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("sentinel failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Int("port", cfg.Server.Port).
		Str("history_backend", cfg.History.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("starting sentinel")

	reputation, err := buildReputation(cfg)
	if err != nil {
		return err
	}

	history, closeHistory, err := buildHistory(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	devices := signals.NewMemoryDeviceTrust()

	var geo risk.GeoProvider
	if cfg.GeoIP.Enabled {
		g, err := signals.NewGeoIP(cfg.GeoIP.CityDBPath)
		if err != nil {
			return err
		}
		defer g.Close()
		geo = g
	}

	engine := buildEngine(cfg, reputation, devices, history, geo)

	var trail *audit.Trail
	if cfg.Audit.Enabled {
		var extra message.Publisher
		if cfg.Audit.NATS.Enabled {
			pub, err := audit.NewNATSPublisher(cfg.Audit.NATS.URL)
			if err != nil {
				logging.Warn().Err(err).Msg("audit continues without NATS fan-out")
			} else {
				extra = pub
			}
		}
		trail = audit.NewTrail(cfg.Audit.Topic, extra)
		defer trail.Close()
	}

	server := api.NewServer(cfg, engine, history, trail)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeConfig)
	tree.AddAPIService(services.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))
	if trail != nil {
		tree.AddMessagingService(services.NewAuditService(trail))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("sentinel listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	logging.Info().Msg("sentinel stopped")
	return nil
}

// buildReputation assembles the blocklist chain: static entries first, then
// the remote feed when configured.
func buildReputation(cfg *config.Config) (risk.ReputationProvider, error) {
	static, err := signals.NewStaticReputation(cfg.Reputation.Blocklist)
	if err != nil {
		return nil, fmt.Errorf("build static blocklist: %w", err)
	}
	if cfg.Reputation.FeedURL == "" {
		return static, nil
	}

	feed := signals.NewFeedReputation(signals.FeedConfig{
		URL:       cfg.Reputation.FeedURL,
		Timeout:   cfg.Reputation.FeedTimeout,
		RateLimit: cfg.Reputation.FeedRateLimit,
	})
	return signals.NewChainReputation(static, feed), nil
}

// buildHistory opens the configured login history backend.
func buildHistory(cfg *config.Config) (risk.LoginHistory, func(), error) {
	switch cfg.History.Backend {
	case "badger":
		store, err := signals.NewBadgerHistory(cfg.History.BadgerPath, cfg.History.Retention)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "redis":
		store, err := signals.NewRedisHistory(context.Background(), signals.RedisHistoryConfig{
			Addr:      cfg.History.RedisAddr,
			Password:  cfg.History.RedisPassword,
			DB:        cfg.History.RedisDB,
			Retention: cfg.History.Retention,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return signals.NewMemoryHistory(cfg.History.Retention), func() {}, nil
	}
}

// buildEngine registers the rule catalog in declared order. Registration
// order decides severity ties, so it is fixed here, not configurable.
func buildEngine(cfg *config.Config, reputation risk.ReputationProvider, devices risk.DeviceTrustStore, history risk.LoginHistory, geo risk.GeoProvider) *risk.Engine {
	engine := risk.NewEngine(risk.Options{
		RuleTimeout:      cfg.Engine.RuleTimeout,
		DegradedFraction: cfg.Engine.DegradedFraction,
	})

	engine.Register(risk.NewBlacklistedNetworkRule(reputation))
	engine.Register(risk.NewUnknownDeviceRule())
	engine.Register(risk.NewRevokedDeviceRule(devices))

	if cfg.Rules.ImpossibleTravel.Enabled && geo != nil {
		engine.Register(risk.NewImpossibleTravelRule(history, geo, risk.ImpossibleTravelConfig{
			MaxSpeedKmH:   cfg.Rules.ImpossibleTravel.MaxSpeedKmH,
			MinDistanceKm: cfg.Rules.ImpossibleTravel.MinDistanceKm,
			Severity:      cfg.Rules.ImpossibleTravel.Severity,
		}))
	}
	if cfg.Rules.Velocity.Enabled {
		engine.Register(risk.NewLoginVelocityRule(history, risk.LoginVelocityConfig{
			Window:      cfg.Rules.Velocity.Window,
			MaxAttempts: cfg.Rules.Velocity.MaxAttempts,
			Severity:    cfg.Rules.Velocity.Severity,
		}))
	}
	if cfg.Rules.UserAgent.Enabled {
		engine.Register(risk.NewUserAgentAnomalyRule(risk.UserAgentAnomalyConfig{
			Severity: cfg.Rules.UserAgent.Severity,
			Patterns: cfg.Rules.UserAgent.SuspiciousPatterns,
		}))
	}

	return engine
}
