// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

// Package config holds all application configuration, loaded via Koanf v2
// with layered sources (highest priority wins):
//
//  1. Environment variables (SERVER_PORT, ENGINE_RULE_TIMEOUT, ...)
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH override)
//  3. Built-in defaults
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Engine     EngineConfig     `koanf:"engine"`
	Rules      RulesConfig      `koanf:"rules"`
	Reputation ReputationConfig `koanf:"reputation"`
	History    HistoryConfig    `koanf:"history"`
	GeoIP      GeoIPConfig      `koanf:"geoip"`
	Audit      AuditConfig      `koanf:"audit"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EngineConfig holds risk engine settings.
type EngineConfig struct {
	// RuleTimeout bounds a single rule evaluation; a rule exceeding it is
	// treated as unavailable and contributes zero severity.
	RuleTimeout time.Duration `koanf:"rule_timeout"`

	// DegradedFraction is the fraction of enabled rules that must be
	// unavailable in one evaluation for the verdict to be flagged degraded.
	DegradedFraction float64 `koanf:"degraded_fraction"`
}

// RulesConfig holds per-rule configuration for the built-in rule catalog.
type RulesConfig struct {
	ImpossibleTravel ImpossibleTravelRuleConfig `koanf:"impossible_travel"`
	Velocity         VelocityRuleConfig         `koanf:"velocity"`
	UserAgent        UserAgentRuleConfig        `koanf:"user_agent"`
}

// ImpossibleTravelRuleConfig configures the impossible-travel rule.
type ImpossibleTravelRuleConfig struct {
	Enabled       bool    `koanf:"enabled"`
	MaxSpeedKmH   float64 `koanf:"max_speed_kmh"`
	MinDistanceKm float64 `koanf:"min_distance_km"`
	Severity      int     `koanf:"severity"`
}

// VelocityRuleConfig configures the login-velocity rule.
type VelocityRuleConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Window      time.Duration `koanf:"window"`
	MaxAttempts int           `koanf:"max_attempts"`
	Severity    int           `koanf:"severity"`
}

// UserAgentRuleConfig configures the user-agent anomaly rule.
type UserAgentRuleConfig struct {
	Enabled  bool `koanf:"enabled"`
	Severity int  `koanf:"severity"`

	// SuspiciousPatterns are case-insensitive substrings flagging
	// automation clients. Empty means use the built-in defaults.
	SuspiciousPatterns []string `koanf:"suspicious_patterns"`
}

// ReputationConfig configures the network reputation providers.
type ReputationConfig struct {
	// Blocklist is a static list of addresses or CIDR prefixes.
	Blocklist []string `koanf:"blocklist"`

	// FeedURL is an optional HTTP threat-intel feed. When set, addresses
	// not matched by the static blocklist are checked against the feed.
	FeedURL     string        `koanf:"feed_url"`
	FeedTimeout time.Duration `koanf:"feed_timeout"`

	// FeedRateLimit bounds outbound feed lookups per second (0 = unlimited).
	FeedRateLimit float64 `koanf:"feed_rate_limit"`
}

// HistoryConfig configures the login history backend.
type HistoryConfig struct {
	// Backend selects the store: memory, badger, or redis.
	Backend string `koanf:"backend"`

	// Retention bounds how long attempt records are kept.
	Retention time.Duration `koanf:"retention"`

	BadgerPath string `koanf:"badger_path"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// GeoIPConfig configures the GeoIP provider backing location-based rules.
type GeoIPConfig struct {
	Enabled bool `koanf:"enabled"`

	// CityDBPath points at a MaxMind GeoLite2/GeoIP2 City .mmdb file.
	CityDBPath string `koanf:"city_db_path"`
}

// AuditConfig configures the verdict audit trail.
type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Topic   string `koanf:"topic"`

	// NATS enables publishing audit events to an external NATS server
	// (requires the nats build tag; ignored otherwise).
	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig holds NATS connection settings for the audit trail.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// SecurityConfig holds API authentication and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is "none" or "jwt".
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for inconsistencies that would produce
// a broken service at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Engine.RuleTimeout <= 0 {
		return fmt.Errorf("engine.rule_timeout must be positive, got %s", c.Engine.RuleTimeout)
	}
	if c.Engine.DegradedFraction <= 0 || c.Engine.DegradedFraction > 1 {
		return fmt.Errorf("engine.degraded_fraction must be in (0, 1], got %g", c.Engine.DegradedFraction)
	}

	switch c.History.Backend {
	case "memory":
	case "badger":
		if c.History.BadgerPath == "" {
			return fmt.Errorf("history.badger_path is required for the badger backend")
		}
	case "redis":
		if c.History.RedisAddr == "" {
			return fmt.Errorf("history.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("history.backend must be memory, badger, or redis, got %q", c.History.Backend)
	}

	if c.GeoIP.Enabled && c.GeoIP.CityDBPath == "" {
		return fmt.Errorf("geoip.city_db_path is required when geoip is enabled")
	}

	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters for jwt auth mode")
		}
	default:
		return fmt.Errorf("security.auth_mode must be none or jwt, got %q", c.Security.AuthMode)
	}

	if c.Rules.Velocity.MaxAttempts < 1 {
		return fmt.Errorf("rules.velocity.max_attempts must be at least 1, got %d", c.Rules.Velocity.MaxAttempts)
	}
	if c.Rules.ImpossibleTravel.MaxSpeedKmH <= 0 {
		return fmt.Errorf("rules.impossible_travel.max_speed_kmh must be positive, got %g", c.Rules.ImpossibleTravel.MaxSpeedKmH)
	}

	return nil
}
