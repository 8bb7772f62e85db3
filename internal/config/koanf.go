// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sentinel/config.yaml",
	"/etc/sentinel/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8081, // matches the risk API port expected by the auth server
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			RuleTimeout:      150 * time.Millisecond,
			DegradedFraction: 0.5,
		},
		Rules: RulesConfig{
			ImpossibleTravel: ImpossibleTravelRuleConfig{
				Enabled:       true,
				MaxSpeedKmH:   900, // commercial flight speed
				MinDistanceKm: 100, // ignore nearby locations
				Severity:      85,
			},
			Velocity: VelocityRuleConfig{
				Enabled:     true,
				Window:      5 * time.Minute,
				MaxAttempts: 10,
				Severity:    60,
			},
			UserAgent: UserAgentRuleConfig{
				Enabled:  true,
				Severity: 40,
			},
		},
		Reputation: ReputationConfig{
			Blocklist:     []string{},
			FeedURL:       "",
			FeedTimeout:   100 * time.Millisecond,
			FeedRateLimit: 50,
		},
		History: HistoryConfig{
			Backend:    "memory",
			Retention:  30 * 24 * time.Hour,
			BadgerPath: "/data/sentinel/history",
			RedisAddr:  "",
			RedisDB:    0,
		},
		GeoIP: GeoIPConfig{
			Enabled:    false,
			CityDBPath: "",
		},
		Audit: AuditConfig{
			Enabled: true,
			Topic:   "risk.verdicts",
			NATS: NATSConfig{
				Enabled: false,
				URL:     "nats://127.0.0.1:4222",
			},
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			JWTSecret:       "",
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (first match in DefaultConfigPaths, or CONFIG_PATH)
//  3. Environment variables: highest priority (SERVER_PORT -> server.port)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from environment variables.
var sliceConfigPaths = []string{
	"reputation.blocklist",
	"rules.user_agent.suspicious_patterns",
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values into slices for
// known slice fields. YAML-sourced values are already slices and are skipped.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envPrefixes maps environment variable prefixes to koanf path prefixes.
// The first matching prefix wins; everything after it is lowercased with
// the remaining underscores preserved (SERVER_READ_TIMEOUT -> server.read_timeout).
var envPrefixes = []struct {
	env  string
	path string
}{
	{"SERVER_", "server."},
	{"ENGINE_", "engine."},
	{"RULES_IMPOSSIBLE_TRAVEL_", "rules.impossible_travel."},
	{"RULES_VELOCITY_", "rules.velocity."},
	{"RULES_USER_AGENT_", "rules.user_agent."},
	{"REPUTATION_", "reputation."},
	{"HISTORY_", "history."},
	{"GEOIP_", "geoip."},
	{"AUDIT_NATS_", "audit.nats."},
	{"AUDIT_", "audit."},
	{"SECURITY_", "security."},
	{"LOGGING_", "logging."},
}

// envTransformFunc maps environment variable names to koanf config paths.
// Variables with no matching prefix are ignored.
func envTransformFunc(key string) string {
	for _, p := range envPrefixes {
		if strings.HasPrefix(key, p.env) {
			return p.path + strings.ToLower(strings.TrimPrefix(key, p.env))
		}
	}
	return ""
}
