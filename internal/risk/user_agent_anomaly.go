// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// defaultSuspiciousPatterns flag common automation clients. Matching is a
// case-insensitive substring check against the raw user agent.
var defaultSuspiciousPatterns = []string{
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"java/",
	"libwww",
	"scrapy",
	"phantomjs",
	"headless",
	"bot",
	"spider",
	"crawler",
}

// UserAgentAnomalyConfig configures the user-agent anomaly rule.
type UserAgentAnomalyConfig struct {
	Severity int `json:"severity"`

	// Patterns overrides the built-in suspicious substring list.
	// Empty keeps the defaults.
	Patterns []string `json:"patterns"`
}

// DefaultUserAgentAnomalyConfig returns the default configuration.
func DefaultUserAgentAnomalyConfig() UserAgentAnomalyConfig {
	return UserAgentAnomalyConfig{Severity: 40}
}

// UserAgentAnomalyRule fires when the client user agent matches a known
// automation pattern. Attempts without a user agent are skipped; the field
// is optional and its absence is not an anomaly.
type UserAgentAnomalyRule struct {
	mu       sync.RWMutex
	enabled  bool
	severity int
	patterns []string
}

// NewUserAgentAnomalyRule creates the rule. An empty Patterns list keeps
// the built-in defaults; a non-empty one replaces them, same as Configure.
func NewUserAgentAnomalyRule(config UserAgentAnomalyConfig) *UserAgentAnomalyRule {
	patterns := defaultSuspiciousPatterns
	if len(config.Patterns) > 0 {
		patterns = config.Patterns
	}
	return &UserAgentAnomalyRule{
		enabled:  true,
		severity: config.Severity,
		patterns: normalizePatterns(patterns),
	}
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *UserAgentAnomalyRule) Name() RuleName { return RuleUserAgentAnomaly }

func (r *UserAgentAnomalyRule) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

func (r *UserAgentAnomalyRule) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Configure replaces the rule configuration from raw JSON.
func (r *UserAgentAnomalyRule) Configure(raw json.RawMessage) error {
	var config UserAgentAnomalyConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("parse user_agent_anomaly config: %w", err)
	}
	if config.Severity < 0 || config.Severity > 100 {
		return fmt.Errorf("user_agent_anomaly severity must be in [0, 100], got %d", config.Severity)
	}
	patterns := defaultSuspiciousPatterns
	if len(config.Patterns) > 0 {
		patterns = config.Patterns
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.severity = config.Severity
	r.patterns = normalizePatterns(patterns)
	return nil
}

func (r *UserAgentAnomalyRule) Evaluate(_ context.Context, ec *Context) (*Finding, error) {
	if ec.UserAgent == "" {
		return nil, nil
	}

	r.mu.RLock()
	severity := r.severity
	patterns := r.patterns
	r.mu.RUnlock()

	ua := strings.ToLower(ec.UserAgent)
	for _, p := range patterns {
		if strings.Contains(ua, p) {
			return &Finding{
				Rule:     RuleUserAgentAnomaly,
				Severity: severity,
				Reason:   "Anomalous user agent",
			}, nil
		}
	}
	return nil, nil
}
