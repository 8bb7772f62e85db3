// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
)

// BlacklistedNetworkConfig configures the blacklisted-network rule.
type BlacklistedNetworkConfig struct {
	Severity int `json:"severity"`
}

// DefaultBlacklistedNetworkConfig returns the default configuration.
func DefaultBlacklistedNetworkConfig() BlacklistedNetworkConfig {
	return BlacklistedNetworkConfig{Severity: 90}
}

// BlacklistedNetworkRule fires when the originating address appears in the
// injected reputation provider's blocklist.
type BlacklistedNetworkRule struct {
	mu         sync.RWMutex
	enabled    bool
	config     BlacklistedNetworkConfig
	reputation ReputationProvider
}

// NewBlacklistedNetworkRule creates the rule with default configuration.
func NewBlacklistedNetworkRule(reputation ReputationProvider) *BlacklistedNetworkRule {
	return &BlacklistedNetworkRule{
		enabled:    true,
		config:     DefaultBlacklistedNetworkConfig(),
		reputation: reputation,
	}
}

func (r *BlacklistedNetworkRule) Name() RuleName { return RuleBlacklistedNetwork }

func (r *BlacklistedNetworkRule) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

func (r *BlacklistedNetworkRule) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Configure replaces the rule configuration from raw JSON.
func (r *BlacklistedNetworkRule) Configure(raw json.RawMessage) error {
	var config BlacklistedNetworkConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("parse blacklisted_network config: %w", err)
	}
	if config.Severity < 0 || config.Severity > 100 {
		return fmt.Errorf("blacklisted_network severity must be in [0, 100], got %d", config.Severity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	return nil
}

func (r *BlacklistedNetworkRule) Evaluate(ctx context.Context, ec *Context) (*Finding, error) {
	r.mu.RLock()
	severity := r.config.Severity
	r.mu.RUnlock()

	blacklisted, err := r.reputation.IsBlacklisted(ctx, ec.Addr)
	if err != nil {
		return nil, fmt.Errorf("reputation lookup for %s: %w", ec.Addr, err)
	}
	if !blacklisted {
		return nil, nil
	}
	return &Finding{
		Rule:     RuleBlacklistedNetwork,
		Severity: severity,
		Reason:   "Blacklisted IP detected",
	}, nil
}
