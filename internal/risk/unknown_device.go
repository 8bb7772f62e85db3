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

// UnknownDeviceConfig configures the unknown-device rule.
type UnknownDeviceConfig struct {
	Severity int `json:"severity"`
}

// DefaultUnknownDeviceConfig returns the default configuration.
func DefaultUnknownDeviceConfig() UnknownDeviceConfig {
	return UnknownDeviceConfig{Severity: 50}
}

// UnknownDeviceRule fires when the attempt carries no device fingerprint.
// An absent or empty deviceId means the client is unrecognized; empty and
// absent are treated identically.
type UnknownDeviceRule struct {
	mu      sync.RWMutex
	enabled bool
	config  UnknownDeviceConfig
}

// NewUnknownDeviceRule creates the rule with default configuration.
func NewUnknownDeviceRule() *UnknownDeviceRule {
	return &UnknownDeviceRule{
		enabled: true,
		config:  DefaultUnknownDeviceConfig(),
	}
}

func (r *UnknownDeviceRule) Name() RuleName { return RuleUnknownDevice }

func (r *UnknownDeviceRule) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

func (r *UnknownDeviceRule) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Configure replaces the rule configuration from raw JSON.
func (r *UnknownDeviceRule) Configure(raw json.RawMessage) error {
	var config UnknownDeviceConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("parse unknown_device config: %w", err)
	}
	if config.Severity < 0 || config.Severity > 100 {
		return fmt.Errorf("unknown_device severity must be in [0, 100], got %d", config.Severity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	return nil
}

func (r *UnknownDeviceRule) Evaluate(_ context.Context, ec *Context) (*Finding, error) {
	if ec.HasDevice() {
		return nil, nil
	}
	r.mu.RLock()
	severity := r.config.Severity
	r.mu.RUnlock()
	return &Finding{
		Rule:     RuleUnknownDevice,
		Severity: severity,
		Reason:   "Unknown Device",
	}, nil
}
