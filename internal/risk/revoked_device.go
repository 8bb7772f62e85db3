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

// RevokedDeviceConfig configures the revoked-device rule.
type RevokedDeviceConfig struct {
	Severity int `json:"severity"`
}

// DefaultRevokedDeviceConfig returns the default configuration.
func DefaultRevokedDeviceConfig() RevokedDeviceConfig {
	return RevokedDeviceConfig{Severity: 70}
}

// RevokedDeviceRule fires when a present device fingerprint was explicitly
// revoked in the injected trust store. Attempts without a fingerprint are
// skipped; the unknown-device rule covers those.
type RevokedDeviceRule struct {
	mu      sync.RWMutex
	enabled bool
	config  RevokedDeviceConfig
	devices DeviceTrustStore
}

// NewRevokedDeviceRule creates the rule with default configuration.
func NewRevokedDeviceRule(devices DeviceTrustStore) *RevokedDeviceRule {
	return &RevokedDeviceRule{
		enabled: true,
		config:  DefaultRevokedDeviceConfig(),
		devices: devices,
	}
}

func (r *RevokedDeviceRule) Name() RuleName { return RuleRevokedDevice }

func (r *RevokedDeviceRule) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

func (r *RevokedDeviceRule) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Configure replaces the rule configuration from raw JSON.
func (r *RevokedDeviceRule) Configure(raw json.RawMessage) error {
	var config RevokedDeviceConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("parse revoked_device config: %w", err)
	}
	if config.Severity < 0 || config.Severity > 100 {
		return fmt.Errorf("revoked_device severity must be in [0, 100], got %d", config.Severity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	return nil
}

func (r *RevokedDeviceRule) Evaluate(ctx context.Context, ec *Context) (*Finding, error) {
	if !ec.HasDevice() {
		return nil, nil
	}

	r.mu.RLock()
	severity := r.config.Severity
	r.mu.RUnlock()

	trust, err := r.devices.Trust(ctx, ec.UserID, ec.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("device trust lookup for user %s: %w", ec.UserID, err)
	}
	if trust != DeviceRevoked {
		return nil, nil
	}
	return &Finding{
		Rule:     RuleRevokedDevice,
		Severity: severity,
		Reason:   "Device trust revoked",
	}, nil
}
