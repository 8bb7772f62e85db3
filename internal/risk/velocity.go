// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// LoginVelocityConfig configures the login-velocity rule.
type LoginVelocityConfig struct {
	Window      time.Duration
	MaxAttempts int
	Severity    int
}

// DefaultLoginVelocityConfig returns the default configuration.
func DefaultLoginVelocityConfig() LoginVelocityConfig {
	return LoginVelocityConfig{
		Window:      5 * time.Minute,
		MaxAttempts: 10,
		Severity:    60,
	}
}

// LoginVelocityRule fires when a user's prior attempts within the window
// reach the configured maximum, a brute-force and credential-stuffing
// signal. The current attempt is not yet recorded when the rule runs, so
// reaching MaxAttempts prior attempts means this attempt exceeds the budget.
type LoginVelocityRule struct {
	mu      sync.RWMutex
	enabled bool
	config  LoginVelocityConfig
	history LoginHistory
}

// NewLoginVelocityRule creates the rule. Pass DefaultLoginVelocityConfig()
// unless the deployment overrides the window or budget.
func NewLoginVelocityRule(history LoginHistory, config LoginVelocityConfig) *LoginVelocityRule {
	return &LoginVelocityRule{
		enabled: true,
		config:  config,
		history: history,
	}
}

func (r *LoginVelocityRule) Name() RuleName { return RuleLoginVelocity }

func (r *LoginVelocityRule) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

func (r *LoginVelocityRule) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Configure replaces the rule configuration from raw JSON. The window is a
// duration string ("5m", "30s").
func (r *LoginVelocityRule) Configure(raw json.RawMessage) error {
	var wire struct {
		Window      string `json:"window"`
		MaxAttempts int    `json:"max_attempts"`
		Severity    int    `json:"severity"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fmt.Errorf("parse login_velocity config: %w", err)
	}
	window, err := time.ParseDuration(wire.Window)
	if err != nil {
		return fmt.Errorf("login_velocity window: %w", err)
	}
	if window <= 0 {
		return fmt.Errorf("login_velocity window must be positive, got %s", window)
	}
	if wire.MaxAttempts < 1 {
		return fmt.Errorf("login_velocity max_attempts must be at least 1, got %d", wire.MaxAttempts)
	}
	if wire.Severity < 0 || wire.Severity > 100 {
		return fmt.Errorf("login_velocity severity must be in [0, 100], got %d", wire.Severity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = LoginVelocityConfig{
		Window:      window,
		MaxAttempts: wire.MaxAttempts,
		Severity:    wire.Severity,
	}
	return nil
}

func (r *LoginVelocityRule) Evaluate(ctx context.Context, ec *Context) (*Finding, error) {
	r.mu.RLock()
	config := r.config
	r.mu.RUnlock()

	since := ec.Timestamp.Add(-config.Window)
	count, err := r.history.CountAttempts(ctx, ec.UserID, since, ec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("count attempts for user %s: %w", ec.UserID, err)
	}
	if count < config.MaxAttempts {
		return nil, nil
	}
	return &Finding{
		Rule:     RuleLoginVelocity,
		Severity: config.Severity,
		Reason:   "Login velocity exceeded",
	}, nil
}
