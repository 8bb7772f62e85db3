// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package api

import (
	"github.com/goccy/go-json"
)

// analyzeRequest is the wire format of the decision endpoint, matching the
// field casing the auth server sends.
type analyzeRequest struct {
	UserID    string `json:"userId" validate:"required,max=256"`
	IPAddress string `json:"ipAddress" validate:"required,max=64"`
	DeviceID  string `json:"deviceId" validate:"omitempty,max=512"`
	UserAgent string `json:"userAgent" validate:"omitempty,max=1024"`
	Timestamp string `json:"timestamp" validate:"omitempty,max=64"`
}

// analyzeResponse is the decision payload returned to the caller.
type analyzeResponse struct {
	Status    string `json:"status"`
	RiskScore int    `json:"riskScore"`
	Reason    string `json:"reason"`
	Degraded  bool   `json:"degraded"`
}

// updateRuleRequest toggles and/or reconfigures one rule.
type updateRuleRequest struct {
	Enabled *bool           `json:"enabled"`
	Config  json.RawMessage `json:"config"`
}
