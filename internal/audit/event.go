// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

// Package audit publishes every verdict to an in-process Watermill event
// pipeline, where a supervised subscriber emits structured audit log lines.
// An external NATS publisher can be attached behind the nats build tag.
// The trail is observational: publishing never blocks or fails a verdict.
package audit

import (
	"time"

	"github.com/authbuilder/sentinel/internal/risk"
)

// VerdictEvent is the audit record for one evaluated login attempt.
type VerdictEvent struct {
	RequestID string `json:"requestId,omitempty"`

	UserID    string `json:"userId"`
	IPAddress string `json:"ipAddress"`
	DeviceID  string `json:"deviceId,omitempty"`

	Status    risk.Status    `json:"status"`
	RiskScore int            `json:"riskScore"`
	Reason    string         `json:"reason"`
	Degraded  bool           `json:"degraded"`
	Findings  []risk.Finding `json:"findings,omitempty"`

	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// NewVerdictEvent builds the audit record from a context and its verdict.
func NewVerdictEvent(requestID string, ec *risk.Context, v *risk.Verdict) *VerdictEvent {
	return &VerdictEvent{
		RequestID:   requestID,
		UserID:      ec.UserID,
		IPAddress:   ec.Addr.String(),
		DeviceID:    ec.DeviceID,
		Status:      v.Status,
		RiskScore:   v.RiskScore,
		Reason:      v.Reason,
		Degraded:    v.Degraded,
		Findings:    v.Findings,
		EvaluatedAt: v.EvaluatedAt,
	}
}
