// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

// Package risk implements the login risk evaluation engine: a context
// normalizer, an ordered catalog of independent detection rules, and a
// deterministic verdict aggregator.
//
// Each evaluation is a pure function of (login context, external signal
// providers). The engine holds no mutable state across evaluations; signal
// providers are injected, read-only collaborators.
package risk

import "time"

// Status is the engine's decision for a login attempt, ordered by severity:
// ALLOW < CHALLENGE < BLOCK.
type Status string

const (
	StatusAllow     Status = "ALLOW"
	StatusChallenge Status = "CHALLENGE"
	StatusBlock     Status = "BLOCK"
)

// Risk score thresholds mapping an aggregated score to a Status.
// Both bounds are inclusive on the lower side: a score of exactly
// BlockThreshold blocks, exactly ChallengeThreshold challenges.
const (
	BlockThreshold     = 80
	ChallengeThreshold = 30
)

// StatusForScore maps an aggregated risk score to a Status.
func StatusForScore(score int) Status {
	switch {
	case score >= BlockThreshold:
		return StatusBlock
	case score >= ChallengeThreshold:
		return StatusChallenge
	default:
		return StatusAllow
	}
}

// RuleName identifies a detection rule.
type RuleName string

// Built-in rule catalog, in declared evaluation order.
const (
	RuleBlacklistedNetwork RuleName = "blacklisted_network"
	RuleUnknownDevice      RuleName = "unknown_device"
	RuleRevokedDevice      RuleName = "revoked_device"
	RuleImpossibleTravel   RuleName = "impossible_travel"
	RuleLoginVelocity      RuleName = "login_velocity"
	RuleUserAgentAnomaly   RuleName = "user_agent_anomaly"
)

// SafeLoginReason is the verdict reason when no rule produced a finding.
const SafeLoginReason = "Safe Login"

// Finding is a single rule's detected risk signal, before aggregation.
// A rule produces zero or one Finding per evaluation.
type Finding struct {
	// Rule is the rule that produced this finding.
	Rule RuleName `json:"rule"`

	// Severity is the rule's contribution to the risk score, in [0, 100].
	Severity int `json:"severity"`

	// Reason is a short human-readable explanation.
	Reason string `json:"reason"`

	// Unavailable marks a finding synthesized at the rule-set boundary when
	// the rule's external dependency failed or timed out. Unavailable
	// findings carry zero severity and never select the verdict reason;
	// they only count toward the degraded threshold.
	Unavailable bool `json:"unavailable,omitempty"`
}

// Verdict is the engine's sole output for one login attempt.
type Verdict struct {
	Status    Status `json:"status"`
	RiskScore int    `json:"riskScore"`
	Reason    string `json:"reason"`

	// Degraded is set when at least the configured fraction of enabled rules
	// were unavailable in this evaluation. The verdict is still best-effort
	// valid; callers may apply a conservative fallback policy.
	Degraded bool `json:"degraded"`

	// Findings lists every finding collected during the evaluation, in
	// declared rule order, including unavailable ones. Exposed for audit.
	Findings []Finding `json:"findings,omitempty"`

	// EvaluatedAt is the wall-clock time used as the evaluation reference.
	EvaluatedAt time.Time `json:"evaluatedAt"`
}
