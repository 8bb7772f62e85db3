// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import "time"

// aggregate folds the findings of one evaluation into a verdict.
//
// The risk score is the maximum severity across real (available) findings;
// the reason comes from the finding that set it, with ties broken by rule
// order. Unavailable findings are kept for audit but carry zero severity
// and never select the reason. No real findings means "Safe Login".
func aggregate(findings []Finding, enabledCount, unavailableCount int, degradedFraction float64, evaluatedAt time.Time) *Verdict {
	score := 0
	reason := SafeLoginReason
	selected := false

	for _, f := range findings {
		if f.Unavailable {
			continue
		}
		if f.Severity > score || !selected {
			score = f.Severity
			reason = f.Reason
			selected = true
		}
	}
	if !selected {
		score = 0
		reason = SafeLoginReason
	}

	degraded := false
	if degradedFraction > 0 && enabledCount > 0 {
		degraded = float64(unavailableCount)/float64(enabledCount) >= degradedFraction
	}

	return &Verdict{
		Status:      StatusForScore(score),
		RiskScore:   score,
		Reason:      reason,
		Degraded:    degraded,
		Findings:    findings,
		EvaluatedAt: evaluatedAt,
	}
}
