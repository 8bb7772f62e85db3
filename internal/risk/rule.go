// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"

	"github.com/goccy/go-json"
)

// Rule is one independent risk detection. Rules are evaluated against a
// normalized Context and produce at most one Finding.
//
// Evaluate must be side-effect free with respect to the login attempt: a
// rule reads signal providers but never writes. Returning a nil Finding
// with a nil error means "no risk detected". Returning an error means the
// rule could not be evaluated; the engine converts it into an unavailable
// finding rather than failing the whole evaluation.
type Rule interface {
	// Name returns the rule's stable identifier.
	Name() RuleName

	// Evaluate checks the login context. The context carries the engine's
	// per-rule deadline.
	Evaluate(ctx context.Context, ec *Context) (*Finding, error)

	// Enabled reports whether the rule participates in evaluations.
	Enabled() bool

	// SetEnabled toggles the rule at runtime. Implementations must be safe
	// for concurrent use with Evaluate.
	SetEnabled(enabled bool)
}

// Configurable is implemented by rules that accept runtime reconfiguration
// via raw JSON, e.g. through the rules API.
type Configurable interface {
	Configure(config json.RawMessage) error
}
