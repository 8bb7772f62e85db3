// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/authbuilder/sentinel/internal/logging"
	"github.com/authbuilder/sentinel/internal/metrics"
)

// ErrUnknownRule is returned when a rule name does not match the catalog.
var ErrUnknownRule = errors.New("unknown rule")

// Options configures an Engine.
type Options struct {
	// RuleTimeout bounds a single rule evaluation. A rule that exceeds it
	// is treated as unavailable. Zero means no per-rule deadline.
	RuleTimeout time.Duration

	// DegradedFraction is the fraction of enabled rules that must be
	// unavailable for the verdict to be flagged degraded. Zero disables
	// the flag entirely.
	DegradedFraction float64

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine evaluates login contexts against an ordered rule catalog and
// aggregates findings into a single verdict. Rules run concurrently but
// the verdict is deterministic: findings are collected back into declared
// registration order before aggregation.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule

	ruleTimeout      time.Duration
	degradedFraction float64
	now              func() time.Time
}

// NewEngine creates an empty engine. Register rules in the order their
// findings should win severity ties.
func NewEngine(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		ruleTimeout:      opts.RuleTimeout,
		degradedFraction: opts.DegradedFraction,
		now:              now,
	}
}

// Register appends a rule to the catalog. Registration order is evaluation
// order and decides severity ties.
func (e *Engine) Register(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// ruleResult pairs a rule's outcome with its registration index so the
// aggregator sees declared order regardless of goroutine completion order.
type ruleResult struct {
	finding     *Finding
	unavailable bool
}

// Evaluate runs all enabled rules against the normalized context and returns
// the aggregated verdict. Evaluation never fails: rule errors, timeouts, and
// panics degrade to zero-severity unavailable findings.
func (e *Engine) Evaluate(ctx context.Context, ec *Context) *Verdict {
	start := e.now()

	e.mu.RLock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	enabled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled() {
			enabled = append(enabled, r)
		}
	}

	results := make([]ruleResult, len(enabled))
	var wg sync.WaitGroup
	for i, rule := range enabled {
		wg.Add(1)
		go func(i int, rule Rule) {
			defer wg.Done()
			results[i] = e.evaluateRule(ctx, rule, ec)
		}(i, rule)
	}
	wg.Wait()

	findings := make([]Finding, 0, len(enabled))
	unavailableCount := 0
	for _, res := range results {
		if res.finding != nil {
			findings = append(findings, *res.finding)
		}
		if res.unavailable {
			unavailableCount++
		}
	}

	verdict := aggregate(findings, len(enabled), unavailableCount, e.degradedFraction, ec.Timestamp)

	elapsed := e.now().Sub(start)
	metrics.RecordEvaluation(string(verdict.Status), elapsed)
	if verdict.Degraded {
		metrics.DegradedEvaluations.Inc()
	}

	logging.Ctx(ctx).Debug().
		Str("user_id", ec.UserID).
		Str("status", string(verdict.Status)).
		Int("risk_score", verdict.RiskScore).
		Str("reason", verdict.Reason).
		Bool("degraded", verdict.Degraded).
		Dur("duration", elapsed).
		Msg("risk evaluation complete")

	return verdict
}

// evaluateRule runs one rule with the engine's per-rule deadline and panic
// recovery. A failed rule yields an unavailable finding, never an error.
func (e *Engine) evaluateRule(ctx context.Context, rule Rule, ec *Context) ruleResult {
	if e.ruleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ruleTimeout)
		defer cancel()
	}

	type outcome struct {
		finding *Finding
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Ctx(ctx).Error().
					Str("rule", string(rule.Name())).
					Interface("panic", r).
					Msg("rule panicked during evaluation")
				done <- outcome{err: fmt.Errorf("rule %s panicked: %v", rule.Name(), r)}
			}
		}()
		f, err := rule.Evaluate(ctx, ec)
		done <- outcome{finding: f, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: fmt.Errorf("rule %s: %w", rule.Name(), ctx.Err())}
	}

	if out.err != nil {
		metrics.RuleUnavailable.WithLabelValues(string(rule.Name())).Inc()
		logging.Ctx(ctx).Warn().
			Err(out.err).
			Str("rule", string(rule.Name())).
			Msg("rule unavailable")
		return ruleResult{
			finding: &Finding{
				Rule:        rule.Name(),
				Severity:    0,
				Reason:      fmt.Sprintf("rule %s unavailable", rule.Name()),
				Unavailable: true,
			},
			unavailable: true,
		}
	}

	if out.finding != nil {
		metrics.RuleFindings.WithLabelValues(string(rule.Name())).Inc()
		// Clamp so a misconfigured rule cannot push the score out of range.
		if out.finding.Severity < 0 {
			out.finding.Severity = 0
		}
		if out.finding.Severity > 100 {
			out.finding.Severity = 100
		}
	}
	return ruleResult{finding: out.finding}
}

// RuleStatus describes one registered rule for the rules API.
type RuleStatus struct {
	Name    RuleName `json:"name"`
	Enabled bool     `json:"enabled"`
}

// Rules returns the catalog in registration order.
func (e *Engine) Rules() []RuleStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]RuleStatus, len(e.rules))
	for i, r := range e.rules {
		out[i] = RuleStatus{Name: r.Name(), Enabled: r.Enabled()}
	}
	return out
}

// SetRuleEnabled toggles a rule by name.
func (e *Engine) SetRuleEnabled(name RuleName, enabled bool) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.rules {
		if r.Name() == name {
			r.SetEnabled(enabled)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownRule, name)
}

// ConfigureRule applies a raw JSON config to a rule that supports it.
func (e *Engine) ConfigureRule(name RuleName, config json.RawMessage) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.rules {
		if r.Name() != name {
			continue
		}
		c, ok := r.(Configurable)
		if !ok {
			return fmt.Errorf("rule %s is not configurable", name)
		}
		return c.Configure(config)
	}
	return fmt.Errorf("%w: %s", ErrUnknownRule, name)
}
