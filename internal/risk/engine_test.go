// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

var evalTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// newTestEngine wires the full rule catalog in declared order against the
// given fakes, matching the production registration sequence.
func newTestEngine(rep ReputationProvider, dev DeviceTrustStore, hist LoginHistory, geo GeoProvider) *Engine {
	e := NewEngine(Options{
		RuleTimeout:      time.Second,
		DegradedFraction: 0.5,
		Now:              func() time.Time { return evalTime },
	})
	e.Register(NewBlacklistedNetworkRule(rep))
	e.Register(NewUnknownDeviceRule())
	e.Register(NewRevokedDeviceRule(dev))
	e.Register(NewImpossibleTravelRule(hist, geo, DefaultImpossibleTravelConfig()))
	e.Register(NewLoginVelocityRule(hist, DefaultLoginVelocityConfig()))
	e.Register(NewUserAgentAnomalyRule(DefaultUserAgentAnomalyConfig()))
	return e
}

func TestEvaluateEndToEnd(t *testing.T) {
	rep := &fakeReputation{bad: map[string]bool{"203.0.113.5": true}}
	dev := &fakeDevices{}
	hist := &fakeHistory{}
	geo := &fakeGeo{}
	e := newTestEngine(rep, dev, hist, geo)

	tests := []struct {
		name       string
		ec         *Context
		wantStatus Status
		wantScore  int
		wantReason string
	}{
		{
			name:       "blacklisted address blocks",
			ec:         testContext("u1", "203.0.113.5", "", "", evalTime),
			wantStatus: StatusBlock,
			wantScore:  90,
			wantReason: "Blacklisted IP detected",
		},
		{
			name:       "missing device challenges",
			ec:         testContext("u2", "198.51.100.9", "", "", evalTime),
			wantStatus: StatusChallenge,
			wantScore:  50,
			wantReason: "Unknown Device",
		},
		{
			name:       "clean login allows",
			ec:         testContext("u3", "198.51.100.9", "abc123", "Mozilla/5.0", evalTime),
			wantStatus: StatusAllow,
			wantScore:  0,
			wantReason: SafeLoginReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Evaluate(context.Background(), tt.ec)
			if v.Status != tt.wantStatus || v.RiskScore != tt.wantScore || v.Reason != tt.wantReason {
				t.Errorf("verdict = {%s %d %q}, want {%s %d %q}",
					v.Status, v.RiskScore, v.Reason, tt.wantStatus, tt.wantScore, tt.wantReason)
			}
			if v.Degraded {
				t.Error("degraded = true for a healthy evaluation")
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	rep := &fakeReputation{bad: map[string]bool{"203.0.113.5": true}}
	e := newTestEngine(rep, &fakeDevices{}, &fakeHistory{}, &fakeGeo{})
	ec := testContext("u1", "203.0.113.5", "d1", "curl/8.0", evalTime)

	first := e.Evaluate(context.Background(), ec)
	for i := 0; i < 20; i++ {
		v := e.Evaluate(context.Background(), ec)
		if v.Status != first.Status || v.RiskScore != first.RiskScore || v.Reason != first.Reason {
			t.Fatalf("evaluation %d diverged: {%s %d %q} vs {%s %d %q}",
				i, v.Status, v.RiskScore, v.Reason, first.Status, first.RiskScore, first.Reason)
		}
	}
}

func TestEvaluateProviderFailureFailsOpen(t *testing.T) {
	rep := &fakeReputation{err: ErrProviderUnavailable}
	e := newTestEngine(rep, &fakeDevices{}, &fakeHistory{}, &fakeGeo{})
	ec := testContext("u1", "203.0.113.5", "d1", "Mozilla/5.0", evalTime)

	v := e.Evaluate(context.Background(), ec)
	if v.Status != StatusAllow || v.RiskScore != 0 || v.Reason != SafeLoginReason {
		t.Errorf("verdict = {%s %d %q}, want safe login despite provider failure", v.Status, v.RiskScore, v.Reason)
	}

	found := false
	for _, f := range v.Findings {
		if f.Rule == RuleBlacklistedNetwork {
			found = true
			if !f.Unavailable || f.Severity != 0 {
				t.Errorf("blacklist finding = %+v, want unavailable with zero severity", f)
			}
		}
	}
	if !found {
		t.Error("no unavailable finding recorded for the failed rule")
	}
	// 1 of 6 enabled rules unavailable, below the 0.5 fraction.
	if v.Degraded {
		t.Error("degraded = true below the unavailable fraction")
	}
}

func TestEvaluateDegradedFlag(t *testing.T) {
	// Reputation, device trust, history, and geo all down: blacklisted_network,
	// revoked_device, impossible_travel, and login_velocity degrade (4 of 6).
	rep := &fakeReputation{err: ErrProviderUnavailable}
	dev := &fakeDevices{err: ErrProviderUnavailable}
	hist := &fakeHistory{err: ErrProviderUnavailable}
	e := newTestEngine(rep, dev, hist, &fakeGeo{})
	ec := testContext("u1", "198.51.100.9", "d1", "Mozilla/5.0", evalTime)

	v := e.Evaluate(context.Background(), ec)
	if !v.Degraded {
		t.Error("degraded = false with 4 of 6 rules unavailable")
	}
	if v.Status != StatusAllow {
		t.Errorf("status = %s, want ALLOW", v.Status)
	}
}

type silentRule struct{ enabled bool }

func (r *silentRule) Name() RuleName    { return "silent" }
func (r *silentRule) Enabled() bool     { return r.enabled }
func (r *silentRule) SetEnabled(e bool) { r.enabled = e }
func (r *silentRule) Evaluate(context.Context, *Context) (*Finding, error) {
	return nil, nil
}

func TestEvaluateUnchangedByNeverFiringRule(t *testing.T) {
	rep := &fakeReputation{bad: map[string]bool{"203.0.113.5": true}}
	e := newTestEngine(rep, &fakeDevices{}, &fakeHistory{}, &fakeGeo{})

	contexts := []*Context{
		testContext("u1", "203.0.113.5", "", "", evalTime),
		testContext("u2", "198.51.100.9", "", "", evalTime),
		testContext("u3", "198.51.100.9", "abc123", "Mozilla/5.0", evalTime),
	}
	before := make([]*Verdict, len(contexts))
	for i, ec := range contexts {
		before[i] = e.Evaluate(context.Background(), ec)
	}

	e.Register(&silentRule{enabled: true})

	for i, ec := range contexts {
		v := e.Evaluate(context.Background(), ec)
		if v.Status != before[i].Status || v.RiskScore != before[i].RiskScore || v.Reason != before[i].Reason {
			t.Errorf("context %d: verdict changed to {%s %d %q} from {%s %d %q} after adding a never-firing rule",
				i, v.Status, v.RiskScore, v.Reason, before[i].Status, before[i].RiskScore, before[i].Reason)
		}
		if v.Degraded != before[i].Degraded {
			t.Errorf("context %d: degraded changed to %v", i, v.Degraded)
		}
	}
}

type slowRule struct {
	name    RuleName
	enabled bool
	delay   time.Duration
}

func (r *slowRule) Name() RuleName       { return r.name }
func (r *slowRule) Enabled() bool        { return r.enabled }
func (r *slowRule) SetEnabled(e bool)    { r.enabled = e }
func (r *slowRule) Evaluate(ctx context.Context, _ *Context) (*Finding, error) {
	select {
	case <-time.After(r.delay):
		return &Finding{Rule: r.name, Severity: 99, Reason: "too slow to matter"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestEvaluateRuleTimeout(t *testing.T) {
	e := NewEngine(Options{RuleTimeout: 10 * time.Millisecond, DegradedFraction: 0.5})
	e.Register(&slowRule{name: "slow", enabled: true, delay: time.Second})

	v := e.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "d1", "", evalTime))
	if v.Status != StatusAllow || v.RiskScore != 0 {
		t.Errorf("verdict = {%s %d}, want timed-out rule to contribute nothing", v.Status, v.RiskScore)
	}
	if !v.Degraded {
		t.Error("degraded = false with the only rule timed out")
	}
	if len(v.Findings) != 1 || !v.Findings[0].Unavailable {
		t.Errorf("findings = %+v, want one unavailable finding", v.Findings)
	}
}

type panicRule struct{ enabled bool }

func (r *panicRule) Name() RuleName    { return "panics" }
func (r *panicRule) Enabled() bool     { return r.enabled }
func (r *panicRule) SetEnabled(e bool) { r.enabled = e }
func (r *panicRule) Evaluate(context.Context, *Context) (*Finding, error) {
	panic("boom")
}

func TestEvaluateRulePanicRecovered(t *testing.T) {
	e := NewEngine(Options{RuleTimeout: time.Second, DegradedFraction: 0.5})
	e.Register(&panicRule{enabled: true})
	e.Register(NewUnknownDeviceRule())

	v := e.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "", "", evalTime))
	if v.Status != StatusChallenge || v.Reason != "Unknown Device" {
		t.Errorf("verdict = {%s %q}, want the surviving rule's finding", v.Status, v.Reason)
	}
}

func TestSetRuleEnabled(t *testing.T) {
	e := newTestEngine(&fakeReputation{}, &fakeDevices{}, &fakeHistory{}, &fakeGeo{})

	if err := e.SetRuleEnabled(RuleUnknownDevice, false); err != nil {
		t.Fatalf("SetRuleEnabled: %v", err)
	}
	v := e.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "", "", evalTime))
	if v.Status != StatusAllow {
		t.Errorf("status = %s, want ALLOW with unknown_device disabled", v.Status)
	}

	if err := e.SetRuleEnabled("no_such_rule", true); err == nil {
		t.Error("SetRuleEnabled(unknown) = nil, want error")
	}
}

func TestRulesListsCatalogInOrder(t *testing.T) {
	e := newTestEngine(&fakeReputation{}, &fakeDevices{}, &fakeHistory{}, &fakeGeo{})
	want := []RuleName{
		RuleBlacklistedNetwork, RuleUnknownDevice, RuleRevokedDevice,
		RuleImpossibleTravel, RuleLoginVelocity, RuleUserAgentAnomaly,
	}
	got := e.Rules()
	if len(got) != len(want) {
		t.Fatalf("len(rules) = %d, want %d", len(got), len(want))
	}
	for i, rs := range got {
		if rs.Name != want[i] {
			t.Errorf("rules[%d] = %s, want %s", i, rs.Name, want[i])
		}
		if !rs.Enabled {
			t.Errorf("rules[%d] %s disabled by default", i, rs.Name)
		}
	}
}

func TestConfigureRule(t *testing.T) {
	e := newTestEngine(&fakeReputation{}, &fakeDevices{}, &fakeHistory{}, &fakeGeo{})

	raw := json.RawMessage(`{"severity": 95}`)
	if err := e.ConfigureRule(RuleBlacklistedNetwork, raw); err != nil {
		t.Fatalf("ConfigureRule: %v", err)
	}
	if err := e.ConfigureRule(RuleBlacklistedNetwork, json.RawMessage(`{"severity": 200}`)); err == nil {
		t.Error("ConfigureRule(severity 200) = nil, want error")
	}
	if err := e.ConfigureRule("no_such_rule", raw); err == nil {
		t.Error("ConfigureRule(unknown) = nil, want error")
	}

	e2 := NewEngine(Options{})
	e2.Register(&panicRule{enabled: true})
	if err := e2.ConfigureRule("panics", raw); err == nil {
		t.Error("ConfigureRule on non-configurable rule = nil, want error")
	}
}
