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

var ruleTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestBlacklistedNetworkRule(t *testing.T) {
	rep := &fakeReputation{bad: map[string]bool{"203.0.113.5": true}}
	rule := NewBlacklistedNetworkRule(rep)

	f, err := rule.Evaluate(context.Background(), testContext("u1", "203.0.113.5", "", "", ruleTime))
	if err != nil {
		t.Fatal(err)
	}
	if f == nil || f.Severity != 90 || f.Reason != "Blacklisted IP detected" {
		t.Errorf("finding = %+v, want severity 90", f)
	}

	f, err = rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "", "", ruleTime))
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Errorf("finding = %+v for a clean address, want nil", f)
	}

	rule.reputation = &fakeReputation{err: ErrProviderUnavailable}
	if _, err := rule.Evaluate(context.Background(), testContext("u1", "203.0.113.5", "", "", ruleTime)); err == nil {
		t.Error("err = nil with provider down, want error")
	}
}

func TestUnknownDeviceRule(t *testing.T) {
	rule := NewUnknownDeviceRule()

	tests := []struct {
		deviceID string
		want     bool
	}{
		{"", true},
		{"abc123", false},
	}
	for _, tt := range tests {
		f, err := rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", tt.deviceID, "", ruleTime))
		if err != nil {
			t.Fatal(err)
		}
		if (f != nil) != tt.want {
			t.Errorf("deviceID %q: finding = %+v, want fire=%v", tt.deviceID, f, tt.want)
		}
		if f != nil && (f.Severity != 50 || f.Reason != "Unknown Device") {
			t.Errorf("finding = %+v, want severity 50 Unknown Device", f)
		}
	}
}

func TestRevokedDeviceRule(t *testing.T) {
	dev := &fakeDevices{trust: map[string]DeviceTrust{
		"u1/bad-dev":  DeviceRevoked,
		"u1/good-dev": DeviceTrusted,
	}}
	rule := NewRevokedDeviceRule(dev)

	f, err := rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "bad-dev", "", ruleTime))
	if err != nil {
		t.Fatal(err)
	}
	if f == nil || f.Severity != 70 || f.Reason != "Device trust revoked" {
		t.Errorf("finding = %+v, want severity 70 revoked", f)
	}

	for _, deviceID := range []string{"good-dev", "never-seen", ""} {
		f, err := rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", deviceID, "", ruleTime))
		if err != nil {
			t.Fatal(err)
		}
		if f != nil {
			t.Errorf("deviceID %q: finding = %+v, want nil", deviceID, f)
		}
	}
}

func TestImpossibleTravelRule(t *testing.T) {
	// New York and Paris are ~5840 km apart.
	geo := &fakeGeo{locs: map[string]Location{
		"198.51.100.9":  {Latitude: 40.7128, Longitude: -74.0060, City: "New York"},
		"203.0.113.7":   {Latitude: 48.8566, Longitude: 2.3522, City: "Paris"},
		"198.51.100.10": {Latitude: 40.73, Longitude: -74.0, City: "New York"},
	}}

	tests := []struct {
		name string
		last *LoginRecord
		ip   string
		want bool
	}{
		{
			name: "paris one hour after new york fires",
			last: &LoginRecord{UserID: "u1", Addr: mustAddr("198.51.100.9"), Timestamp: ruleTime.Add(-time.Hour)},
			ip:   "203.0.113.7",
			want: true,
		},
		{
			name: "paris ten hours after new york is plausible",
			last: &LoginRecord{UserID: "u1", Addr: mustAddr("198.51.100.9"), Timestamp: ruleTime.Add(-10 * time.Hour)},
			ip:   "203.0.113.7",
			want: false,
		},
		{
			name: "nearby locations below the distance floor",
			last: &LoginRecord{UserID: "u1", Addr: mustAddr("198.51.100.9"), Timestamp: ruleTime.Add(-time.Minute)},
			ip:   "198.51.100.10",
			want: false,
		},
		{
			name: "same timestamp different continents fires",
			last: &LoginRecord{UserID: "u1", Addr: mustAddr("198.51.100.9"), Timestamp: ruleTime},
			ip:   "203.0.113.7",
			want: true,
		},
		{
			name: "no prior history",
			last: nil,
			ip:   "203.0.113.7",
			want: false,
		},
		{
			name: "same address short-circuits",
			last: &LoginRecord{UserID: "u1", Addr: mustAddr("203.0.113.7"), Timestamp: ruleTime.Add(-time.Second)},
			ip:   "203.0.113.7",
			want: false,
		},
		{
			name: "unlocatable address skipped",
			last: &LoginRecord{UserID: "u1", Addr: mustAddr("192.0.2.1"), Timestamp: ruleTime.Add(-time.Hour)},
			ip:   "203.0.113.7",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := NewImpossibleTravelRule(&fakeHistory{last: tt.last}, geo, DefaultImpossibleTravelConfig())
			f, err := rule.Evaluate(context.Background(), testContext("u1", tt.ip, "d1", "", ruleTime))
			if err != nil {
				t.Fatal(err)
			}
			if (f != nil) != tt.want {
				t.Errorf("finding = %+v, want fire=%v", f, tt.want)
			}
			if f != nil && (f.Severity != 85 || f.Reason != "Impossible Travel") {
				t.Errorf("finding = %+v, want severity 85 Impossible Travel", f)
			}
		})
	}
}

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{"same point", 40.7128, -74.0060, 40.7128, -74.0060, 0, 0.001},
		{"new york to paris", 40.7128, -74.0060, 48.8566, 2.3522, 5837, 20},
		{"london to sydney", 51.5074, -0.1278, -33.8688, 151.2093, 16994, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if diff := got - tt.wantKm; diff < -tt.tolerance || diff > tt.tolerance {
				t.Errorf("haversineKm = %g, want %g ± %g", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestLoginVelocityRule(t *testing.T) {
	tests := []struct {
		count int
		want  bool
	}{
		{0, false},
		{9, false},
		{10, true},
		{50, true},
	}
	for _, tt := range tests {
		rule := NewLoginVelocityRule(&fakeHistory{count: tt.count}, DefaultLoginVelocityConfig())
		f, err := rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "d1", "", ruleTime))
		if err != nil {
			t.Fatal(err)
		}
		if (f != nil) != tt.want {
			t.Errorf("count %d: finding = %+v, want fire=%v", tt.count, f, tt.want)
		}
		if f != nil && (f.Severity != 60 || f.Reason != "Login velocity exceeded") {
			t.Errorf("finding = %+v, want severity 60", f)
		}
	}
}

func TestLoginVelocityConfigure(t *testing.T) {
	rule := NewLoginVelocityRule(&fakeHistory{count: 3}, DefaultLoginVelocityConfig())

	if err := rule.Configure(json.RawMessage(`{"window":"1m","max_attempts":3,"severity":75}`)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	f, err := rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "d1", "", ruleTime))
	if err != nil {
		t.Fatal(err)
	}
	if f == nil || f.Severity != 75 {
		t.Errorf("finding = %+v, want severity 75 after reconfiguration", f)
	}

	bad := []string{
		`{"window":"not-a-duration","max_attempts":3,"severity":75}`,
		`{"window":"-5m","max_attempts":3,"severity":75}`,
		`{"window":"5m","max_attempts":0,"severity":75}`,
		`{"window":"5m","max_attempts":3,"severity":101}`,
	}
	for _, raw := range bad {
		if err := rule.Configure(json.RawMessage(raw)); err == nil {
			t.Errorf("Configure(%s) = nil, want error", raw)
		}
	}
}

func TestUserAgentAnomalyRule(t *testing.T) {
	rule := NewUserAgentAnomalyRule(DefaultUserAgentAnomalyConfig())

	tests := []struct {
		ua   string
		want bool
	}{
		{"curl/8.4.0", true},
		{"Wget/1.21", true},
		{"python-requests/2.31", true},
		{"Googlebot/2.1", true},
		{"HeadlessChrome/120.0", true},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", false},
		{"", false},
	}
	for _, tt := range tests {
		f, err := rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "d1", tt.ua, ruleTime))
		if err != nil {
			t.Fatal(err)
		}
		if (f != nil) != tt.want {
			t.Errorf("ua %q: finding = %+v, want fire=%v", tt.ua, f, tt.want)
		}
		if f != nil && (f.Severity != 40 || f.Reason != "Anomalous user agent") {
			t.Errorf("finding = %+v, want severity 40", f)
		}
	}
}

func TestUserAgentAnomalyPatternOverride(t *testing.T) {
	rule := NewUserAgentAnomalyRule(UserAgentAnomalyConfig{
		Severity: 40,
		Patterns: []string{"internal-scanner"},
	})

	// Custom patterns replace the built-in list entirely.
	f, err := rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "d1", "Internal-Scanner/1.0", ruleTime))
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Error("custom pattern did not match")
	}
	f, err = rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "d1", "curl/8.0", ruleTime))
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Errorf("finding = %+v, want built-in patterns replaced", f)
	}

	// An empty patterns list in Configure restores the defaults.
	if err := rule.Configure(json.RawMessage(`{"severity":40}`)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	f, err = rule.Evaluate(context.Background(), testContext("u1", "198.51.100.9", "d1", "curl/8.0", ruleTime))
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Error("default patterns not restored")
	}
}
