// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/goccy/go-json"
)

const earthRadiusKm = 6371.0

// ImpossibleTravelConfig configures the impossible-travel rule.
type ImpossibleTravelConfig struct {
	// MaxSpeedKmH is the highest plausible travel speed between two logins.
	MaxSpeedKmH float64 `json:"max_speed_kmh"`

	// MinDistanceKm suppresses findings for nearby locations, where GeoIP
	// resolution noise dominates.
	MinDistanceKm float64 `json:"min_distance_km"`

	Severity int `json:"severity"`
}

// DefaultImpossibleTravelConfig returns the default configuration:
// commercial flight speed, 100 km noise floor.
func DefaultImpossibleTravelConfig() ImpossibleTravelConfig {
	return ImpossibleTravelConfig{
		MaxSpeedKmH:   900,
		MinDistanceKm: 100,
		Severity:      85,
	}
}

// ImpossibleTravelRule fires when the geographic distance between the
// current attempt and the user's last recorded login implies a travel speed
// above the configured maximum. Attempts are skipped when the user has no
// prior history or either address has no known location.
type ImpossibleTravelRule struct {
	mu      sync.RWMutex
	enabled bool
	config  ImpossibleTravelConfig
	history LoginHistory
	geo     GeoProvider
}

// NewImpossibleTravelRule creates the rule. Pass
// DefaultImpossibleTravelConfig() unless the deployment overrides the
// thresholds.
func NewImpossibleTravelRule(history LoginHistory, geo GeoProvider, config ImpossibleTravelConfig) *ImpossibleTravelRule {
	return &ImpossibleTravelRule{
		enabled: true,
		config:  config,
		history: history,
		geo:     geo,
	}
}

func (r *ImpossibleTravelRule) Name() RuleName { return RuleImpossibleTravel }

func (r *ImpossibleTravelRule) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

func (r *ImpossibleTravelRule) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Configure replaces the rule configuration from raw JSON.
func (r *ImpossibleTravelRule) Configure(raw json.RawMessage) error {
	var config ImpossibleTravelConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("parse impossible_travel config: %w", err)
	}
	if config.MaxSpeedKmH <= 0 {
		return fmt.Errorf("impossible_travel max_speed_kmh must be positive, got %g", config.MaxSpeedKmH)
	}
	if config.MinDistanceKm < 0 {
		return fmt.Errorf("impossible_travel min_distance_km must not be negative, got %g", config.MinDistanceKm)
	}
	if config.Severity < 0 || config.Severity > 100 {
		return fmt.Errorf("impossible_travel severity must be in [0, 100], got %d", config.Severity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	return nil
}

func (r *ImpossibleTravelRule) Evaluate(ctx context.Context, ec *Context) (*Finding, error) {
	r.mu.RLock()
	config := r.config
	r.mu.RUnlock()

	last, err := r.history.LastLogin(ctx, ec.UserID, ec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("login history lookup for user %s: %w", ec.UserID, err)
	}
	if last == nil || last.Addr == ec.Addr {
		return nil, nil
	}

	here, ok, err := r.geo.Locate(ctx, ec.Addr)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", ec.Addr, err)
	}
	if !ok {
		return nil, nil
	}
	there, ok, err := r.geo.Locate(ctx, last.Addr)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", last.Addr, err)
	}
	if !ok {
		return nil, nil
	}

	distanceKm := haversineKm(here.Latitude, here.Longitude, there.Latitude, there.Longitude)
	if distanceKm < config.MinDistanceKm {
		return nil, nil
	}

	elapsed := ec.Timestamp.Sub(last.Timestamp)
	if elapsed > 0 {
		speedKmH := distanceKm / elapsed.Hours()
		if speedKmH <= config.MaxSpeedKmH {
			return nil, nil
		}
	}
	// elapsed <= 0 with a significant distance means two places at once.

	return &Finding{
		Rule:     RuleImpossibleTravel,
		Severity: config.Severity,
		Reason:   "Impossible Travel",
	}, nil
}

// haversineKm returns the great-circle distance between two points in km.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
