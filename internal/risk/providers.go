// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"errors"
	"net/netip"
	"time"
)

// ErrProviderUnavailable signals that an external signal provider could not
// answer (network failure, open circuit breaker, closed store). Rules
// translate it into an unavailable finding instead of failing the evaluation.
var ErrProviderUnavailable = errors.New("signal provider unavailable")

// ReputationProvider answers whether an address is on a known-bad list.
type ReputationProvider interface {
	// IsBlacklisted reports whether addr appears in the provider's blocklist.
	IsBlacklisted(ctx context.Context, addr netip.Addr) (bool, error)
}

// DeviceTrust is the trust state of a (user, device) pair.
type DeviceTrust int

const (
	// DeviceUnknown means the device has never been seen for this user.
	DeviceUnknown DeviceTrust = iota
	// DeviceTrusted means the device was previously verified for this user.
	DeviceTrusted
	// DeviceRevoked means trust for the device was explicitly withdrawn.
	DeviceRevoked
)

func (t DeviceTrust) String() string {
	switch t {
	case DeviceTrusted:
		return "trusted"
	case DeviceRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// DeviceTrustStore answers device trust lookups for a user.
type DeviceTrustStore interface {
	Trust(ctx context.Context, userID, deviceID string) (DeviceTrust, error)
}

// LoginRecord is one observed login attempt for a user.
type LoginRecord struct {
	UserID    string     `json:"userId"`
	Addr      netip.Addr `json:"addr"`
	Timestamp time.Time  `json:"timestamp"`
}

// LoginHistory stores and queries a user's past login attempts. Reads feed
// the impossible-travel and velocity rules; writes happen after evaluation
// so a verdict never observes its own attempt.
type LoginHistory interface {
	// LastLogin returns the most recent recorded attempt strictly before
	// the given time, or nil if the user has no prior history.
	LastLogin(ctx context.Context, userID string, before time.Time) (*LoginRecord, error)

	// CountAttempts returns the number of attempts recorded in the half-open
	// window (since, until].
	CountAttempts(ctx context.Context, userID string, since, until time.Time) (int, error)

	// RecordLogin appends an attempt to the user's history.
	RecordLogin(ctx context.Context, rec LoginRecord) error
}

// Location is a geographic point resolved from an IP address.
type Location struct {
	Latitude  float64
	Longitude float64
	Country   string
	City      string
}

// GeoProvider resolves IP addresses to geographic locations. Addresses with
// no known location (private ranges, unlisted networks) return ok=false with
// a nil error.
type GeoProvider interface {
	Locate(ctx context.Context, addr netip.Addr) (loc Location, ok bool, err error)
}
