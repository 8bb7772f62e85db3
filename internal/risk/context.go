// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
	"unicode"
)

// Submission is a raw login attempt as received from a caller, before
// normalization. Field names match the wire format of the risk API.
type Submission struct {
	UserID    string `json:"userId"`
	IPAddress string `json:"ipAddress"`
	DeviceID  string `json:"deviceId,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	// Timestamp is the attempt time in RFC 3339; empty means "now".
	Timestamp string `json:"timestamp,omitempty"`
}

// Context is a normalized login attempt, the engine's only input besides
// the injected signal providers. All fields are canonical: identifiers are
// trimmed, the address is parsed, and the timestamp is resolved to UTC.
type Context struct {
	UserID    string
	Addr      netip.Addr
	DeviceID  string
	UserAgent string
	Timestamp time.Time
}

// HasDevice reports whether the attempt carried a device identifier.
// Device-based rules skip attempts without one.
func (c *Context) HasDevice() bool { return c.DeviceID != "" }

// InvalidContextError rejects a submission that cannot be normalized into a
// valid Context. It names the offending field so API callers can fix input.
type InvalidContextError struct {
	Field  string
	Detail string
}

func (e *InvalidContextError) Error() string {
	return fmt.Sprintf("invalid login context: field %q: %s", e.Field, e.Detail)
}

// NormalizeContext validates and canonicalizes a raw submission relative to
// the reference time now. Normalization is deterministic: the same submission
// and reference time always produce the same Context.
//
// Rules applied:
//   - userId: trimmed; must be non-empty and free of control characters
//   - ipAddress: trimmed; must parse as IPv4 or IPv6; IPv4-mapped IPv6
//     addresses are unmapped to their IPv4 form
//   - deviceId and userAgent: trimmed, optional
//   - timestamp: RFC 3339 when present, resolved to UTC; defaults to now;
//     timestamps further than 5 minutes in the future are rejected
func NormalizeContext(sub Submission, now time.Time) (*Context, error) {
	userID := strings.TrimSpace(sub.UserID)
	if userID == "" {
		return nil, &InvalidContextError{Field: "userId", Detail: "must not be empty"}
	}
	if hasControlChars(userID) {
		return nil, &InvalidContextError{Field: "userId", Detail: "contains control characters"}
	}

	rawAddr := strings.TrimSpace(sub.IPAddress)
	if rawAddr == "" {
		return nil, &InvalidContextError{Field: "ipAddress", Detail: "must not be empty"}
	}
	if hasControlChars(rawAddr) {
		return nil, &InvalidContextError{Field: "ipAddress", Detail: "contains control characters"}
	}
	addr, err := netip.ParseAddr(rawAddr)
	if err != nil {
		return nil, &InvalidContextError{Field: "ipAddress", Detail: fmt.Sprintf("not a valid IP address: %q", rawAddr)}
	}
	addr = addr.Unmap()

	ts := now.UTC()
	if raw := strings.TrimSpace(sub.Timestamp); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, &InvalidContextError{Field: "timestamp", Detail: "must be RFC 3339"}
		}
		ts = parsed.UTC()
		if ts.After(now.UTC().Add(5 * time.Minute)) {
			return nil, &InvalidContextError{Field: "timestamp", Detail: "too far in the future"}
		}
	}

	return &Context{
		UserID:    userID,
		Addr:      addr,
		DeviceID:  strings.TrimSpace(sub.DeviceID),
		UserAgent: strings.TrimSpace(sub.UserAgent),
		Timestamp: ts,
	}, nil
}

func hasControlChars(s string) bool {
	return strings.ContainsFunc(s, unicode.IsControl)
}
