// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeContext(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		sub       Submission
		wantErr   string // offending field, "" for success
		wantCheck func(t *testing.T, c *Context)
	}{
		{
			name: "valid full submission",
			sub: Submission{
				UserID:    "u1",
				IPAddress: "203.0.113.5",
				DeviceID:  "dev-1",
				UserAgent: "Mozilla/5.0",
				Timestamp: "2026-03-15T11:59:00Z",
			},
			wantCheck: func(t *testing.T, c *Context) {
				if c.UserID != "u1" || c.Addr.String() != "203.0.113.5" {
					t.Errorf("unexpected context: %+v", c)
				}
				if !c.Timestamp.Equal(time.Date(2026, 3, 15, 11, 59, 0, 0, time.UTC)) {
					t.Errorf("timestamp = %s", c.Timestamp)
				}
			},
		},
		{
			name: "trims whitespace",
			sub:  Submission{UserID: "  u1  ", IPAddress: " 203.0.113.5 ", DeviceID: " d "},
			wantCheck: func(t *testing.T, c *Context) {
				if c.UserID != "u1" || c.DeviceID != "d" {
					t.Errorf("fields not trimmed: %+v", c)
				}
			},
		},
		{
			name: "missing timestamp defaults to now in UTC",
			sub:  Submission{UserID: "u1", IPAddress: "203.0.113.5"},
			wantCheck: func(t *testing.T, c *Context) {
				if !c.Timestamp.Equal(now) {
					t.Errorf("timestamp = %s, want %s", c.Timestamp, now)
				}
			},
		},
		{
			name: "ipv4-mapped ipv6 unmapped",
			sub:  Submission{UserID: "u1", IPAddress: "::ffff:203.0.113.5"},
			wantCheck: func(t *testing.T, c *Context) {
				if c.Addr.String() != "203.0.113.5" {
					t.Errorf("addr = %s, want unmapped 203.0.113.5", c.Addr)
				}
			},
		},
		{
			name: "ipv6 accepted",
			sub:  Submission{UserID: "u1", IPAddress: "2001:db8::1"},
			wantCheck: func(t *testing.T, c *Context) {
				if !c.Addr.Is6() {
					t.Errorf("addr = %s, want IPv6", c.Addr)
				}
			},
		},
		{name: "empty userId", sub: Submission{IPAddress: "203.0.113.5"}, wantErr: "userId"},
		{name: "blank userId", sub: Submission{UserID: "   ", IPAddress: "203.0.113.5"}, wantErr: "userId"},
		{name: "control chars in userId", sub: Submission{UserID: "u\x001", IPAddress: "203.0.113.5"}, wantErr: "userId"},
		{name: "empty ipAddress", sub: Submission{UserID: "u1"}, wantErr: "ipAddress"},
		{name: "hostname not ip", sub: Submission{UserID: "u1", IPAddress: "evil.example.com"}, wantErr: "ipAddress"},
		{name: "ip with port", sub: Submission{UserID: "u1", IPAddress: "203.0.113.5:443"}, wantErr: "ipAddress"},
		{name: "bad timestamp", sub: Submission{UserID: "u1", IPAddress: "203.0.113.5", Timestamp: "yesterday"}, wantErr: "timestamp"},
		{
			name:    "timestamp far in the future",
			sub:     Submission{UserID: "u1", IPAddress: "203.0.113.5", Timestamp: "2026-03-15T13:00:00Z"},
			wantErr: "timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NormalizeContext(tt.sub, now)
			if tt.wantErr != "" {
				var invalid *InvalidContextError
				if !errors.As(err, &invalid) {
					t.Fatalf("err = %v, want InvalidContextError", err)
				}
				if invalid.Field != tt.wantErr {
					t.Errorf("invalid field = %q, want %q", invalid.Field, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeContext() error: %v", err)
			}
			if tt.wantCheck != nil {
				tt.wantCheck(t, c)
			}
		})
	}
}

func TestNormalizeContextDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sub := Submission{UserID: "u1", IPAddress: "203.0.113.5", DeviceID: "d1", UserAgent: "ua"}

	a, err := NormalizeContext(sub, now)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalizeContext(sub, now)
	if err != nil {
		t.Fatal(err)
	}
	if *a != *b {
		t.Errorf("normalization not deterministic: %+v vs %+v", a, b)
	}
}
