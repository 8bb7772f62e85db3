// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package risk

import (
	"context"
	"net/netip"
	"time"
)

// Fakes for the signal provider interfaces, shared by the engine and rule
// tests. A non-nil err field makes every lookup fail.

type fakeReputation struct {
	bad map[string]bool
	err error
}

func (f *fakeReputation) IsBlacklisted(_ context.Context, addr netip.Addr) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.bad[addr.String()], nil
}

type fakeDevices struct {
	trust map[string]DeviceTrust // keyed by userID + "/" + deviceID
	err   error
}

func (f *fakeDevices) Trust(_ context.Context, userID, deviceID string) (DeviceTrust, error) {
	if f.err != nil {
		return DeviceUnknown, f.err
	}
	return f.trust[userID+"/"+deviceID], nil
}

type fakeHistory struct {
	last     *LoginRecord
	count    int
	err      error
	recorded []LoginRecord
}

func (f *fakeHistory) LastLogin(_ context.Context, _ string, _ time.Time) (*LoginRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.last, nil
}

func (f *fakeHistory) CountAttempts(_ context.Context, _ string, _, _ time.Time) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func (f *fakeHistory) RecordLogin(_ context.Context, rec LoginRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, rec)
	return nil
}

type fakeGeo struct {
	locs map[string]Location
	err  error
}

func (f *fakeGeo) Locate(_ context.Context, addr netip.Addr) (Location, bool, error) {
	if f.err != nil {
		return Location{}, false, f.err
	}
	loc, ok := f.locs[addr.String()]
	return loc, ok, nil
}

func mustAddr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func testContext(userID, ip, deviceID, userAgent string, ts time.Time) *Context {
	return &Context{
		UserID:    userID,
		Addr:      mustAddr(ip),
		DeviceID:  deviceID,
		UserAgent: userAgent,
		Timestamp: ts,
	}
}
