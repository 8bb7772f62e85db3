// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package signals

import (
	"context"
	"sync"

	"github.com/authbuilder/sentinel/internal/risk"
)

// MemoryDeviceTrust is an in-memory device trust store. Deployments with a
// real device inventory inject their own implementation; this one serves
// development and tests, and as the default when nothing else is wired.
type MemoryDeviceTrust struct {
	mu    sync.RWMutex
	state map[deviceKey]risk.DeviceTrust
}

type deviceKey struct {
	userID   string
	deviceID string
}

// NewMemoryDeviceTrust creates an empty store; every pair starts unknown.
func NewMemoryDeviceTrust() *MemoryDeviceTrust {
	return &MemoryDeviceTrust{state: make(map[deviceKey]risk.DeviceTrust)}
}

func (m *MemoryDeviceTrust) Trust(_ context.Context, userID, deviceID string) (risk.DeviceTrust, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state[deviceKey{userID, deviceID}], nil
}

// SetTrusted marks a device as verified for a user.
func (m *MemoryDeviceTrust) SetTrusted(userID, deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[deviceKey{userID, deviceID}] = risk.DeviceTrusted
}

// Revoke withdraws trust for a device.
func (m *MemoryDeviceTrust) Revoke(userID, deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[deviceKey{userID, deviceID}] = risk.DeviceRevoked
}
