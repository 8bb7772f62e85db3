// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package signals

import (
	"context"
	"sync"
	"time"

	"github.com/authbuilder/sentinel/internal/risk"
)

// MemoryHistory keeps per-user login records in memory, pruned by retention
// on every write. Suitable for development and tests; production deployments
// use the badger or redis backend.
type MemoryHistory struct {
	mu        sync.RWMutex
	byUser    map[string][]risk.LoginRecord
	retention time.Duration
	now       func() time.Time
}

// NewMemoryHistory creates the store. Zero retention keeps records forever.
func NewMemoryHistory(retention time.Duration) *MemoryHistory {
	return &MemoryHistory{
		byUser:    make(map[string][]risk.LoginRecord),
		retention: retention,
		now:       time.Now,
	}
}

func (m *MemoryHistory) RecordLogin(_ context.Context, rec risk.LoginRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := append(m.byUser[rec.UserID], rec)

	if m.retention > 0 {
		cutoff := m.now().Add(-m.retention)
		kept := records[:0]
		for _, r := range records {
			if r.Timestamp.After(cutoff) {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	m.byUser[rec.UserID] = records
	return nil
}

func (m *MemoryHistory) LastLogin(_ context.Context, userID string, before time.Time) (*risk.LoginRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *risk.LoginRecord
	for i := range m.byUser[userID] {
		r := m.byUser[userID][i]
		if !r.Timestamp.Before(before) {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (m *MemoryHistory) CountAttempts(_ context.Context, userID string, since, until time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.byUser[userID] {
		if r.Timestamp.After(since) && !r.Timestamp.After(until) {
			count++
		}
	}
	return count, nil
}
