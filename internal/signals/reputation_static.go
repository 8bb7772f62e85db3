// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

// Package signals provides reference implementations of the engine's signal
// provider interfaces: network reputation, login history, device trust, and
// GeoIP location.
package signals

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
)

// StaticReputation is an in-memory blocklist of exact addresses and CIDR
// prefixes. Lookups never fail; a static list is always available.
type StaticReputation struct {
	mu       sync.RWMutex
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
}

// NewStaticReputation builds a blocklist from a mix of addresses
// ("203.0.113.5") and CIDR prefixes ("198.51.100.0/24").
func NewStaticReputation(entries []string) (*StaticReputation, error) {
	s := &StaticReputation{addrs: make(map[netip.Addr]struct{})}
	for _, entry := range entries {
		if err := s.Add(entry); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts one address or CIDR prefix into the blocklist.
func (s *StaticReputation) Add(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return fmt.Errorf("blocklist prefix %q: %w", entry, err)
		}
		s.prefixes = append(s.prefixes, prefix.Masked())
		return nil
	}

	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return fmt.Errorf("blocklist address %q: %w", entry, err)
	}
	s.addrs[addr.Unmap()] = struct{}{}
	return nil
}

// IsBlacklisted reports whether addr matches an exact entry or any prefix.
func (s *StaticReputation) IsBlacklisted(_ context.Context, addr netip.Addr) (bool, error) {
	addr = addr.Unmap()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.addrs[addr]; ok {
		return true, nil
	}
	for _, prefix := range s.prefixes {
		if prefix.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}
