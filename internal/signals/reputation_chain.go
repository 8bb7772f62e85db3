// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package signals

import (
	"context"
	"errors"
	"net/netip"

	"github.com/authbuilder/sentinel/internal/risk"
)

// ChainReputation consults providers in order and reports blacklisted on the
// first positive match. A provider error is remembered but later providers
// are still tried; the error only surfaces when no provider matched.
type ChainReputation struct {
	providers []risk.ReputationProvider
}

// NewChainReputation chains providers in lookup order, typically the static
// blocklist first and the remote feed second.
func NewChainReputation(providers ...risk.ReputationProvider) *ChainReputation {
	return &ChainReputation{providers: providers}
}

func (c *ChainReputation) IsBlacklisted(ctx context.Context, addr netip.Addr) (bool, error) {
	var errs []error
	for _, p := range c.providers {
		blacklisted, err := p.IsBlacklisted(ctx, addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if blacklisted {
			return true, nil
		}
	}
	if len(errs) > 0 {
		return false, errors.Join(errs...)
	}
	return false, nil
}
