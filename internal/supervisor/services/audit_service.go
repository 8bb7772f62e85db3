// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package services

import (
	"context"

	"github.com/authbuilder/sentinel/internal/audit"
)

// AuditService runs the audit trail consumer under supervision.
type AuditService struct {
	trail *audit.Trail
}

// NewAuditService wraps a trail.
func NewAuditService(trail *audit.Trail) *AuditService {
	return &AuditService{trail: trail}
}

// Serve implements suture.Service.
func (s *AuditService) Serve(ctx context.Context) error {
	return s.trail.Run(ctx)
}

func (s *AuditService) String() string { return "audit-trail" }
