// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/authbuilder/sentinel/internal/audit"
	"github.com/authbuilder/sentinel/internal/logging"
	"github.com/authbuilder/sentinel/internal/metrics"
	"github.com/authbuilder/sentinel/internal/risk"
	"github.com/authbuilder/sentinel/internal/validation"
)

// handleAnalyze is the decision endpoint: normalize, evaluate, record the
// attempt, publish the audit event, answer. Evaluation errors never reach
// the caller; only malformed input does.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "MALFORMED_JSON", "request body is not valid JSON")
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			respondErrorDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "request failed validation", verr.Fields)
			return
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	sub := risk.Submission{
		UserID:    req.UserID,
		IPAddress: req.IPAddress,
		DeviceID:  req.DeviceID,
		UserAgent: req.UserAgent,
		Timestamp: req.Timestamp,
	}
	ec, err := risk.NormalizeContext(sub, s.now())
	if err != nil {
		metrics.InvalidContexts.Inc()
		var invalid *risk.InvalidContextError
		if errors.As(err, &invalid) {
			respondError(w, http.StatusBadRequest, "INVALID_CONTEXT", invalid.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_CONTEXT", "login context could not be normalized")
		return
	}

	verdict := s.engine.Evaluate(r.Context(), ec)

	// The attempt is recorded after evaluation so a verdict never observes
	// its own login. A write failure loses one history entry, not the verdict.
	if s.history != nil {
		rec := risk.LoginRecord{UserID: ec.UserID, Addr: ec.Addr, Timestamp: ec.Timestamp}
		if err := s.history.RecordLogin(r.Context(), rec); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("user_id", ec.UserID).Msg("record login attempt")
		}
	}

	if s.trail != nil {
		requestID := logging.RequestIDFromContext(r.Context())
		s.trail.Publish(r.Context(), audit.NewVerdictEvent(requestID, ec, verdict))
	}

	respondJSON(w, http.StatusOK, analyzeResponse{
		Status:    string(verdict.Status),
		RiskScore: verdict.RiskScore,
		Reason:    verdict.Reason,
		Degraded:  verdict.Degraded,
	})
}

// handleListRules returns the catalog in evaluation order.
func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules": s.engine.Rules(),
	})
}

// handleUpdateRule toggles and/or reconfigures one rule by name.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	name := risk.RuleName(chi.URLParam(r, "name"))

	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "MALFORMED_JSON", "request body is not valid JSON")
		return
	}
	if req.Enabled == nil && len(req.Config) == 0 {
		respondError(w, http.StatusBadRequest, "EMPTY_UPDATE", "nothing to update: provide enabled and/or config")
		return
	}

	if len(req.Config) > 0 {
		if err := s.engine.ConfigureRule(name, req.Config); err != nil {
			respondRuleError(w, name, err)
			return
		}
	}
	if req.Enabled != nil {
		if err := s.engine.SetRuleEnabled(name, *req.Enabled); err != nil {
			respondRuleError(w, name, err)
			return
		}
		logging.Ctx(r.Context()).Info().
			Str("rule", string(name)).
			Bool("enabled", *req.Enabled).
			Msg("rule toggled")
	}

	for _, rs := range s.engine.Rules() {
		if rs.Name == name {
			respondJSON(w, http.StatusOK, rs)
			return
		}
	}
	respondError(w, http.StatusNotFound, "RULE_NOT_FOUND", "no such rule: "+string(name))
}

func respondRuleError(w http.ResponseWriter, name risk.RuleName, err error) {
	if errors.Is(err, risk.ErrUnknownRule) {
		respondError(w, http.StatusNotFound, "RULE_NOT_FOUND", "no such rule: "+string(name))
		return
	}
	respondError(w, http.StatusBadRequest, "INVALID_RULE_CONFIG", err.Error())
}

// handleHealthLive reports process liveness.
func (s *Server) handleHealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthReady reports readiness: the engine must have a rule catalog.
func (s *Server) handleHealthReady(w http.ResponseWriter, _ *http.Request) {
	rules := s.engine.Rules()
	if len(rules) == 0 {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "no rules registered")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rules":  len(rules),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
