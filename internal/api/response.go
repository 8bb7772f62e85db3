// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

// Package api implements the HTTP transport for the risk engine: the
// analyze endpoint, runtime rule management, and health probes.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/authbuilder/sentinel/internal/logging"
)

// apiError is the error envelope for all non-2xx responses.
type apiError struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("encode API response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, apiError{Error: code, Message: message})
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	respondJSON(w, status, apiError{Error: code, Message: message, Details: details})
}
