// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestValidateToken(t *testing.T) {
	m := NewJWTManager(testSecret)

	token, err := m.IssueToken("auth-server", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "auth-server" {
		t.Errorf("subject = %q, want auth-server", claims.Subject)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	m := NewJWTManager(testSecret)

	expired, err := m.IssueToken("auth-server", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	other := NewJWTManager("another-secret-another-secret-32")
	wrongKey, err := other.IssueToken("auth-server", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": wrongKey,
		"garbage":      "not.a.token",
	} {
		if _, err := m.ValidateToken(token); err == nil {
			t.Errorf("%s token accepted", name)
		}
	}
}

func TestMiddleware(t *testing.T) {
	m := NewJWTManager(testSecret)
	token, err := m.IssueToken("auth-server", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	var gotSubject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := ClaimsFromContext(r.Context()); claims != nil {
			gotSubject = claims.Subject
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("jwt mode", func(t *testing.T) {
		handler := Middleware("jwt", m)(inner)

		tests := []struct {
			name       string
			authHeader string
			wantStatus int
		}{
			{"valid token", "Bearer " + token, http.StatusOK},
			{"no header", "", http.StatusUnauthorized},
			{"not bearer", "Basic dXNlcg==", http.StatusUnauthorized},
			{"bad token", "Bearer garbage", http.StatusUnauthorized},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/api/risk/analyze", nil)
				if tt.authHeader != "" {
					req.Header.Set("Authorization", tt.authHeader)
				}
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				if rec.Code != tt.wantStatus {
					t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
				}
			})
		}
		if gotSubject != "auth-server" {
			t.Errorf("claims subject = %q, want auth-server", gotSubject)
		}
	})

	t.Run("none mode passes through", func(t *testing.T) {
		handler := Middleware("none", nil)(inner)
		req := httptest.NewRequest(http.MethodPost, "/api/risk/analyze", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
		}
	})
}
