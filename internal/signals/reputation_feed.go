// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package signals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/authbuilder/sentinel/internal/logging"
	"github.com/authbuilder/sentinel/internal/metrics"
	"github.com/authbuilder/sentinel/internal/risk"
)

// FeedReputation queries an HTTP threat-intel feed. The outbound call sits
// behind a circuit breaker and a rate limiter: a slow or failing feed trips
// the breaker and the rule degrades instead of stalling evaluations.
//
// The breaker uses real time for its interval and timeout calculations; tests
// exercise the wrapped HTTP call directly.
type FeedReputation struct {
	feedURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[bool]
	limiter *rate.Limiter
	name    string
}

// FeedConfig configures a FeedReputation provider.
type FeedConfig struct {
	// URL is the feed endpoint; the address is appended as an ip query param.
	URL string

	// Timeout bounds one feed lookup. Must stay well under the engine's
	// per-rule timeout.
	Timeout time.Duration

	// RateLimit is the max lookups per second (0 = unlimited).
	RateLimit float64
}

// NewFeedReputation creates the feed client with circuit breaker protection:
// 1 minute measurement window, 30s recovery timeout, opens at a 60% failure
// rate over at least 10 requests.
func NewFeedReputation(cfg FeedConfig) *FeedReputation {
	const cbName = "reputation-feed"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := breakerStateString(from), breakerStateString(to)
			logging.Warn().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("reputation feed circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}

	return &FeedReputation{
		feedURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
		cb:      cb,
		limiter: limiter,
		name:    cbName,
	}
}

// feedResponse is the feed's wire format.
type feedResponse struct {
	Blacklisted bool `json:"blacklisted"`
}

// IsBlacklisted queries the feed. Breaker-open, rate-limited, and transport
// failures all surface as errors so the rule degrades.
func (f *FeedReputation) IsBlacklisted(ctx context.Context, addr netip.Addr) (bool, error) {
	if f.limiter != nil && !f.limiter.Allow() {
		metrics.CircuitBreakerRequests.WithLabelValues(f.name, "throttled").Inc()
		return false, fmt.Errorf("reputation feed: %w: rate limit exhausted", risk.ErrProviderUnavailable)
	}

	result, err := f.cb.Execute(func() (bool, error) {
		return f.lookup(ctx, addr)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(f.name, "rejected").Inc()
			return false, fmt.Errorf("reputation feed: %w: circuit open", risk.ErrProviderUnavailable)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(f.name, "failure").Inc()
		return false, fmt.Errorf("reputation feed: %w", err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(f.name, "success").Inc()
	return result, nil
}

func (f *FeedReputation) lookup(ctx context.Context, addr netip.Addr) (bool, error) {
	u, err := url.Parse(f.feedURL)
	if err != nil {
		return false, fmt.Errorf("feed url: %w", err)
	}
	q := u.Query()
	q.Set("ip", addr.String())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode feed response: %w", err)
	}
	return body.Blacklisted, nil
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
