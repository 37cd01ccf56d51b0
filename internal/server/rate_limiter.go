// Package server implements per-connection throttling of input lines on top
// of a token bucket.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter allows capacity lines per interval with bursts of capacity.
// It returns nil, meaning unlimited, when the burst is zero.
func newRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	capacity := cfg.Burst
	if capacity <= 0 {
		return nil
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	return rate.NewLimiter(rate.Limit(float64(capacity)/interval.Seconds()), capacity)
}
