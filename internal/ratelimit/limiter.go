// Package ratelimit wraps a token-bucket limiter with API-Football's
// quota-header bookkeeping and emergency-stop semantics.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrEmergencyStop is returned once the observed daily quota drops below the
// configured threshold. Callers should stop scheduling new requests.
var ErrEmergencyStop = errors.New("ratelimit: emergency stop, daily quota below threshold")

// Quota is a snapshot of the last observed quota headers.
type Quota struct {
	DailyRemaining  *int
	MinuteRemaining *int
}

// Limiter is a token-bucket limiter (per-minute budget, via
// golang.org/x/time/rate) layered with daily-quota tracking and an
// emergency stop triggered by a low daily-remaining count.
type Limiter struct {
	limiter *rate.Limiter

	mu                     sync.Mutex
	dailyRemaining         *int
	minuteRemaining        *int
	emergencyStopThreshold int
	logger                 *zap.Logger
}

// New builds a Limiter admitting perMinute requests per minute with the
// given burst, and an emergency stop that trips once the daily-remaining
// quota reported by the API drops below emergencyStopThreshold.
func New(perMinute int, burst int, emergencyStopThreshold int, logger *zap.Logger) *Limiter {
	ratePerSecond := rate.Limit(float64(perMinute) / 60.0)
	return &Limiter{
		limiter:                rate.NewLimiter(ratePerSecond, burst),
		emergencyStopThreshold: emergencyStopThreshold,
		logger:                 logger,
	}
}

// Wait blocks until a token is available, then consumes it. It sleeps
// outside of the limiter's internal state so other callers can keep
// refilling/checking concurrently. Returns ErrEmergencyStop immediately
// (without waiting) if the daily quota is already exhausted.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.checkEmergencyStop(); err != nil {
		return err
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.checkEmergencyStop()
}

// UpdateFromHeaders records the quota-related response headers
// API-Football returns on every call and clamps future admission to the
// observed per-minute remaining count.
func (l *Limiter) UpdateFromHeaders(headers map[string]string) error {
	daily := parseIntHeader(headers, "x-ratelimit-requests-remaining")
	minute := parseIntHeader(headers, "x-ratelimit-remaining")

	l.mu.Lock()
	l.dailyRemaining = daily
	l.minuteRemaining = minute
	thresholdHit := l.dailyRemaining != nil && *l.dailyRemaining < l.emergencyStopThreshold
	l.mu.Unlock()

	if minute != nil {
		// SetBurstAt is the closest honest mapping onto rate.Limiter's public
		// surface of "clamp admitted tokens to the server-observed minute
		// remaining" - it resets available burst at the current instant.
		l.limiter.SetBurstAt(time.Now(), *minute)
	}

	if thresholdHit {
		if l.logger != nil {
			l.logger.Warn("rate limiter emergency stop",
				zap.Int("daily_remaining", *daily),
				zap.Int("threshold", l.emergencyStopThreshold),
			)
		}
		return ErrEmergencyStop
	}
	return nil
}

// Quota returns the last observed quota snapshot.
func (l *Limiter) Quota() Quota {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Quota{DailyRemaining: l.dailyRemaining, MinuteRemaining: l.minuteRemaining}
}

func (l *Limiter) checkEmergencyStop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dailyRemaining != nil && *l.dailyRemaining < l.emergencyStopThreshold {
		return ErrEmergencyStop
	}
	return nil
}

func parseIntHeader(headers map[string]string, key string) *int {
	for k, v := range headers {
		if !equalFold(k, key) {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
