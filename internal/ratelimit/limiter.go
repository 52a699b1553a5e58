// Package ratelimit enforces per-identity request quotas over three
// fixed-size time buckets (minute, hour, day). Buckets are floor(now/size),
// which approximates a sliding window; the approximation is accepted — a
// burst straddling a bucket edge can briefly see up to 2x the ceiling.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Window identifies one of the three counter windows.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Ceilings holds the per-window request limits.
type Ceilings struct {
	PerMinute int64
	PerHour   int64
	PerDay    int64
}

// DefaultCeilings are the production quotas.
func DefaultCeilings() Ceilings {
	return Ceilings{PerMinute: 10, PerHour: 100, PerDay: 500}
}

// Result is the outcome of a single limiter check.
type Result struct {
	Allowed           bool
	Window            Window // window that rejected, empty when allowed
	Reason            string
	RetryAfterSeconds int              // 0 when allowed or when no hint applies (daily)
	Remaining         map[Window]int64 // post-increment headroom per window
	Degraded          bool             // store unreachable, request allowed fail-open
}

// Limiter checks all three windows with atomic increment-and-read calls.
type Limiter struct {
	store    CounterStore
	ceilings Ceilings
	logger   *zap.Logger
	now      func() time.Time // injectable for tests
}

func NewLimiter(store CounterStore, ceilings Ceilings, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:    store,
		ceilings: ceilings,
		logger:   logger,
		now:      time.Now,
	}
}

type windowSpec struct {
	window  Window
	size    time.Duration
	ceiling int64
}

func (l *Limiter) specs() []windowSpec {
	return []windowSpec{
		{WindowMinute, time.Minute, l.ceilings.PerMinute},
		{WindowHour, time.Hour, l.ceilings.PerHour},
		{WindowDay, 24 * time.Hour, l.ceilings.PerDay},
	}
}

// Check increments every window for the identity and rejects on the first
// ceiling exceeded. All three counters are incremented even when an earlier
// window rejects, so the hour/day totals stay honest across a blocked burst.
//
// Fail-open: a store error allows the request. Availability to real users
// outranks strict quota enforcement when the counter backend is degraded;
// the degraded mode is logged and flagged on the Result, never swallowed.
func (l *Limiter) Check(ctx context.Context, identityID string) Result {
	now := l.now()
	res := Result{Allowed: true, Remaining: make(map[Window]int64, 3)}

	for _, spec := range l.specs() {
		bucket := now.Unix() / int64(spec.size.Seconds())
		key := fmt.Sprintf("rl:%s:%s:%d", identityID, spec.window, bucket)

		// TTL is 2x the window so cleanup is eventual and never races a
		// still-live bucket.
		count, err := l.store.IncrementAndGet(ctx, key, 2*spec.size)
		if err != nil {
			l.logger.Warn("rate limit store unreachable, failing open",
				zap.String("identity_id", identityID),
				zap.String("window", string(spec.window)),
				zap.Error(err),
			)
			res.Degraded = true
			continue
		}

		remaining := spec.ceiling - count
		if remaining < 0 {
			remaining = 0
		}
		res.Remaining[spec.window] = remaining

		if count > spec.ceiling && res.Allowed {
			res.Allowed = false
			res.Window = spec.window
			switch spec.window {
			case WindowMinute:
				res.RetryAfterSeconds = 60 - int(now.Unix()%60)
				res.Reason = "too many requests this minute, please wait a moment"
			case WindowHour:
				res.RetryAfterSeconds = 3600 - int(now.Unix()%3600)
				res.Reason = "hourly request limit reached, please try later"
			case WindowDay:
				// No retry hint for the daily window — message only.
				res.Reason = "daily request limit reached, please come back tomorrow"
			}
		}
	}

	return res
}
