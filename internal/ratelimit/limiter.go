package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned when a backend cannot serve the requested strategy.
var ErrUnsupported = errors.New("ratelimit: unsupported strategy for backend")

const (
	StrategyFixedWindow = "fixed_window"
	StrategyTokenBucket = "token_bucket"
)

type Policy struct {
	Max    int           // requests admitted per window
	Window time.Duration // window length
}

func (p Policy) Disabled() bool { return p.Max <= 0 || p.Window <= 0 }

type Decision struct {
	Allowed   bool
	Limit     int       // Policy.Max
	Count     int       // requests counted in the current window, this one included
	Remaining int       // requests left in the window (min 0)
	Reset     time.Time // when the current window ends
}

// RetryAfter is the wait until the window resets, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Reset.IsZero() || !d.Reset.After(now) {
		return 0
	}
	wait := d.Reset.Sub(now)
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return wait
}

type Limiter interface {
	Allow(ctx context.Context, key string, p Policy, now time.Time) (Decision, error)
	Close() error
}

// Admit reports whether key may proceed now. Backend errors deny.
func Admit(ctx context.Context, l Limiter, key string, p Policy) bool {
	dec, err := l.Allow(ctx, key, p, time.Now())
	return err == nil && dec.Allowed
}

// Decide builds a Decision for a fixed window that started at start and holds count requests.
func Decide(p Policy, count int, start time.Time) Decision {
	return Decision{
		Allowed:   count <= p.Max,
		Limit:     p.Max,
		Count:     count,
		Remaining: max(p.Max-count, 0),
		Reset:     start.Add(p.Window),
	}
}
