// Package tokenbucket spreads a policy's allowance evenly over its window
// instead of resetting it at window boundaries. Max requests may still
// arrive in one burst, after which the bucket refills at Max/Window.
package tokenbucket

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AlexKimmel/askgate/internal/ratelimit"
)

type entry struct {
	lim      *rate.Limiter
	policy   ratelimit.Policy
	lastSeen time.Time
}

type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	idleTTL time.Duration
}

func New(idleTTL time.Duration) *Limiter {
	if idleTTL <= 0 {
		idleTTL = 15 * time.Minute
	}
	return &Limiter{
		entries: make(map[string]*entry),
		idleTTL: idleTTL,
	}
}

func (l *Limiter) Close() error { return nil }

func (l *Limiter) get(key string, p ratelimit.Policy, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok && e.policy == p {
		e.lastSeen = now
		return e.lim
	}

	every := rate.Every(p.Window / time.Duration(p.Max))
	lim := rate.NewLimiter(every, p.Max)
	l.entries[key] = &entry{lim: lim, policy: p, lastSeen: now}
	return lim
}

func (l *Limiter) Allow(_ context.Context, key string, p ratelimit.Policy, now time.Time) (ratelimit.Decision, error) {
	if p.Disabled() {
		return ratelimit.Decision{Allowed: true}, nil
	}

	lim := l.get(key, p, now)
	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// admitted: time until the bucket is full again; denied: time until the next token
	missing := float64(p.Max) - tokens
	if !allowed {
		missing = 1 - tokens
	}
	reset := now
	if missing > 0 {
		reset = now.Add(time.Duration(missing / float64(lim.Limit()) * float64(time.Second)))
	}

	return ratelimit.Decision{
		Allowed:   allowed,
		Limit:     p.Max,
		Count:     p.Max - remaining,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}

// Cleanup drops buckets not used for idleTTL.
func (l *Limiter) Cleanup(now time.Time) int {
	cutoff := now.Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (l *Limiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.Cleanup(now)
			}
		}
	}()
}
