package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AlexKimmel/askgate/internal/ratelimit"
)

// window is one client's fixed-window counter.
type window struct {
	mu    sync.Mutex
	count int
	start time.Time
	dead  bool // removed from the table by Sweep
}

// Limiter is an in-process fixed-window limiter. Each key has its own
// mutex so concurrent requests from one client never lose an increment.
type Limiter struct {
	windows sync.Map // key -> *window
	idleTTL time.Duration
}

type Option func(*Limiter)

// WithIdleTTL sets how long an expired window is kept before Sweep drops it.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = d }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{idleTTL: 10 * time.Minute}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Close() error { return nil }

func (l *Limiter) Allow(_ context.Context, key string, p ratelimit.Policy, now time.Time) (ratelimit.Decision, error) {
	if p.Disabled() {
		return ratelimit.Decision{Allowed: true}, nil
	}

	for {
		v, _ := l.windows.LoadOrStore(key, &window{})
		w := v.(*window)

		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}

		if w.count == 0 || now.Sub(w.start) > p.Window {
			w.count = 1
			w.start = now
		} else {
			w.count++
		}
		dec := ratelimit.Decide(p, w.count, w.start)
		w.mu.Unlock()

		return dec, nil
	}
}

// Count returns the current count for key, 0 if unknown.
func (l *Limiter) Count(key string) int {
	v, ok := l.windows.Load(key)
	if !ok {
		return 0
	}
	w := v.(*window)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	n := 0
	l.windows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep drops windows that started more than span+idleTTL before now.
// A dropped client starts a fresh window on its next request, which is
// what an expired window would do anyway.
func (l *Limiter) Sweep(now time.Time, span time.Duration) int {
	cutoff := now.Add(-(span + l.idleTTL))
	removed := 0

	l.windows.Range(func(k, v any) bool {
		w := v.(*window)
		w.mu.Lock()
		if !w.start.IsZero() && w.start.Before(cutoff) {
			w.dead = true
			l.windows.Delete(k)
			removed++
		}
		w.mu.Unlock()
		return true
	})
	return removed
}

// StartJanitor sweeps every interval until ctx is done.
func (l *Limiter) StartJanitor(ctx context.Context, every, span time.Duration) {
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
				l.Sweep(now, span)
			}
		}
	}()
}
