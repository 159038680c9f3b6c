// Package redisstore keeps fixed-window counters in Redis so that several
// gateway instances share one allowance per client. Requires Redis >= 7
// for EXPIRE NX.
package redisstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlexKimmel/askgate/internal/ratelimit"
)

type Limiter struct {
	rdb    redis.Cmdable
	prefix string
	closer func() error
}

type Option func(*Limiter)

func WithPrefix(prefix string) Option {
	return func(l *Limiter) { l.prefix = strings.Trim(prefix, ":") }
}

// WithCloser sets the function Close calls, typically the client's Close.
func WithCloser(fn func() error) Option {
	return func(l *Limiter) { l.closer = fn }
}

func New(rdb redis.Cmdable, opts ...Option) *Limiter {
	l := &Limiter{
		rdb:    rdb,
		prefix: "askgate:ratelimit",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}

func (l *Limiter) key(k string) string { return l.prefix + ":" + k }

// Allow counts the request in one MULTI/EXEC: INCR, set the expiry only
// when the key is new, then read the remaining TTL.
func (l *Limiter) Allow(ctx context.Context, key string, p ratelimit.Policy, now time.Time) (ratelimit.Decision, error) {
	if p.Disabled() {
		return ratelimit.Decision{Allowed: true}, nil
	}

	k := l.key(key)
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, p.Window)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("redis fixed window %q: %w", key, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		ttl = p.Window
	}
	start := now.Add(ttl - p.Window)

	return ratelimit.Decide(p, int(incr.Val()), start), nil
}
