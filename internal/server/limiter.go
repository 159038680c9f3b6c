package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AlexKimmel/askgate/internal/config"
	"github.com/AlexKimmel/askgate/internal/ratelimit"
	"github.com/AlexKimmel/askgate/internal/ratelimit/memory"
	"github.com/AlexKimmel/askgate/internal/ratelimit/redisstore"
	"github.com/AlexKimmel/askgate/internal/ratelimit/tokenbucket"
)

// NewLimiter builds the limiter selected by limits.backend and limits.strategy.
// In-memory janitors run until ctx is done.
func NewLimiter(ctx context.Context, cfg *config.Root, logger zerolog.Logger) (ratelimit.Limiter, error) {
	lc := cfg.Limits

	switch lc.Backend {
	case config.BackendRedis:
		if lc.Strategy != config.StrategyFixed {
			return nil, fmt.Errorf("%w: %s on %s", ratelimit.ErrUnsupported, lc.Strategy, lc.Backend)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Str("prefix", cfg.Redis.Prefix).Msg("rate limiter: redis fixed window")
		return redisstore.New(rdb, redisstore.WithPrefix(cfg.Redis.Prefix), redisstore.WithCloser(rdb.Close)), nil

	case config.BackendMemory:
		if lc.Strategy == config.StrategyTokenBucket {
			tb := tokenbucket.New(lc.IdleTTL())
			tb.StartJanitor(ctx, lc.JanitorEvery())
			logger.Info().Msg("rate limiter: in-memory token bucket")
			return tb, nil
		}
		mem := memory.New(memory.WithIdleTTL(lc.IdleTTL()))
		mem.StartJanitor(ctx, lc.JanitorEvery(), lc.Window())
		logger.Info().Msg("rate limiter: in-memory fixed window")
		return mem, nil
	}
	return nil, fmt.Errorf("unknown limiter backend %q", lc.Backend)
}
