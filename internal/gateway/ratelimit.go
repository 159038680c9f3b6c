package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"
)

// rateLimit counts the request against the client's window. It writes the
// rejection itself and reports false when the pipeline must stop.
func (a *ask) rateLimit(w http.ResponseWriter, r *http.Request) bool {
	if a.cfg.Policy.Disabled() {
		return true
	}

	now := a.now()
	client := ClientAddress(r)

	// limiter key = routeID:client (per-route per-client)
	key := client
	if a.route.ID != "" {
		key = a.route.ID + ":" + client
	}

	dec, err := a.lim.Allow(r.Context(), key, a.cfg.Policy, now)
	if err != nil {
		if a.hooks.OnLimiterError != nil {
			a.hooks.OnLimiterError(a.route.ID)
		}
		hlog.FromRequest(r).Error().Err(err).
			Str("route", a.route.ID).
			Str("client", client).
			Msg("rate limiter error")
		writeError(w, http.StatusInternalServerError, msgLimiter)
		return false
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(dec.Remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.Reset.Unix(), 10))

	if !dec.Allowed {
		if a.hooks.OnLimited != nil {
			a.hooks.OnLimited(a.route.ID)
		}
		if wait := dec.RetryAfter(now); wait > 0 {
			h.Set("Retry-After", strconv.Itoa(int(wait/time.Second)))
		}
		hlog.FromRequest(r).Debug().
			Str("route", a.route.ID).
			Str("client", client).
			Int("count", dec.Count).
			Msg("rate limited")
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
		return false
	}
	return true
}
