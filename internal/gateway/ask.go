package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AlexKimmel/askgate/internal/provider"
	"github.com/AlexKimmel/askgate/internal/ratelimit"
	"github.com/AlexKimmel/askgate/internal/routing"
	"github.com/rs/zerolog/hlog"
)

// Completer sends one system+prompt pair to the completion provider.
type Completer interface {
	Ask(ctx context.Context, system, prompt string) (string, error)
}

// Hooks are optional observers, typically wired to obs.Metrics.
type Hooks struct {
	OnLimited      func(routeID string)
	OnLimiterError func(routeID string)
	OnUpstream     func(routeID string, failure provider.Failure, d time.Duration)
}

type AskConfig struct {
	Route        *routing.Route
	Policy       ratelimit.Policy
	MaxBodyBytes int64
	Hooks        Hooks
	// Now is the limiter clock. Defaults to time.Now.
	Now func() time.Time
}

// Outcome is the result of the provider step: a reply or a tagged failure.
type Outcome struct {
	Reply   string
	Failure provider.Failure
	Err     error
}

func (o Outcome) OK() bool { return o.Failure == provider.FailureNone }

type ask struct {
	cfg   AskConfig
	route *routing.Route
	hooks Hooks
	lim   ratelimit.Limiter
	llm   Completer
	now   func() time.Time
}

// NewAsk returns the ask endpoint for one route: method gate, origin policy,
// body normalization, rate limiting, prompt extraction, provider call and
// response translation, in that order.
func NewAsk(cfg AskConfig, lim ratelimit.Limiter, llm Completer) http.Handler {
	a := &ask{
		cfg:   cfg,
		route: cfg.Route,
		hooks: cfg.Hooks,
		lim:   lim,
		llm:   llm,
		now:   cfg.Now,
	}
	if a.route == nil {
		a.route = &routing.Route{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return Chain(a,
		Recover(),
		CORS(a.route.AllowedOrigin),
		BodyLimit(cfg.MaxBodyBytes),
	)
}

func (a *ask) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	default:
		writeError(w, http.StatusMethodNotAllowed, msgMethod)
		return
	}

	raw, err := readBody(r)
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	body, err := DecodeBody(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	if !a.rateLimit(w, r) {
		return
	}

	prompt, ok := promptFrom(body)
	if !ok {
		writeError(w, http.StatusBadRequest, msgPrompt)
		return
	}

	out := a.complete(r, prompt)
	if !out.OK() {
		writeError(w, http.StatusInternalServerError, msgUpstream)
		return
	}
	writeJSON(w, http.StatusOK, replyBody{Reply: out.Reply})
}

// complete calls the provider and logs any failure detail. The detail never
// leaves the process.
func (a *ask) complete(r *http.Request, prompt string) Outcome {
	start := time.Now()
	reply, err := a.llm.Ask(r.Context(), a.route.SystemPrompt, prompt)
	out := Outcome{Reply: reply, Failure: provider.Classify(err), Err: err}

	if a.hooks.OnUpstream != nil {
		a.hooks.OnUpstream(a.route.ID, out.Failure, time.Since(start))
	}
	if out.OK() {
		return out
	}

	ev := hlog.FromRequest(r).Error().Err(err).
		Str("route", a.route.ID).
		Str("failure", string(out.Failure)).
		Dur("dur", time.Since(start))
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		ev = ev.Int("upstream_status", statusErr.StatusCode)
	}
	ev.Msg("OpenAI error")
	return out
}
