package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/AlexKimmel/askgate/internal/config"
	"github.com/AlexKimmel/askgate/internal/gateway"
	"github.com/AlexKimmel/askgate/internal/obs"
	"github.com/AlexKimmel/askgate/internal/provider"
	"github.com/AlexKimmel/askgate/internal/ratelimit"
	"github.com/AlexKimmel/askgate/internal/routing"
)

type Server struct {
	router  *chi.Mux
	http    *http.Server
	limiter ratelimit.Limiter
	stop    context.CancelFunc
	logger  zerolog.Logger
}

// Options carries collaborators that tests replace.
type Options struct {
	Version   string
	Registry  *prometheus.Registry
	Limiter   ratelimit.Limiter
	Completer gateway.Completer
}

// New assembles the router: ops endpoints plus one ask handler per route.
func New(cfg *config.Root, logger zerolog.Logger, opts Options) (*Server, error) {
	rr, err := routing.FromConfig(cfg.Routes)
	if err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(context.Background())

	lim := opts.Limiter
	if lim == nil {
		lim, err = NewLimiter(ctx, cfg, logger)
		if err != nil {
			stop()
			return nil, err
		}
	}

	llm := opts.Completer
	if llm == nil {
		llm = provider.New(provider.Config{
			BaseURL:     cfg.Provider.BaseURL,
			Model:       cfg.Provider.Model,
			Temperature: *cfg.Provider.Temperature,
			TopP:        *cfg.Provider.TopP,
			MaxTokens:   cfg.Provider.MaxTokens,
			Timeout:     cfg.Provider.Timeout(),
			APIKeyEnv:   cfg.Provider.APIKeyEnv,
		})
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics := obs.NewMetrics(reg)

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	r := chi.NewRouter()
	r.Use(obs.Logger(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(version))
	})
	r.Method(http.MethodGet, cfg.Observability.PrometheusPath, obs.Handler(reg))

	policy := ratelimit.Policy{Max: cfg.Limits.MaxRequests, Window: cfg.Limits.Window()}
	hooks := gateway.Hooks{
		OnLimited:      metrics.ObserveRateLimited,
		OnLimiterError: metrics.ObserveLimiterError,
		OnUpstream: func(routeID string, f provider.Failure, d time.Duration) {
			metrics.ObserveUpstream(routeID, string(f), d)
		},
	}

	for _, rt := range rr.Routes() {
		ask := gateway.NewAsk(gateway.AskConfig{
			Route:        rt,
			Policy:       policy,
			MaxBodyBytes: cfg.Server.MaxBody(),
			Hooks:        hooks,
		}, lim, llm)

		r.Handle(rt.Path, gateway.Chain(ask,
			routing.Tag(rt),
			obs.RouteField(),
			metrics.Middleware(),
		))
		logger.Info().
			Str("route", rt.ID).
			Str("path", rt.Path).
			Str("origin", rt.AllowedOrigin).
			Msg("route mounted")
	}

	return &Server{
		router:  r,
		limiter: lim,
		stop:    stop,
		logger:  logger,
		http: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout(),
			IdleTimeout:       cfg.Server.IdleTimeout(),
			ReadTimeout:       cfg.Server.ReadTimeout(),
		},
	}, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.http.Addr }

// ListenAndServe blocks until the server stops. A graceful Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then stops janitors and releases the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.stop()
	if cerr := s.limiter.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
