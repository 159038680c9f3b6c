package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlexKimmel/askgate/internal/config"
	"github.com/AlexKimmel/askgate/internal/ratelimit/memory"
)

type staticCompleter string

func (s staticCompleter) Ask(context.Context, string, string) (string, error) {
	return string(s), nil
}

func newTestServer(t *testing.T, cfg *config.Root, opts Options) *httptest.Server {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	s, err := New(cfg, zerolog.Nop(), opts)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestServer_OpsEndpoints(t *testing.T) {
	ts := newTestServer(t, config.Default(), Options{Version: "v1.2.3", Completer: staticCompleter("hi")})

	code, body := get(t, ts.URL+"/health")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"ok":true}`, body)

	code, body = get(t, ts.URL+"/version")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "v1.2.3", body)
}

func TestServer_AskRouteWithRealProvider(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello"}}]}`))
	}))
	defer upstream.Close()

	t.Setenv("ASKGATE_TEST_KEY", "sk-test")
	cfg := config.Default()
	cfg.Provider.BaseURL = upstream.URL
	cfg.Provider.APIKeyEnv = "ASKGATE_TEST_KEY"

	ts := newTestServer(t, cfg, Options{})

	resp, err := http.Post(ts.URL+"/api/ask", "application/json", strings.NewReader(`{"prompt":"hello?"}`))
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck
	b, _ := io.ReadAll(resp.Body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"reply":"Hello"}`, string(b))
	require.Equal(t, config.DefaultOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_RoutesHaveOwnOriginAndAllowance(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxRequests = 1
	cfg.Routes = []config.Route{
		{ID: "chat", Path: "/api/chat", AllowedOrigin: "*", SystemPrompt: "a"},
		{ID: "tutor", Path: "/api/tutor", AllowedOrigin: "https://example.edu", SystemPrompt: "b"},
	}
	lim := memory.New()
	ts := newTestServer(t, cfg, Options{Completer: staticCompleter("ok"), Limiter: lim})

	post := func(path string) *http.Response {
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(`{"prompt":"p"}`))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp
	}

	chat := post("/api/chat")
	require.Equal(t, http.StatusOK, chat.StatusCode)
	require.Equal(t, "*", chat.Header.Get("Access-Control-Allow-Origin"))

	tutor := post("/api/tutor")
	require.Equal(t, http.StatusOK, tutor.StatusCode)
	require.Equal(t, "https://example.edu", tutor.Header.Get("Access-Control-Allow-Origin"))

	require.Equal(t, http.StatusTooManyRequests, post("/api/chat").StatusCode)
	require.Equal(t, 2, lim.Len())
}

func TestServer_MetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, config.Default(), Options{Completer: staticCompleter("ok")})

	resp, err := http.Post(ts.URL+"/api/ask", "application/json", strings.NewReader(`{"prompt":"p"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()

	code, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `askgate_requests_total{code="200",method="POST",route="ask"} 1`)
	require.Contains(t, body, `askgate_upstream_duration_seconds_count{route="ask"} 1`)
}

func TestNewLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	lim, err := NewLimiter(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &memory.Limiter{}, lim)

	cfg.Limits.Strategy = config.StrategyTokenBucket
	lim, err = NewLimiter(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, lim)

	cfg.Limits.Backend = config.BackendRedis
	_, err = NewLimiter(ctx, cfg, zerolog.Nop())
	require.Error(t, err)

	cfg.Limits.Backend = "etcd"
	_, err = NewLimiter(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
}
