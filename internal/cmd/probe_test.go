package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlexKimmel/askgate/internal/config"
)

func TestRunProbe_PrintsReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Who are you?", body["prompt"])
		_, _ = w.Write([]byte(`{"reply":"An assistant."}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, runProbe(context.Background(), srv.Client(), srv.URL, "Who are you?", &out))
	require.Equal(t, "An assistant.\n", out.String())
}

func TestRunProbe_ReportsErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Rate limit exceeded. Try again later."}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runProbe(context.Background(), srv.Client(), srv.URL, "hi", &out)
	require.EqualError(t, err, "status 429: Rate limit exceeded. Try again later.")
	require.Empty(t, out.String())
}

func TestRunProbe_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	err := runProbe(context.Background(), srv.Client(), srv.URL, "hi", &bytes.Buffer{})
	require.ErrorContains(t, err, "status 502")
}

func TestDefaultProbeURL_MatchesServeDefaults(t *testing.T) {
	require.Equal(t, "http://localhost:8080/api/ask", defaultProbeURL(config.Default()))

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:3000"
	cfg.Routes[0].Path = "/api/chat"
	require.Equal(t, "http://127.0.0.1:3000/api/chat", defaultProbeURL(cfg))
}
