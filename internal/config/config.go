package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRouteID   = "ask"
	DefaultRoutePath = "/api/ask"
	DefaultOrigin    = "http://localhost:5173"
	DefaultAssistant = "You are a helpful, friendly, and knowledgeable AI assistant. Your goal is to answer user questions naturally and accurately, like ChatGPT. Use a conversational tone. Ask clarifying questions when needed. Be detailed but clear."

	BackendMemory = "memory"
	BackendRedis  = "redis"

	StrategyFixed       = "fixed_window"
	StrategyTokenBucket = "token_bucket"
)

type Server struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	IdleTimeoutMS  int    `yaml:"idle_timeout_ms"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
}

type Observability struct {
	LogLevel       string `yaml:"log_level"`       // "debug","info","warn","error"
	PrometheusPath string `yaml:"prometheus_path"` // e.g. "/metrics"
}

type Limits struct {
	MaxRequests    int    `yaml:"max_requests"`
	WindowMS       int    `yaml:"window_ms"`
	Strategy       string `yaml:"strategy"` // fixed_window | token_bucket
	Backend        string `yaml:"backend"`  // memory | redis
	JanitorEveryMS int    `yaml:"janitor_every_ms"`
	IdleTTLMS      int    `yaml:"idle_ttl_ms"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Provider struct {
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	TimeoutMS   int      `yaml:"timeout_ms"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// Route is one mounted ask endpoint. Routes differ only in persona and origin.
type Route struct {
	ID            string `yaml:"id"`
	Path          string `yaml:"path"`
	AllowedOrigin string `yaml:"allowed_origin"`
	SystemPrompt  string `yaml:"system_prompt"`
}

type Root struct {
	Server        Server        `yaml:"server"`
	Observability Observability `yaml:"observability"`
	Limits        Limits        `yaml:"limits"`
	Redis         Redis         `yaml:"redis"`
	Provider      Provider      `yaml:"provider"`
	Routes        []Route       `yaml:"routes"`
}

func (s Server) ReadTimeout() time.Duration {
	if s.ReadTimeoutMS == 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout must outlive the provider call, so its default is generous.
func (s Server) WriteTimeout() time.Duration {
	if s.WriteTimeoutMS == 0 {
		return 60 * time.Second
	}
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

func (s Server) IdleTimeout() time.Duration {
	if s.IdleTimeoutMS == 0 {
		return 60 * time.Second
	}
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

func (s Server) MaxBody() int64 {
	if s.MaxBodyBytes == 0 {
		return 1 << 20
	}
	return s.MaxBodyBytes
} // default 1MB

func (l Limits) Window() time.Duration { return time.Duration(l.WindowMS) * time.Millisecond }

func (l Limits) JanitorEvery() time.Duration {
	return time.Duration(l.JanitorEveryMS) * time.Millisecond
}

func (l Limits) IdleTTL() time.Duration { return time.Duration(l.IdleTTLMS) * time.Millisecond }

func (p Provider) Timeout() time.Duration { return time.Duration(p.TimeoutMS) * time.Millisecond }

// Default returns the configuration used when no file is present.
func Default() *Root {
	var cfg Root
	cfg.applyDefaults()
	return &cfg
}

// Load reads path and applies defaults. A missing file yields Default().
func Load(path string) (*Root, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ptr(f float64) *float64 { return &f }

func (cfg *Root) applyDefaults() {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	}

	if cfg.Limits.MaxRequests == 0 {
		cfg.Limits.MaxRequests = 10
	}
	if cfg.Limits.WindowMS == 0 {
		cfg.Limits.WindowMS = 60_000
	}
	cfg.Limits.Strategy = strings.ToLower(strings.TrimSpace(cfg.Limits.Strategy))
	if cfg.Limits.Strategy == "" {
		cfg.Limits.Strategy = StrategyFixed
	}
	cfg.Limits.Backend = strings.ToLower(strings.TrimSpace(cfg.Limits.Backend))
	if cfg.Limits.Backend == "" {
		cfg.Limits.Backend = BackendMemory
	}
	if cfg.Limits.JanitorEveryMS == 0 {
		cfg.Limits.JanitorEveryMS = 120_000
	}
	if cfg.Limits.IdleTTLMS == 0 {
		cfg.Limits.IdleTTLMS = 600_000
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "askgate:ratelimit"
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "gpt-4o"
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = 30_000
	}
	if cfg.Provider.Temperature == nil {
		cfg.Provider.Temperature = ptr(1.0)
	}
	if cfg.Provider.TopP == nil {
		cfg.Provider.TopP = ptr(1.0)
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = 2048
	}

	if len(cfg.Routes) == 0 {
		cfg.Routes = []Route{{ID: DefaultRouteID, Path: DefaultRoutePath}}
	}
	for i := range cfg.Routes {
		rt := &cfg.Routes[i]
		if rt.Path == "" {
			rt.Path = DefaultRoutePath
		}
		if rt.ID == "" {
			rt.ID = strings.Trim(strings.ReplaceAll(rt.Path, "/", "_"), "_")
		}
		if rt.AllowedOrigin == "" {
			rt.AllowedOrigin = DefaultOrigin
		}
		if rt.SystemPrompt == "" {
			rt.SystemPrompt = DefaultAssistant
		}
	}
}

// Validate rejects combinations the gateway cannot serve.
func (cfg *Root) Validate() error {
	if cfg.Limits.MaxRequests < 0 || cfg.Limits.WindowMS < 0 {
		return errors.New("limits: max_requests and window_ms must be >= 0")
	}
	switch cfg.Limits.Strategy {
	case StrategyFixed, StrategyTokenBucket:
	default:
		return fmt.Errorf("limits: unknown strategy %q", cfg.Limits.Strategy)
	}
	switch cfg.Limits.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Limits.Strategy != StrategyFixed {
			return fmt.Errorf("limits: backend %q only supports %s", BackendRedis, StrategyFixed)
		}
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return errors.New("redis: addr is required when limits.backend is redis")
		}
	default:
		return fmt.Errorf("limits: unknown backend %q", cfg.Limits.Backend)
	}

	seen := make(map[string]string, len(cfg.Routes))
	for _, rt := range cfg.Routes {
		if !strings.HasPrefix(rt.Path, "/") {
			return fmt.Errorf("route %q: path must start with /", rt.ID)
		}
		if other, ok := seen[rt.Path]; ok {
			return fmt.Errorf("routes %q and %q share path %s", other, rt.ID, rt.Path)
		}
		seen[rt.Path] = rt.ID
	}
	return nil
}
