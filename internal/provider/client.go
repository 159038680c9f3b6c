package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"

	maxResponseBytes = 4 << 20
)

type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
	// APIKeyEnv names the environment variable holding the bearer key.
	// It is read on every call so a rotated key needs no restart.
	APIKeyEnv string
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg        Config
	HTTPClient *http.Client
	Getenv     func(string) string
}

// NewHTTPTransport returns a pooled transport with bounded dial and TLS handshakes.
func NewHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Client{
		cfg:        cfg,
		HTTPClient: &http.Client{Transport: NewHTTPTransport()},
		Getenv:     os.Getenv,
	}
}

func (c *Client) Model() string { return c.cfg.Model }

// NewRequest pairs a system instruction with the user's prompt using the
// configured model and sampling parameters.
func (c *Client) NewRequest(system, prompt string) *CompletionRequest {
	return &CompletionRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        c.cfg.TopP,
	}
}

// Ask sends system+prompt and returns the first generated message.
func (c *Client) Ask(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.Complete(ctx, c.NewRequest(system, prompt))
	if err != nil {
		return "", err
	}
	text, ok := resp.Text()
	if !ok {
		return "", &ParseError{Cause: errors.New("no message in first choice")}
	}
	return text, nil
}

// Complete performs one chat completion call. It never retries.
func (c *Client) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	key := strings.TrimSpace(c.Getenv(c.cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%w (%s)", ErrMissingCredential, c.cfg.APIKeyEnv)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: c.cfg.Timeout}
		}
		return nil, &TransportError{Cause: err}
	}
	defer resp.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: c.cfg.Timeout}
		}
		return nil, &TransportError{Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed CompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ParseError{Raw: string(raw), Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ParseError{Raw: string(raw), Cause: errors.New("no choices in response")}
	}
	if parsed.Choices[0].Message == nil {
		return nil, &ParseError{Raw: string(raw), Cause: errors.New("no message in first choice")}
	}
	return &parsed, nil
}
