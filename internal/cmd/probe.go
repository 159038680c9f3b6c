package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlexKimmel/askgate/internal/config"
)

var (
	probeURL     string
	probePrompt  string
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "POST a prompt to a running gateway and print the reply",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := probeURL
		if !cmd.Flags().Changed("url") {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			url = defaultProbeURL(cfg)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
		defer cancel()
		return runProbe(ctx, http.DefaultClient, url, probePrompt, cmd.OutOrStdout())
	},
}

type probeReply struct {
	Reply string `json:"reply"`
	Error string `json:"error"`
}

func runProbe(ctx context.Context, client *http.Client, url, prompt string, out io.Writer) error {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}

	var body probeReply
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("status %d: unexpected body %q", resp.StatusCode, raw)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body.Error)
	}
	_, err = fmt.Fprintln(out, body.Reply)
	return err
}

// defaultProbeURL points at the first route of a server started with cfg.
func defaultProbeURL(cfg *config.Root) string {
	host, port, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil {
		host, port = "", "8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + cfg.Routes[0].Path
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVar(&probeURL, "url", defaultProbeURL(config.Default()), "ask endpoint to call (default derived from --config)")
	probeCmd.Flags().StringVar(&probePrompt, "prompt", "Hello! Can you introduce yourself?", "prompt to send")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 60*time.Second, "overall request timeout")
}
