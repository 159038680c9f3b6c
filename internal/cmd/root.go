package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by main with values injected through ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "askgate",
	Short: "Rate-limited gateway in front of a chat completion API",
	Long: `askgate accepts {"prompt": "..."} over HTTP, applies a per-client
rate limit and forwards the prompt, with a fixed per-route persona, to an
OpenAI-compatible chat completion endpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "./config.yaml", "config file (missing file means defaults)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override: debug, info, warn, error")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig enables ASKGATE_* environment overrides for every bound flag.
func initConfig() {
	viper.SetEnvPrefix("askgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
