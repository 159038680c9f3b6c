package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\nobservability:\n  log_level: warn\n"), 0o600))

	t.Setenv("ASKGATE_CONFIG", path)
	t.Setenv("ASKGATE_ADDR", ":3000")
	t.Setenv("ASKGATE_LOG_LEVEL", "debug")
	viper.Reset()
	t.Cleanup(viper.Reset)
	initConfig()

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.Server.Addr)
	require.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoadConfig_FileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o600))

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, "info", cfg.Observability.LogLevel)
}
