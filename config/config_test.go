package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[api]
key = "file-key"
max_requests_per_minute = 120
burst = 5

[db]
host = "localhost"
port = 5432
database = "commodities"
username = "pipeline"
password = "file-secret"

[pipeline]
default_symbols = ["GCUSD", "SIUSD", "BZUSD"]
num_workers = 8

[logger]
level = "DEBUG"
console = true

[monitoring]
enabled = true
addr = ":9102"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfigFile(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, parseConfigFile(cfg, writeConfig(t, sampleConfig)))

	require.Equal(t, "file-key", cfg.API.Key)
	require.Equal(t, 120, cfg.API.MaxRequestsPerMinute)
	require.Equal(t, 5, cfg.API.Burst)
	require.Equal(t, "commodities", cfg.DB.Database)
	require.Equal(t, []string{"GCUSD", "SIUSD", "BZUSD"}, cfg.Pipeline.DefaultSymbols)
	require.Equal(t, 8, cfg.Pipeline.NumWorkers)
	require.Equal(t, "DEBUG", cfg.Logger.Level)
	require.True(t, cfg.Monitoring.Enabled)
	require.Equal(t, ":9102", cfg.Monitoring.Addr)
}

func TestParseConfigFileMissing(t *testing.T) {
	cfg := &Config{}
	err := parseConfigFile(cfg, filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "error opening config file")
}

func TestParseConfigFileMalformed(t *testing.T) {
	cfg := &Config{}
	err := parseConfigFile(cfg, writeConfig(t, "[api\nkey ="))
	require.Error(t, err)
	require.Contains(t, err.Error(), "error parsing config file")
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("API_KEY", "env-key")
	t.Setenv("DB_PASSWORD", "env-secret")

	cfg := &Config{}
	require.NoError(t, parseConfigFile(cfg, writeConfig(t, sampleConfig)))
	applyEnvOverrides(cfg)

	require.Equal(t, "env-key", cfg.API.Key)
	require.Equal(t, "env-secret", cfg.DB.Password)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	require.Equal(t, "https://financialmodelingprep.com/stable", cfg.API.BaseURL)
	require.Equal(t, 5000, cfg.API.TimeoutMillis)
	require.Equal(t, 60, cfg.API.MaxRequestsPerMinute)
	require.Equal(t, 1, cfg.API.Burst)
	require.Equal(t, uint64(3), cfg.API.MaxAttempts)
	require.Equal(t, 4, cfg.Pipeline.NumWorkers)
	require.Equal(t, 500, cfg.Pipeline.ChunkSize)
	require.Equal(t, 30, cfg.Pipeline.HistoricalDays)
	require.Equal(t, ":8080", cfg.Monitoring.Addr)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.API.MaxRequestsPerMinute = 300
	cfg.Pipeline.ChunkSize = 50
	applyDefaults(cfg)

	require.Equal(t, 300, cfg.API.MaxRequestsPerMinute)
	require.Equal(t, 50, cfg.Pipeline.ChunkSize)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, parseConfigFile(cfg, writeConfig(t, sampleConfig)))
	require.NoError(t, cfg.Validate())

	missingKey := *cfg
	missingKey.API.Key = ""
	require.ErrorContains(t, missingKey.Validate(), "API key")

	noSymbols := *cfg
	noSymbols.Pipeline.DefaultSymbols = nil
	require.ErrorContains(t, noSymbols.Validate(), "default_symbols")

	noDB := *cfg
	noDB.DB.Host = ""
	require.ErrorContains(t, noDB.Validate(), "db.host")
}
