package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	BackoffMaxElapsedTime time.Duration                = 5 * time.Minute
	Timeout               time.Duration                = 5000 * time.Millisecond
	GlobalConfigCallback  ConfigCallback[GlobalConfig] = ConfigCallback[GlobalConfig]{}
	CfgFlag                                            = flag.String("config", "config.toml", "Configuration file (toml format)")
)

func init() {
	GlobalConfigCallback.AddCallback(func(config GlobalConfig) {
		tCfg := config.TimeoutConfig()

		if tCfg.BackoffMaxElapsedTimeSeconds != nil {
			BackoffMaxElapsedTime = time.Duration(*tCfg.BackoffMaxElapsedTimeSeconds) * time.Second
		}

		if tCfg.TimeoutMillis > 0 {
			Timeout = time.Duration(tCfg.TimeoutMillis) * time.Millisecond
		}
	})
}

type GlobalConfig interface {
	LoggerConfig() LoggerConfig
	TimeoutConfig() TimeoutConfig
}

type Config struct {
	API        APIConfig        `toml:"api"`
	DB         DBConfig         `toml:"db"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Logger     LoggerConfig     `toml:"logger"`
	Monitoring MonitoringConfig `toml:"monitoring"`
	Timeout    TimeoutConfig    `toml:"timeout"`
}

type LoggerConfig struct {
	Level       string `toml:"level"` // valid values are: DEBUG, INFO, WARN, ERROR, DPANIC, PANIC, FATAL (zap)
	File        string `toml:"file"`
	MaxFileSize int    `toml:"max_file_size"` // In megabytes
	Console     bool   `toml:"console"`
}

type DBConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Database   string `toml:"database"`
	Schema     string `toml:"schema"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	LogQueries bool   `toml:"log_queries"`
}

type APIConfig struct {
	Key                  string `toml:"key"`
	BaseURL              string `toml:"base_url"`
	TimeoutMillis        int    `toml:"timeout_millis"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"`
	Burst                int    `toml:"burst"`
	MaxAttempts          uint64 `toml:"max_attempts"`
	BackoffInitialMillis int    `toml:"backoff_initial_millis"`
	BackoffMaxMillis     int    `toml:"backoff_max_millis"`
}

type PipelineConfig struct {
	DefaultSymbols []string `toml:"default_symbols"`
	NumWorkers     int      `toml:"num_workers"`
	ChunkSize      int      `toml:"chunk_size"`
	HistoricalDays int      `toml:"historical_days"`
}

type MonitoringConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type TimeoutConfig struct {
	BackoffMaxElapsedTimeSeconds *int `toml:"backoff_max_elapsed_time_seconds"`
	TimeoutMillis                int  `toml:"timeout_millis"`
}

func BuildConfig() (*Config, error) {
	cfgFileName := *CfgFlag

	cfg := &Config{Pipeline: PipelineConfig{}}
	err := parseConfigFile(cfg, cfgFileName)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func parseConfigFile(cfg *Config, fileName string) error {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}

	_, err = toml.Decode(string(content), cfg)
	if err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

// Secrets do not have to live in the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://financialmodelingprep.com/stable"
	}
	if cfg.API.TimeoutMillis <= 0 {
		cfg.API.TimeoutMillis = 5000
	}
	if cfg.API.MaxRequestsPerMinute <= 0 {
		cfg.API.MaxRequestsPerMinute = 60
	}
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = 1
	}
	if cfg.API.MaxAttempts == 0 {
		cfg.API.MaxAttempts = 3
	}
	if cfg.API.BackoffInitialMillis <= 0 {
		cfg.API.BackoffInitialMillis = 500
	}
	if cfg.API.BackoffMaxMillis <= 0 {
		cfg.API.BackoffMaxMillis = 10000
	}
	if cfg.Pipeline.NumWorkers <= 0 {
		cfg.Pipeline.NumWorkers = 4
	}
	if cfg.Pipeline.ChunkSize <= 0 {
		cfg.Pipeline.ChunkSize = 500
	}
	if cfg.Pipeline.HistoricalDays <= 0 {
		cfg.Pipeline.HistoricalDays = 30
	}
	if cfg.Monitoring.Addr == "" {
		cfg.Monitoring.Addr = ":8080"
	}
}

// Validate checks every value the pipeline cannot run without. It runs
// before any outbound request or database connection is made.
func (c *Config) Validate() error {
	if c.API.Key == "" {
		return fmt.Errorf("missing API key (api.key or API_KEY env)")
	}
	if len(c.Pipeline.DefaultSymbols) == 0 {
		return fmt.Errorf("pipeline.default_symbols must not be empty")
	}
	if c.DB.Host == "" || c.DB.Database == "" || c.DB.Username == "" {
		return fmt.Errorf("db.host, db.database and db.username are required")
	}
	return nil
}

func (c Config) LoggerConfig() LoggerConfig {
	return c.Logger
}

func (c Config) TimeoutConfig() TimeoutConfig {
	return c.Timeout
}
