package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	BaseURL   string `mapstructure:"BASE_URL"`
	InputDir  string `mapstructure:"INPUT_DIR"`
	OutputDir string `mapstructure:"OUTPUT_DIR"`

	CaptureWorkers int `mapstructure:"CAPTURE_WORKERS"`
	ProcessWorkers int `mapstructure:"PROCESS_WORKERS"`
	CaptureTimeout int `mapstructure:"CAPTURE_TIMEOUT"` // in seconds
	CaptureWait    int `mapstructure:"CAPTURE_WAIT"`    // in seconds, settle time after page load

	MaxRetries        int `mapstructure:"MAX_RETRIES"`
	DeduplicationDays int `mapstructure:"DEDUPLICATION_DAYS"`

	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	PostgresURL string `mapstructure:"POSTGRES_URL"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present.
	// This allows configuration purely through environment variables.
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BASE_URL", "https://metroverse.hks.harvard.edu")
	viper.SetDefault("INPUT_DIR", "metroverse_data/raw_json")
	viper.SetDefault("OUTPUT_DIR", "metroverse_data/csv_tables")
	viper.SetDefault("CAPTURE_WORKERS", 2)
	viper.SetDefault("PROCESS_WORKERS", 4)
	viper.SetDefault("CAPTURE_TIMEOUT", 60)
	viper.SetDefault("CAPTURE_WAIT", 10)
	viper.SetDefault("MAX_RETRIES", 2)
	viper.SetDefault("DEDUPLICATION_DAYS", 2)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CaptureTimeoutDuration returns the page load timeout as a duration.
func (c *Config) CaptureTimeoutDuration() time.Duration {
	return time.Duration(c.CaptureTimeout) * time.Second
}

// CaptureWaitDuration returns the post-load settle time as a duration.
func (c *Config) CaptureWaitDuration() time.Duration {
	return time.Duration(c.CaptureWait) * time.Second
}

// DeduplicationExpiry returns how long a city capture suppresses re-capture.
func (c *Config) DeduplicationExpiry() time.Duration {
	return time.Duration(c.DeduplicationDays) * 24 * time.Hour
}
