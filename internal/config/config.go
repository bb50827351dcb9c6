package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. CASCADE_LOG_LEVEL
const EnvPrefix = "CASCADE"

// Config represents the cascade configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Journal JournalConfig `mapstructure:"journal"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Output  OutputConfig  `mapstructure:"output"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JournalConfig represents journal database configuration
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// StreamConfig represents the viewer stream server configuration
type StreamConfig struct {
	Address  string        `mapstructure:"address"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Interval time.Duration `mapstructure:"interval"`
}

// OutputConfig represents terminal output configuration
type OutputConfig struct {
	NoColor bool `mapstructure:"no_color"`
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"console", "json", "nop"}
	validDrivers = []string{"sqlite3", "pgx", "postgres"}
)

// Load loads the configuration from path, or from cascade.yml/cascade.yaml
// in the working directory when path is empty. A missing default file is not
// an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.driver", "sqlite3")
	v.SetDefault("journal.dsn", "cascade.db")
	v.SetDefault("stream.address", "localhost:8080")
	v.SetDefault("stream.secret", "")
	v.SetDefault("stream.token_ttl", time.Hour)
	v.SetDefault("stream.interval", 2*time.Second)
	v.SetDefault("output.no_color", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cascade")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration used when nothing is configured
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info", Format: "console"},
		Journal: JournalConfig{Driver: "sqlite3", DSN: "cascade.db"},
		Stream:  StreamConfig{Address: "localhost:8080", TokenTTL: time.Hour, Interval: 2 * time.Second},
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !contains(validLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level must be one of %s, got: %s", strings.Join(validLevels, ", "), cfg.Log.Level)
	}
	if !contains(validFormats, cfg.Log.Format) {
		return fmt.Errorf("log.format must be one of %s, got: %s", strings.Join(validFormats, ", "), cfg.Log.Format)
	}
	if !contains(validDrivers, cfg.Journal.Driver) {
		return fmt.Errorf("journal.driver must be one of %s, got: %s", strings.Join(validDrivers, ", "), cfg.Journal.Driver)
	}
	if cfg.Journal.Enabled && cfg.Journal.DSN == "" {
		return fmt.Errorf("journal.dsn is required when the journal is enabled")
	}
	if cfg.Stream.Address == "" {
		return fmt.Errorf("stream.address must not be empty")
	}
	if cfg.Stream.TokenTTL <= 0 {
		return fmt.Errorf("stream.token_ttl must be positive, got: %s", cfg.Stream.TokenTTL)
	}
	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive, got: %s", cfg.Stream.Interval)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
