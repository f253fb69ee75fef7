// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. MYADMIN_CACHE_TTL overrides cache.ttl.
const EnvPrefix = "MYADMIN"

// Supported ledger store drivers.
const (
	DriverSQLite = "sqlite"
	DriverCSV    = "csv"
	DriverYAML   = "yaml"
	DriverMemory = "memory"
)

// Config represents the complete application configuration
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Patterns  PatternsConfig  `mapstructure:"patterns" yaml:"patterns"`
	Verb      VerbConfig      `mapstructure:"verb" yaml:"verb"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Aggregate AggregateConfig `mapstructure:"aggregate" yaml:"aggregate"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
}

// LogConfig controls the logrus adapter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// PatternsConfig tunes pattern mining and confidence scoring.
type PatternsConfig struct {
	LookbackDays    int `mapstructure:"lookback_days" yaml:"lookback_days"`
	SaturationCount int `mapstructure:"saturation_count" yaml:"saturation_count"`
	MinOccurrences  int `mapstructure:"min_occurrences" yaml:"min_occurrences"`
}

// VerbConfig tunes counterparty token extraction.
type VerbConfig struct {
	StopWords []string `mapstructure:"stop_words" yaml:"stop_words"`
	MaxTokens int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	MinLength int      `mapstructure:"min_length" yaml:"min_length"`
}

// CacheConfig controls population, staleness and retry of both caches.
type CacheConfig struct {
	TTL               time.Duration `mapstructure:"ttl" yaml:"ttl"`
	PopulationTimeout time.Duration `mapstructure:"population_timeout" yaml:"population_timeout"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
	RetryAttempts     int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay" yaml:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay"`
}

// AggregateConfig bounds the ledger window held by the aggregate cache.
// LookbackYears of 0 keeps the full history.
type AggregateConfig struct {
	LookbackYears int `mapstructure:"lookback_years" yaml:"lookback_years"`
}

// StoreConfig selects the ledger store adapter.
type StoreConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver"`
	Path         string `mapstructure:"path" yaml:"path"`
	AccountsPath string `mapstructure:"accounts_path" yaml:"accounts_path"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading:
// defaults, then config.yaml from the standard locations, then MYADMIN_* env vars.
func InitializeConfig() (*Config, error) {
	return load("")
}

// InitializeConfigFromFile is InitializeConfig with an explicit config file.
func InitializeConfigFromFile(path string) (*Config, error) {
	return load(path)
}

// Default returns the built-in defaults without consulting files or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return &cfg
}

func load(explicitPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.myadmin")
		v.AddConfigPath(".myadmin")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicitPath != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", explicitPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// A broken file is reported but defaults and env vars still apply
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("patterns.lookback_days", 730)
	v.SetDefault("patterns.saturation_count", 10)
	v.SetDefault("patterns.min_occurrences", 1)

	v.SetDefault("verb.stop_words", []string{
		"BETALING", "PAYMENT", "INCASSO", "SEPA", "OVERBOEKING", "TRANSFER",
		"AAN", "VAN", "TO", "FROM", "BEA", "GEA", "IDEAL", "POS", "PIN",
	})
	v.SetDefault("verb.max_tokens", 1)
	v.SetDefault("verb.min_length", 2)

	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.population_timeout", 30*time.Second)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)
	v.SetDefault("cache.retry_attempts", 3)
	v.SetDefault("cache.retry_initial_delay", 200*time.Millisecond)
	v.SetDefault("cache.retry_max_delay", 2*time.Second)

	v.SetDefault("aggregate.lookback_years", 0)

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", "data/ledger.db")
	v.SetDefault("store.accounts_path", "")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Patterns.LookbackDays < 1 {
		return fmt.Errorf("patterns.lookback_days must be at least 1, got: %d", config.Patterns.LookbackDays)
	}
	if config.Patterns.SaturationCount < 1 {
		return fmt.Errorf("patterns.saturation_count must be at least 1, got: %d", config.Patterns.SaturationCount)
	}
	if config.Patterns.MinOccurrences < 1 {
		return fmt.Errorf("patterns.min_occurrences must be at least 1, got: %d", config.Patterns.MinOccurrences)
	}

	if config.Verb.MaxTokens < 1 || config.Verb.MaxTokens > 5 {
		return fmt.Errorf("verb.max_tokens must be between 1 and 5, got: %d", config.Verb.MaxTokens)
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got: %s", config.Cache.TTL)
	}
	if config.Cache.PopulationTimeout <= 0 {
		return fmt.Errorf("cache.population_timeout must be positive, got: %s", config.Cache.PopulationTimeout)
	}
	if config.Cache.RetryAttempts < 1 || config.Cache.RetryAttempts > 10 {
		return fmt.Errorf("cache.retry_attempts must be between 1 and 10, got: %d", config.Cache.RetryAttempts)
	}

	if config.Aggregate.LookbackYears < 0 {
		return fmt.Errorf("aggregate.lookback_years must not be negative, got: %d", config.Aggregate.LookbackYears)
	}

	switch config.Store.Driver {
	case DriverSQLite, DriverCSV, DriverYAML, DriverMemory:
	default:
		return fmt.Errorf("invalid store driver: %s (must be one of sqlite, csv, yaml, memory)", config.Store.Driver)
	}
	if config.Store.Driver != DriverMemory && config.Store.Path == "" {
		return fmt.Errorf("store.path is required for driver %s", config.Store.Driver)
	}

	return nil
}

// Validate checks a programmatically built Config.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// ConfigureLoggingFromConfig configures a logrus logger based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
