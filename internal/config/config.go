package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geo-enrich/pkg/geocode"
)

// Config holds the full application configuration.
type Config struct {
	Log           LogConfig        `yaml:"log" mapstructure:"log"`
	Geocode       GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Batch         BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Cache         CacheConfig      `yaml:"cache" mapstructure:"cache"`
	ReferenceFile string           `yaml:"reference_file" mapstructure:"reference_file"`
	Resolution    ResolutionConfig `yaml:"resolution" mapstructure:"resolution"`
	Server        ServerConfig     `yaml:"server" mapstructure:"server"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

// GeocodeConfig selects and tunes the geocoding provider.
type GeocodeConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second; 0 = unlimited
	Country      string  `yaml:"country" mapstructure:"country"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	NominatimURL string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	// AdoptReverseUnchecked accepts reverse-geocoded city/state values that
	// are not in the known set.
	AdoptReverseUnchecked bool `yaml:"adopt_reverse_unchecked" mapstructure:"adopt_reverse_unchecked"`
}

// Timeout returns the per-call timeout.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// BatchConfig controls the batch runner.
type BatchConfig struct {
	Workers               int `yaml:"workers" mapstructure:"workers"`
	RetryAttempts         int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryInitialBackoffMs int `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs     int `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
	CircuitThreshold      int `yaml:"circuit_threshold" mapstructure:"circuit_threshold"` // 0 disables
	CircuitResetSecs      int `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// CacheConfig configures the geocode answer cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver  string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	TTLDays int    `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// ResolutionConfig tunes the image resolution checker.
type ResolutionConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	Workers     int    `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxRecords     int      `yaml:"max_records" mapstructure:"max_records"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Validate checks the settings a command needs. mode is "enrich",
// "resolution" or "serve"; all problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch strings.ToLower(c.Cache.Driver) {
	case "", "sqlite", "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q is not sqlite or postgres", c.Cache.Driver))
	}
	if c.Cache.Enabled && strings.HasPrefix(strings.ToLower(c.Cache.Driver), "postgres") && c.Cache.DSN == "" {
		errs = append(errs, "cache.dsn is required for the postgres cache")
	}
	if c.Geocode.RateLimit < 0 {
		errs = append(errs, "geocode.rate_limit must not be negative")
	}

	switch mode {
	case "enrich":
		if !slices.Contains(geocode.Names(), strings.ToLower(c.Geocode.Provider)) {
			errs = append(errs, fmt.Sprintf("geocode.provider %q is not one of %s", c.Geocode.Provider, strings.Join(geocode.Names(), ", ")))
		} else if geocode.RequiresKey(c.Geocode.Provider) && c.Geocode.APIKey == "" {
			errs = append(errs, "geocode.api_key is required for provider "+c.Geocode.Provider)
		}
	case "resolution":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxRecords < 0 {
			errs = append(errs, "server.max_records must not be negative")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads config.yaml from the working directory (optional), overlays
// GEOENRICH_* environment variables and fills defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geocode.provider", "google")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.rate_limit", 0)
	v.SetDefault("geocode.country", "India")
	v.SetDefault("geocode.user_agent", "geo-enrich/1.0")
	v.SetDefault("geocode.nominatim_url", "")
	v.SetDefault("geocode.adopt_reverse_unchecked", false)
	v.SetDefault("batch.workers", 10)
	v.SetDefault("batch.retry_attempts", 1)
	v.SetDefault("batch.retry_initial_backoff_ms", 500)
	v.SetDefault("batch.retry_max_backoff_ms", 10000)
	v.SetDefault("batch.circuit_threshold", 0)
	v.SetDefault("batch.circuit_reset_secs", 30)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.ttl_days", 30)
	v.SetDefault("reference_file", "")
	v.SetDefault("resolution.timeout_secs", 10)
	v.SetDefault("resolution.user_agent", "Mozilla/5.0")
	v.SetDefault("resolution.workers", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_records", 5000)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
