// Package config handles YAML configuration loading with environment variable
// expansion, and first-run seeding of the backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.yaml.in/yaml/v3"
)

// Backend drivers.
const (
	DriverSQLite = "sqlite"
	DriverREST   = "rest"
)

// Config is the top-level silverbook configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Warmer    WarmerConfig    `yaml:"warmer"`
	Seed      SeedConfig      `yaml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DatabaseConfig selects and configures the backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or rest
	DSN    string `yaml:"dsn"`    // sqlite: file path or ":memory:"

	// rest only
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	ServiceToken string        `yaml:"service_token"` // bearer override; empty = api_key
	Timeout      time.Duration `yaml:"timeout"`
	DNSRefresh   time.Duration `yaml:"dns_refresh"` // 0 disables DNS caching
	Breaker      BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the rest backend.
type BreakerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ErrorThreshold float64       `yaml:"error_threshold"`
	MinSamples     int           `yaml:"min_samples"`
	WindowSeconds  int           `yaml:"window_seconds"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
}

// CacheConfig tunes the read-through cache.
type CacheConfig struct {
	MaxSize        int           `yaml:"max_size"`
	DefaultTTL     time.Duration `yaml:"default_ttl"`
	StaleFraction  float64       `yaml:"stale_fraction"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// WarmerConfig controls the background cache warmer.
type WarmerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// SeedConfig lists records created on first run when the backend has none.
type SeedConfig struct {
	Rate10g      decimal.Decimal `yaml:"rate_10g"`
	Products     []ProductEntry  `yaml:"products"`
	JobWorkItems []JobWorkEntry  `yaml:"job_work_items"`
	Karigars     []KarigarEntry  `yaml:"karigars"`
}

// ProductEntry is a product seed.
type ProductEntry struct {
	Name          string          `yaml:"name"`
	Category      string          `yaml:"category"`
	DefaultWeight decimal.Decimal `yaml:"default_weight"`
	MakingCharge  decimal.Decimal `yaml:"making_charge"`
}

// JobWorkEntry is a job-work item seed.
type JobWorkEntry struct {
	Name        string          `yaml:"name"`
	RatePerGram decimal.Decimal `yaml:"rate_per_gram"`
}

// KarigarEntry is a karigar seed.
type KarigarEntry struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(expandEnv(data))
}

// Parse applies defaults, unmarshals data over them and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver:     DriverSQLite,
			DSN:        "silverbook.db",
			Timeout:    10 * time.Second,
			DNSRefresh: 5 * time.Minute,
			Breaker: BreakerConfig{
				Enabled:        true,
				ErrorThreshold: 0.50,
				MinSamples:     5,
				WindowSeconds:  30,
				OpenTimeout:    15 * time.Second,
			},
		},
		Cache: CacheConfig{
			MaxSize:        10_000,
			DefaultTTL:     2 * time.Minute,
			StaleFraction:  0.75,
			RefreshTimeout: 30 * time.Second,
		},
		Warmer: WarmerConfig{
			Enabled:  true,
			Interval: time.Minute,
		},
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the sqlite driver"))
		}
	case DriverREST:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the rest driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want sqlite or rest", c.Database.Driver))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if f := c.Cache.StaleFraction; f <= 0 || f >= 1 {
		errs = append(errs, fmt.Errorf("cache.stale_fraction %v: want a value between 0 and 1", f))
	}
	if b := c.Database.Breaker; b.Enabled && (b.ErrorThreshold <= 0 || b.ErrorThreshold > 1 || b.OpenTimeout <= 0) {
		errs = append(errs, errors.New("database.breaker: error_threshold must be in (0, 1] and open_timeout positive"))
	}
	if c.Warmer.Enabled && c.Warmer.Interval <= 0 {
		errs = append(errs, errors.New("warmer.interval must be positive"))
	}
	if c.Seed.Rate10g.IsNegative() {
		errs = append(errs, errors.New("seed.rate_10g must not be negative"))
	}
	return errors.Join(errs...)
}
