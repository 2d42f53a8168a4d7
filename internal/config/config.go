package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the static application configuration loaded from
// api.yaml, rate_limiter.yaml, coverage.yaml plus environment overrides.
// scope_policy.yaml and the jobs/*.yaml catalogue are parsed separately
// (see internal/scope/policy.go and internal/config/jobs.go) since
// they carry heterogeneous/list shapes that viper's mapstructure
// unmarshalling doesn't fit well.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	API         APIConfig         `mapstructure:"api"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Coverage    CoverageConfig    `mapstructure:"coverage"`
	Feature     FeatureConfig     `mapstructure:"feature"`
	LiveLoop    LiveLoopConfig    `mapstructure:"live_loop"`
}

// LiveLoopConfig mirrors the live-loop section of api.yaml.
type LiveLoopConfig struct {
	PollIntervalSeconds int  `mapstructure:"poll_interval_seconds"`
	DryRun              bool `mapstructure:"dry_run"`
}

// ServerConfig contains the ops HTTP surface (health/ready/metrics) settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	Environment  string        `mapstructure:"environment"`
	LogLevel     string        `mapstructure:"log_level"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig contains the delta-detector KV store settings.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// APIConfig mirrors api.yaml.
type APIConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKeyEnv       string        `mapstructure:"api_key_env"`
	TimeoutSeconds  time.Duration `mapstructure:"timeout_seconds"`
	DefaultTimezone string        `mapstructure:"default_timezone"`
}

// RateLimiterConfig mirrors rate_limiter.yaml.
type RateLimiterConfig struct {
	TokenBucketPerMinute   int `mapstructure:"token_bucket_per_minute"`
	MinuteSoftLimit        int `mapstructure:"minute_soft_limit"`
	DailyLimit             int `mapstructure:"daily_limit"`
	EmergencyStopThreshold int `mapstructure:"emergency_stop_threshold"`
}

// CoverageConfig mirrors coverage.yaml's scalar sections; ExpectedFixtures
// (a league id -> expected fixture count map) loads cleanly through viper
// since it's a flat map[string]int.
type CoverageConfig struct {
	ExpectedFixtures map[string]int `mapstructure:"expected_fixtures"`
	MaxLagMinutes    struct {
		Daily int `mapstructure:"daily"`
		Live  int `mapstructure:"live"`
	} `mapstructure:"max_lag_minutes"`
	Weights struct {
		Count     float64 `mapstructure:"count"`
		Freshness float64 `mapstructure:"freshness"`
		Pipeline  float64 `mapstructure:"pipeline"`
	} `mapstructure:"weights"`
}

// FeatureConfig contains the feature-toggle environment variables of
// spec.md §6.
type FeatureConfig struct {
	BootstrapStaticOnStart  bool `mapstructure:"bootstrap_static_on_start"`
	EnableLiveLoop          bool `mapstructure:"enable_live_loop"`
	VenuesBackfillMaxPerRun int  `mapstructure:"venues_backfill_max_per_run"`
}

// Load reads configuration from the config/ directory and environment
// variable overrides, following the teacher's viper layering.
func Load() (*Config, error) {
	viper.SetConfigName("api")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/football-ingestor/")
	viper.AddConfigPath("$HOME/.football-ingestor")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable overrides
	viper.SetEnvPrefix("INGESTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading api config: %w", err)
		}
	}

	for _, name := range []string{"rate_limiter", "coverage"} {
		viper.SetConfigName(name)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading %s config: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_connections", 5)
	viper.SetDefault("database.min_connections", 1)
	viper.SetDefault("database.max_conn_lifetime", time.Hour)
	viper.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Redis defaults
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.dial_timeout", 5*time.Second)
	viper.SetDefault("redis.read_timeout", 3*time.Second)
	viper.SetDefault("redis.write_timeout", 3*time.Second)
	viper.SetDefault("redis.pool_size", 10)

	// API-Football defaults
	viper.SetDefault("api.base_url", "https://v3.football.api-sports.io")
	viper.SetDefault("api.api_key_env", "API_FOOTBALL_KEY")
	viper.SetDefault("api.timeout_seconds", 30*time.Second)
	viper.SetDefault("api.default_timezone", "UTC")

	// Rate limiter defaults (API-Football: ~300 req/min)
	viper.SetDefault("rate_limiter.token_bucket_per_minute", 300)
	viper.SetDefault("rate_limiter.minute_soft_limit", 280)
	viper.SetDefault("rate_limiter.daily_limit", 7500)
	viper.SetDefault("rate_limiter.emergency_stop_threshold", 50)

	// Coverage defaults
	viper.SetDefault("coverage.max_lag_minutes.daily", 1440)
	viper.SetDefault("coverage.max_lag_minutes.live", 5)
	viper.SetDefault("coverage.weights.count", 0.5)
	viper.SetDefault("coverage.weights.freshness", 0.3)
	viper.SetDefault("coverage.weights.pipeline", 0.2)

	// Feature toggles
	viper.SetDefault("feature.bootstrap_static_on_start", true)
	viper.SetDefault("feature.enable_live_loop", true)
	viper.SetDefault("feature.venues_backfill_max_per_run", 0)

	// Live loop defaults
	viper.SetDefault("live_loop.poll_interval_seconds", 20)
	viper.SetDefault("live_loop.dry_run", false)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if cfg.API.APIKeyEnv == "" {
		return fmt.Errorf("api.api_key_env is required")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
