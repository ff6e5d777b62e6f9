package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"` // apply embedded migrations on startup
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // profile cache ttl
}

type AuthConfig struct {
	JWTSecret            string `yaml:"jwt_secret"`
	Issuer               string `yaml:"issuer"`
	RequireVerifiedEmail bool   `yaml:"require_verified_email"`
}

type SecurityConfig struct {
	// ContactKey seals counterparty contacts at rest (16, 24 or 32 bytes).
	// Empty stores them as plain documents.
	ContactKey string `yaml:"contact_key"`
}

type RevealConfig struct {
	FreeMonthlyAllowance int           `yaml:"free_monthly_allowance"`
	RetryAttempts        int           `yaml:"retry_attempts"`
	RetryBaseDelay       time.Duration `yaml:"retry_base_delay"`
}

// PlanConfig sets the reveal allowance of one plan tier.
type PlanConfig struct {
	Name           string `yaml:"name"`
	MonthlyReveals int    `yaml:"monthly_reveals"`
	Unlimited      bool   `yaml:"unlimited"`
}

type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	RevealLimit  int           `yaml:"reveal_limit"`
	RevealWindow time.Duration `yaml:"reveal_window"`
}

type ListingConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

type WorkersConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval"`
}

type Config struct {
	HTTP      HTTPConfig            `yaml:"http"`
	Log       LogConfig             `yaml:"log"`
	Database  DatabaseConfig        `yaml:"database"`
	Redis     RedisConfig           `yaml:"redis"`
	Auth      AuthConfig            `yaml:"auth"`
	Security  SecurityConfig        `yaml:"security"`
	Reveal    RevealConfig          `yaml:"reveal"`
	Plans     map[string]PlanConfig `yaml:"plans"`
	RateLimit RateLimitConfig       `yaml:"rate_limit"`
	Listing   ListingConfig         `yaml:"listing"`
	Workers   WorkersConfig         `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides
// (DATABASE_URL, REDIS_URL, JWT_SECRET, CONTACT_ENCRYPTION_KEY) and defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	cfg := Config{RateLimit: RateLimitConfig{Enabled: true}, Database: DatabaseConfig{Migrate: true}}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if n := len(cfg.Security.ContactKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, errors.New("security.contact_key must be 16, 24 or 32 bytes")
	}
	if cfg.Reveal.FreeMonthlyAllowance < 0 {
		return nil, errors.New("reveal.free_monthly_allowance must not be negative")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("CONTACT_ENCRYPTION_KEY"); v != "" {
		cfg.Security.ContactKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Reveal.FreeMonthlyAllowance == 0 {
		cfg.Reveal.FreeMonthlyAllowance = 3
	}
	if cfg.Reveal.RetryAttempts <= 0 {
		cfg.Reveal.RetryAttempts = 3
	}
	if cfg.Reveal.RetryBaseDelay <= 0 {
		cfg.Reveal.RetryBaseDelay = 25 * time.Millisecond
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = map[string]PlanConfig{
			"pro":        {Name: "Pro", Unlimited: true},
			"enterprise": {Name: "Enterprise", Unlimited: true},
		}
	}

	if cfg.RateLimit.RevealLimit <= 0 {
		cfg.RateLimit.RevealLimit = 10
	}
	if cfg.RateLimit.RevealWindow <= 0 {
		cfg.RateLimit.RevealWindow = time.Minute
	}

	if cfg.Listing.MaxLimit <= 0 || cfg.Listing.MaxLimit > 100 {
		cfg.Listing.MaxLimit = 100
	}
	if cfg.Listing.DefaultLimit <= 0 {
		cfg.Listing.DefaultLimit = 20
	}
	if cfg.Listing.DefaultLimit > cfg.Listing.MaxLimit {
		cfg.Listing.DefaultLimit = cfg.Listing.MaxLimit
	}

	if cfg.Workers.StatsInterval <= 0 {
		cfg.Workers.StatsInterval = time.Minute
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Minute
	}
	return d
}
