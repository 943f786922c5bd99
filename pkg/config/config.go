package config

import (
	"fmt"
	"net/url"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for scentiq-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, session secret, store passwords) must only come from
// environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8790"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Recommendation provider configuration
	Provider ProviderConfig `yaml:"provider"`

	// Key-value store configuration
	Store StoreConfig `yaml:"store"`

	// Browser session configuration
	Session SessionConfig `yaml:"session"`

	// Quiz flow tuning
	Quiz QuizConfig `yaml:"quiz"`
}

// Provider vendor constants.
const (
	VendorOpenAI    = "openai"
	VendorAnthropic = "anthropic"
)

// ProviderConfig holds the generative-AI provider endpoint settings.
type ProviderConfig struct {
	// Vendor selects the provider transport: "openai" (any OpenAI-compatible
	// endpoint) or "anthropic".
	Vendor   string `yaml:"vendor" env:"PROVIDER_VENDOR" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"PROVIDER_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"PROVIDER_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"PROVIDER_API_KEY"` // Secret - not in YAML
	// Temperature for recommendation generation.
	Temperature float64 `yaml:"temperature" env:"PROVIDER_TEMPERATURE" env-default:"0.8"`
}

// Store backend constants.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// StoreConfig selects and configures the durable key-value backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend" env:"STORE_BACKEND" env-default:"memory"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"scentiq"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"scentiq_engine"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// SessionConfig holds browser session and token signing settings.
type SessionConfig struct {
	// Secret signs session tokens and browser cookies. Must be set in any
	// non-local environment. Generate with: openssl rand -base64 32
	Secret     string `yaml:"-" env:"SESSION_SECRET" env-default:"scentiq-local-dev-secret"`
	CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"scentiq_browser"`
	// TokenTTLHours is the lifetime of minted session tokens.
	TokenTTLHours int `yaml:"token_ttl_hours" env:"SESSION_TOKEN_TTL_HOURS" env-default:"720"`
}

// QuizConfig holds quiz flow tuning values.
type QuizConfig struct {
	// AutoAdvanceMillis is the delay before a single-choice screen advances
	// after a selection. Intervening navigation cancels the advance.
	AutoAdvanceMillis int `yaml:"auto_advance_millis" env:"QUIZ_AUTO_ADVANCE_MILLIS" env-default:"300"`
	// FreeCount and PremiumCount are the recommendation counts per tier.
	FreeCount    int `yaml:"free_count" env:"QUIZ_FREE_COUNT" env-default:"3"`
	PremiumCount int `yaml:"premium_count" env:"QUIZ_PREMIUM_COUNT" env-default:"5"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider.Vendor {
	case VendorOpenAI, VendorAnthropic:
	default:
		return fmt.Errorf("unknown provider vendor %q", c.Provider.Vendor)
	}

	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Quiz.FreeCount <= 0 || c.Quiz.PremiumCount <= 0 {
		return fmt.Errorf("recommendation counts must be positive")
	}
	if c.Quiz.AutoAdvanceMillis < 0 {
		return fmt.Errorf("auto_advance_millis must not be negative")
	}

	return nil
}
