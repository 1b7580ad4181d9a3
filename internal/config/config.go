package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"debug"`

	// Identity
	JWTSecret         string `envconfig:"JWT_SECRET"`
	JWTSecretResource string `envconfig:"JWT_SECRET_RESOURCE"` // projects/<p>/secrets/<s>/versions/<v>
	SessionCookieName string `envconfig:"SESSION_COOKIE_NAME" default:"session"`

	// Request gate
	PlanSelectionPath string            `envconfig:"PLAN_SELECTION_PATH" default:"/pricing"`
	PlanRoutes        map[string]string `envconfig:"PLAN_ROUTES" default:"/dashboard/supplier:supplier,/dashboard/trader:trader"`

	// Entitlement store
	StoreBackend       string `envconfig:"STORE_BACKEND" default:"memory"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`
	SQLitePath         string `envconfig:"SQLITE_PATH" default:"entitlements.db"`
	RedisURL           string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Subscription events
	GCPProjectID            string `envconfig:"GCP_PROJECT_ID"`
	PubSubSubscriptionTopic string `envconfig:"PUBSUB_SUBSCRIPTION_TOPIC" default:"subscription-events"`
	PubSubEmulatorHost      string `envconfig:"PUBSUB_EMULATOR_HOST"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StoreRedis:
	case StorePostgres:
		if c.DBConnectionString == "" {
			return fmt.Errorf("DB_CONNECTION_STRING is required when STORE_BACKEND=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.JWTSecret == "" && c.JWTSecretResource == "" {
		return fmt.Errorf("one of JWT_SECRET or JWT_SECRET_RESOURCE is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ZerologLevel is LOG_LEVEL as a zerolog level; empty means debug.
func (c *Config) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.DebugLevel
	}
	return level
}
