// Package config provides portal, gateway and audit configuration loaded from
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds ckan-portal configuration.
type Config struct {
	// Upstream CKAN site
	CKANURL        string        `envconfig:"CKAN_URL" default:"https://demo.ckan.org"`
	APIToken       string        `envconfig:"CKAN_API_TOKEN"`
	APIVersion     int           `envconfig:"CKAN_API_VERSION" default:"3"`
	RequestTimeout time.Duration `envconfig:"CKAN_REQUEST_TIMEOUT" default:"30s"`
	TLSVerify      bool          `envconfig:"CKAN_TLS_VERIFY" default:"true"`
	UserAgent      string        `envconfig:"CKAN_USER_AGENT" default:"ckan-portal"`

	// Retry decorator (0 retries disables it)
	MaxRetries int           `envconfig:"CKAN_MAX_RETRIES" default:"3"`
	RetryDelay time.Duration `envconfig:"CKAN_RETRY_DELAY" default:"500ms"`

	// Rate limit in requests per second (0 disables it)
	RateLimit float64 `envconfig:"CKAN_RATE_LIMIT" default:"0"`
	RateBurst int     `envconfig:"CKAN_RATE_BURST" default:"1"`

	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"ckan-gateway"`

	// Gateway
	GatewaySubject        string        `envconfig:"GATEWAY_SUBJECT" default:"ckan.portal.v1"`
	GatewayQueue          string        `envconfig:"GATEWAY_QUEUE" default:"ckan-gateway"`
	GatewayRequestTimeout time.Duration `envconfig:"GATEWAY_REQUEST_TIMEOUT" default:"25s"`
	PublishEvents         bool          `envconfig:"PUBLISH_EVENTS" default:"false"`

	// Token store (empty address disables it)
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	TokenKey      string `envconfig:"TOKEN_KEY" default:"ckan:token"`

	// Audit database (empty URL disables auditing)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Profiles
	ProfilesFile string `envconfig:"PROFILES_FILE"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForClient checks the settings needed to invoke actions.
func (c *Config) ValidateForClient() error {
	u, err := url.Parse(c.CKANURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s - CKAN_URL must be an absolute URL, got %q", logPrefix, c.CKANURL)
	}
	if c.APIVersion < 1 {
		return fmt.Errorf("%s - CKAN_API_VERSION must be positive", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - CKAN_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%s - CKAN_MAX_RETRIES must not be negative", logPrefix)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s - CKAN_RATE_LIMIT must not be negative", logPrefix)
	}
	return nil
}

// ValidateForServe checks required config when running the gateway.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForClient(); err != nil {
		return err
	}
	if c.GatewaySubject == "" {
		return fmt.Errorf("%s - GATEWAY_SUBJECT is required for serve", logPrefix)
	}
	if c.GatewayRequestTimeout <= 0 {
		return fmt.Errorf("%s - GATEWAY_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, audit).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// AuditEnabled reports whether invocations should be recorded in the database.
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

// TokenStoreEnabled reports whether tokens should be read from Redis.
func (c *Config) TokenStoreEnabled() bool {
	return c.RedisAddr != ""
}
