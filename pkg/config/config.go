// Package config provides unified configuration for the bookstore service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PORT, JWT_SECRET, DATABASE_URL, ...)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the bookstore service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Books         BooksConfig         `yaml:"books"`
	Storage       StorageConfig       `yaml:"storage"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 3000
	Environment     string        `yaml:"environment"`      // default: "development"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`      // required
	JWTSecretFile string        `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	Issuer        string        `yaml:"issuer"`          // optional
	TokenTTL      time.Duration `yaml:"token_ttl"`       // default: 1h
}

// BooksConfig holds the Google Books client settings.
type BooksConfig struct {
	APIKey     string        `yaml:"api_key"`      // optional; lookup fails without it
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string        `yaml:"base_url"`
	MaxResults int           `yaml:"max_results"` // default: 10
	Timeout    time.Duration `yaml:"timeout"`     // default: 10s
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error; default: info
	Format string `yaml:"format"` // "json" or "text"; default depends on environment
	Debug  string `yaml:"debug"`  // debug categories, e.g. "books,storage"; BOOKSTORE_DEBUG overrides
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			Environment:     "development",
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Books: BooksConfig{
			MaxResults: 10,
			Timeout:    10 * time.Second,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:       25,
				MigrateOnStart: true,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Hardened reports whether the service runs in production mode, where
// diagnostic traces are withheld from error responses.
func (c *Config) Hardened() bool {
	return c.Server.Environment == "production"
}

// LogFormat returns the configured format, defaulting to JSON in
// production and text elsewhere.
func (c *Config) LogFormat() string {
	if c.Logging.Format != "" {
		return c.Logging.Format
	}
	if c.Hardened() {
		return "json"
	}
	return "text"
}
