package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `env:",prefix=SERVER_"`

	// Database configuration
	Database DatabaseConfig `env:",prefix=DB_"`

	// Loyalty program business rules
	Loyalty LoyaltyConfig `env:",prefix=LOYALTY_"`

	// Application configuration
	App AppConfig `env:",prefix=APP_"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
	WriteRPS     int    `env:"WRITE_RPS,default=100"`    // rate limit on point-changing endpoints
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=loyalty"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
	MaxConns int    `env:"MAX_CONNS,default=25"`
	MinConns int    `env:"MIN_CONNS,default=5"`
}

// LoyaltyConfig holds the program's business constants.
//
// PointsPerUnit converts currency spend to points and back. Yearly spend is
// estimated from earned points at this ratio, which assumes every earn entry
// originated from a purchase; promotional points would inflate the estimate.
// GoldThreshold is the trailing-year spend, in currency units, at which a
// customer is classified Gold.
type LoyaltyConfig struct {
	PointsPerUnit int64 `env:"POINTS_PER_UNIT,default=10"`
	GoldThreshold int64 `env:"GOLD_THRESHOLD,default=500"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	Debug       bool   `env:"DEBUG,default=false"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if cfg.Loyalty.PointsPerUnit <= 0 {
		return nil, fmt.Errorf("LOYALTY_POINTS_PER_UNIT must be positive, got %d", cfg.Loyalty.PointsPerUnit)
	}
	return &cfg, nil
}

// GetDatabaseURL returns the PostgreSQL connection URL
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
