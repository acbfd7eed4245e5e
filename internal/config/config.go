package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
}

// ServerConfig contains all HTTP-server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// RateLimit is the maximum number of requests allowed per client
	// address within RateLimitWindowMinutes.
	RateLimit              int `mapstructure:"rate_limit"                validate:"required,gt=0"`
	RateLimitWindowMinutes int `mapstructure:"rate_limit_window_minutes" validate:"required,gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig contains connection settings for the Redis instance that
// backs the session cache and the task listing cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       validate:"gte=0"`

	// ListingCacheTTLMinutes bounds how long a cached task listing
	// snapshot may be served before it expires on its own.
	ListingCacheTTLMinutes int `mapstructure:"listing_cache_ttl_minutes" validate:"required,gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the validity window of an issued session
	// token. The session cache entry uses the same lifetime so the two
	// expire together.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// BcryptCost is the bcrypt cost factor used when hashing passwords.
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"required,gte=10,lte=31"`
}

// TokenLifetime returns the session token lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// ListingCacheTTL returns the task listing cache TTL as a duration.
func (c RedisConfig) ListingCacheTTL() time.Duration {
	return time.Duration(c.ListingCacheTTLMinutes) * time.Minute
}

// RateLimitWindow returns the rate limiting window as a duration.
func (c ServerConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}
