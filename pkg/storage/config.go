// Package storage defines the persistence configuration shared by the
// Postgres and Redis backends.
package storage

import "time"

// Config holds connection settings for the storage backends.
type Config struct {
	PostgresURL string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	Timeout     time.Duration

	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// SessionCacheTTL bounds how long a session record may be served
	// from cache; expiry is still re-checked on every request.
	SessionCacheTTL time.Duration
	// SessionCacheSize is the entry cap of the in-process cache tier.
	SessionCacheSize int
}

// DefaultConfig returns sane local-development settings.
func DefaultConfig() Config {
	return Config{
		PostgresURL:      "postgres://localhost:5432/atrium?sslmode=disable",
		MaxConns:         25,
		MinConns:         5,
		MaxLifetime:      time.Hour,
		MaxIdleTime:      15 * time.Minute,
		Timeout:          5 * time.Second,
		RedisURL:         "redis://localhost:6379/0",
		SessionCacheTTL:  30 * time.Second,
		SessionCacheSize: 4096,
	}
}
