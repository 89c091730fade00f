// Package config loads application configuration from ATRIUM_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openlearnhq/atrium/pkg/observability"
	"github.com/openlearnhq/atrium/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       storage.Config
	Session       SessionConfig
	Access        AccessConfig
	OIDC          OIDCConfig
	Billing       BillingConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// BaseURL is the externally visible origin, used to build OIDC
	// redirect URLs.
	BaseURL string

	// AllowedOrigins enables CORS for the listed origins when non-empty.
	AllowedOrigins []string
}

// SessionConfig holds login session settings
type SessionConfig struct {
	TTL           time.Duration
	CookieName    string
	CookieDomain  string
	CookieSecure  bool
	SweepSchedule string
}

// AccessConfig holds the authorization rule settings
type AccessConfig struct {
	RulesPath     string
	WatchRules    bool
	LoginPath     string
	ForbiddenPath string
}

// OIDCConfig holds the single sign-on provider settings
type OIDCConfig struct {
	Enabled      bool
	IssuerURL    string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// BillingConfig holds the payment gateway settings
type BillingConfig struct {
	Enabled   bool
	APIBase   string
	SecretKey string
	Timeout   time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Session:       loadSessionConfig(),
		Access:        loadAccessConfig(),
		OIDC:          loadOIDCConfig(),
		Billing:       loadBillingConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("ATRIUM_HOST", "0.0.0.0"),
		Port:            getEnv("ATRIUM_PORT", "8080"),
		ReadTimeout:     getEnvDuration("ATRIUM_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("ATRIUM_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("ATRIUM_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("ATRIUM_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("ATRIUM_HEALTH_PORT", "9090"),
		BaseURL:         getEnv("ATRIUM_BASE_URL", "http://localhost:8080"),
		AllowedOrigins:  getEnvList("ATRIUM_CORS_ORIGINS", nil),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if pgURL := getEnv("ATRIUM_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("ATRIUM_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("ATRIUM_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("ATRIUM_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	if redisURL := getEnv("ATRIUM_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("ATRIUM_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("ATRIUM_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("ATRIUM_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	if cacheTTL := getEnvDuration("ATRIUM_SESSION_CACHE_TTL", 0); cacheTTL > 0 {
		cfg.SessionCacheTTL = cacheTTL
	}
	if cacheSize := getEnvInt("ATRIUM_SESSION_CACHE_SIZE", 0); cacheSize > 0 {
		cfg.SessionCacheSize = cacheSize
	}
	return cfg
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:           getEnvDuration("ATRIUM_SESSION_TTL", 24*time.Hour),
		CookieName:    getEnv("ATRIUM_SESSION_COOKIE", "atrium_session"),
		CookieDomain:  getEnv("ATRIUM_COOKIE_DOMAIN", ""),
		CookieSecure:  getEnvBool("ATRIUM_COOKIE_SECURE", true),
		SweepSchedule: getEnv("ATRIUM_SESSION_SWEEP_SCHEDULE", "@hourly"),
	}
}

func loadAccessConfig() AccessConfig {
	return AccessConfig{
		RulesPath:     getEnv("ATRIUM_RULES_PATH", ""),
		WatchRules:    getEnvBool("ATRIUM_RULES_WATCH", true),
		LoginPath:     getEnv("ATRIUM_LOGIN_PATH", "/login"),
		ForbiddenPath: getEnv("ATRIUM_FORBIDDEN_PATH", "/forbidden"),
	}
}

func loadOIDCConfig() OIDCConfig {
	scopes := []string{"openid", "profile", "email"}
	if raw := getEnv("ATRIUM_OIDC_SCOPES", ""); raw != "" {
		scopes = strings.Split(raw, ",")
	}
	return OIDCConfig{
		Enabled:      getEnvBool("ATRIUM_OIDC_ENABLED", false),
		IssuerURL:    getEnv("ATRIUM_OIDC_ISSUER", ""),
		ClientID:     getEnv("ATRIUM_OIDC_CLIENT_ID", ""),
		ClientSecret: getEnv("ATRIUM_OIDC_CLIENT_SECRET", ""),
		Scopes:       scopes,
	}
}

func loadBillingConfig() BillingConfig {
	return BillingConfig{
		Enabled:   getEnvBool("ATRIUM_BILLING_ENABLED", false),
		APIBase:   getEnv("ATRIUM_BILLING_API_BASE", "https://api.stripe.com"),
		SecretKey: getEnv("ATRIUM_BILLING_SECRET_KEY", ""),
		Timeout:   getEnvDuration("ATRIUM_BILLING_TIMEOUT", 10*time.Second),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("ATRIUM_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("ATRIUM_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("ATRIUM_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("ATRIUM_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("ATRIUM_OTEL_SERVICE_NAME", "atrium"),
		OTelServiceVersion: getEnv("ATRIUM_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("ATRIUM_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.OIDC.Enabled {
		if c.OIDC.IssuerURL == "" {
			return fmt.Errorf("OIDC issuer URL is required when OIDC is enabled")
		}
		if c.OIDC.ClientID == "" || c.OIDC.ClientSecret == "" {
			return fmt.Errorf("OIDC client credentials are required when OIDC is enabled")
		}
	}

	if c.Billing.Enabled && c.Billing.SecretKey == "" {
		return fmt.Errorf("billing secret key is required when billing is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
