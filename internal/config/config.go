package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	LogFormat     string
	PublicBaseURL string

	// Booking backend (RPC surface consumed by the site)
	BackendURL     string
	BackendTimeout time.Duration
	ServiceCity    string

	// Storage for the query cache and visitor sessions
	CacheBackend      string
	SessionBackend    string
	SessionCookieName string
	SessionTTL        time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool

	// Identity provider (delegated login)
	IdentityProviderURL string
	IdentityClientID    string
	IdentityTokenSecret string
	IdentityJWKSURL     string
	IdentityIssuer      string
	IdentityAudience    string

	CORSAllowedOrigins    []string
	BookingRateLimitRPS   float64
	BookingRateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	port := getEnv("PORT", "8080")
	return &Config{
		Port:          port,
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "json")),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),

		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8090"),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		ServiceCity:    getEnv("SERVICE_CITY", "Chennai"),

		CacheBackend:      strings.ToLower(strings.TrimSpace(getEnv("CACHE_BACKEND", "memory"))),
		SessionBackend:    strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "memory"))),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "hc_session"),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),

		IdentityProviderURL: strings.TrimRight(getEnv("IDENTITY_PROVIDER_URL", "http://localhost:8090/identity"), "/"),
		IdentityClientID:    getEnv("IDENTITY_CLIENT_ID", "homecare-web"),
		IdentityTokenSecret: getEnv("IDENTITY_TOKEN_SECRET", ""),
		IdentityJWKSURL:     getEnv("IDENTITY_JWKS_URL", ""),
		IdentityIssuer:      getEnv("IDENTITY_ISSUER", ""),
		IdentityAudience:    getEnv("IDENTITY_AUDIENCE", ""),

		CORSAllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS"),
		BookingRateLimitRPS:   getEnvAsFloat("BOOKING_RATE_LIMIT_RPS", 1),
		BookingRateLimitBurst: getEnvAsInt("BOOKING_RATE_LIMIT_BURST", 5),
	}
}

// IsDevelopment reports whether the site runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
