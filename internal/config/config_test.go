package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "PUBLIC_BASE_URL", "BACKEND_URL", "CACHE_BACKEND", "SESSION_TTL", "CORS_ALLOWED_ORIGINS", "SERVICE_CITY"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" || !cfg.IsDevelopment() {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("expected public base url derived from port, got %s", cfg.PublicBaseURL)
	}
	if cfg.CacheBackend != "memory" {
		t.Fatalf("expected memory cache backend, got %s", cfg.CacheBackend)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.ServiceCity != "Chennai" {
		t.Fatalf("expected default city, got %s", cfg.ServiceCity)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("PUBLIC_BASE_URL", "https://care.example.com/")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CACHE_BACKEND", " Redis ")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("BOOKING_RATE_LIMIT_RPS", "0.5")
	t.Setenv("BOOKING_RATE_LIMIT_BURST", "not-a-number")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production env")
	}
	if cfg.PublicBaseURL != "https://care.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Fatalf("expected backend timeout override, got %s", cfg.BackendTimeout)
	}
	if cfg.CacheBackend != "redis" {
		t.Fatalf("expected normalized cache backend, got %q", cfg.CacheBackend)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.BookingRateLimitRPS != 0.5 {
		t.Fatalf("expected rate override, got %v", cfg.BookingRateLimitRPS)
	}
	if cfg.BookingRateLimitBurst != 5 {
		t.Fatalf("expected invalid burst to fall back to default, got %d", cfg.BookingRateLimitBurst)
	}
}
