package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/homecare-booking/internal/config"
	"github.com/wolfman30/homecare-booking/internal/demo"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/internal/query"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildQueryStore picks the query cache store. Redis is used only when
// requested and reachable; otherwise results stay in process memory.
func BuildQueryStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) query.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil && cfg.CacheBackend == "redis" {
		if redisClient != nil {
			logger.Info("query cache backed by redis")
			return query.NewRedisStore(redisClient)
		}
		logger.Warn("CACHE_BACKEND=redis but redis is unavailable; using memory")
	}
	return query.NewMemoryStore()
}

// BuildSessionStore picks the identity session store.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) identity.Store {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := defaultSessionTTL
	backend := "memory"
	if cfg != nil {
		ttl = cfg.SessionTTL
		backend = cfg.SessionBackend
	}
	if backend == "redis" {
		if redisClient != nil {
			logger.Info("sessions backed by redis")
			return identity.NewRedisStore(redisClient, ttl)
		}
		logger.Warn("SESSION_BACKEND=redis but redis is unavailable; using memory")
	}
	return identity.NewMemoryStore(ttl)
}

// BuildVerifier selects how provider tokens are checked: JWKS when a key
// URL is configured, otherwise a shared HMAC secret. Development falls back
// to the stand-in provider's secret; elsewhere a missing secret disables login.
func BuildVerifier(cfg *appconfig.Config, logger *logging.Logger) identity.Verifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return nil
	}
	if cfg.IdentityJWKSURL != "" {
		return identity.NewJWKSVerifier(cfg.IdentityJWKSURL, cfg.IdentityIssuer, cfg.IdentityAudience)
	}
	secret := cfg.IdentityTokenSecret
	if secret == "" {
		if !cfg.IsDevelopment() {
			logger.Warn("no identity verifier configured; logins will fail")
			return nil
		}
		logger.Warn("IDENTITY_TOKEN_SECRET not set; using development secret")
		secret = demo.DefaultTokenSecret
	}
	return identity.NewHMACVerifier(secret, cfg.IdentityIssuer, cfg.IdentityAudience)
}
