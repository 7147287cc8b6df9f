package config

// Redis backs token revocation, distributed rate limiting and the search
// response cache.  If the server cannot be reached at startup,
// NewRedisClient returns nil and callers degrade: revocation falls back to
// process memory, caching and rate limiting are disabled.

import (
    "context"
    "crypto/tls"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig holds the REDIS_* connection settings.
type RedisConfig struct {
    Enabled  bool
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT (or REDIS_ADDR), REDIS_PASSWORD,
// REDIS_DB and REDIS_TLS.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "")
    host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    tlsEnv := envStr("REDIS_TLS", "")
    return RedisConfig{
        Enabled:  envBool("REDIS_ENABLED", true),
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
    }
}

// NewRedisClient instantiates a client and pings it with a short timeout.
// The returned client is nil when Redis is disabled or unreachable.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    if !cfg.Enabled {
        return nil
    }
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
