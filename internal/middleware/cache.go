package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"

    "github.com/iliyamo/acp-gateway/internal/config"
)

// bodyRecorder tees the response body into buf until limit is exceeded.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *bodyRecorder) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// cachedResponse is what a search response is stored as.  Only the
// content type is kept; request ids and rate limit headers belong to the
// request that produced the entry.
type cachedResponse struct {
    ContentType string `json:"ct"`
    Body        []byte `json:"b"`
}

// responseCacheKey hashes the parts named by the key strategy together with
// the caller's credential, since cached bodies embed per-user redirect
// links.
func responseCacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    h := sha256.New()
    write := func(parts ...string) {
        for _, p := range parts {
            h.Write([]byte(p))
            h.Write([]byte{0})
        }
    }
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        write(c.Path())
    case "method_route":
        write(r.Method, c.Path())
    case "method_route_query":
        write(r.Method, c.Path(), r.URL.Query().Encode())
    default: // route_query
        write(c.Path(), r.URL.Query().Encode())
    }
    write(credentialKey(c))
    return cfg.Prefix + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

// NewRedisCache serves repeated GETs of cacheable routes from Redis.  Only
// complete 200 responses without Cache-Control: no-store are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil || cfg.TTL <= 0 {
        return passThrough
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := responseCacheKey(cfg, c)

            raw, err := rdb.Get(ctx, key).Bytes()
            switch {
            case err == nil:
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(http.StatusOK, hit.ContentType, hit.Body)
                }
                log.Warn().Str("key", key).Msg("dropping unreadable cache entry")
            case !errors.Is(err, redis.Nil):
                log.Warn().Err(err).Msg("response cache read failed")
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            hdr := c.Response().Header()
            if rec.status != http.StatusOK || rec.overflow || strings.Contains(hdr.Get("Cache-Control"), "no-store") {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{ContentType: hdr.Get(echo.HeaderContentType), Body: rec.buf.Bytes()})
            if err != nil {
                return nil
            }
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
                log.Warn().Err(err).Msg("response cache write failed")
            }
            return nil
        }
    }
}
