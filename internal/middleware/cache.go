package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/condo-water-billing/internal/config"
)

const headerCache = "X-Cache"

// snapshot is what the response cache stores per key.  Body is base64 in
// JSON, which keeps CSV exports byte-exact.
type snapshot struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// recorder tees the response to the client and keeps a copy until it grows
// past limit (0 means no limit).
type recorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *recorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKey hashes the concrete path and, unless KeyStrategy is "route", the
// sorted query string, so ?a=1&b=2 and ?b=2&a=1 share an entry.
func cacheKey(cfg config.CacheConfig, r *http.Request) string {
    id := r.URL.Path
    if !strings.EqualFold(cfg.KeyStrategy, "route") {
        id += "?" + r.URL.Query().Encode()
    }
    sum := sha1.Sum([]byte(id))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewResponseCache replays 200 responses to the configured methods from
// store, headers included.  Bodies larger than MaxBodyBytes are served but
// not stored.
func NewResponseCache(cfg config.CacheConfig, store CacheStore) echo.MiddlewareFunc {
    if !cfg.Enabled || store == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[strings.ToUpper(req.Method)] {
                return next(c)
            }
            key := cacheKey(cfg, req)
            if raw, ok := store.Get(req.Context(), key); ok {
                var snap snapshot
                if json.Unmarshal(raw, &snap) == nil && snap.Status != 0 {
                    return replay(c, snap)
                }
            }

            rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set(headerCache, "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            raw, err := json.Marshal(snapshot{Status: rec.status, Header: c.Response().Header().Clone(), Body: rec.buf.Bytes()})
            if err == nil {
                _ = store.Set(context.Background(), key, raw, ttl)
            }
            return nil
        }
    }
}

func replay(c echo.Context, snap snapshot) error {
    h := c.Response().Header()
    for k, vals := range snap.Header {
        if k == echo.HeaderContentLength || k == headerCache {
            continue
        }
        h[k] = vals
    }
    h.Set(headerCache, "HIT")
    c.Response().WriteHeader(snap.Status)
    _, err := c.Response().Write(snap.Body)
    return err
}

// PurgeOnWrite drops every cached response after a successful write so
// lists and summaries never outlive a save, import or rollover.  Reads and
// failed writes leave the cache alone.
func PurgeOnWrite(cfg config.CacheConfig, store CacheStore, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || !cfg.PurgeOnWrite || store == nil {
        return passThrough
    }
    if log == nil {
        log = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            err := next(c)
            switch c.Request().Method {
            case http.MethodGet, http.MethodHead, http.MethodOptions:
                return err
            }
            if err == nil && c.Response().Status < http.StatusBadRequest {
                if perr := store.Purge(context.Background()); perr != nil {
                    log.Warn("cache purge failed", zap.Error(perr))
                }
            }
            return err
        }
    }
}
