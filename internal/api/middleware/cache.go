package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
)

const responseCachePrefix = "http:cache:"

// CacheMiddleware caches successful GET responses for routes whose output
// depends only on the request URL. Every other route passes straight
// through.
type CacheMiddleware struct {
	cache   providers.CacheProvider
	metrics *observability.Metrics
	routes  map[string]time.Duration
}

// CacheOption customises a CacheMiddleware
type CacheOption func(*CacheMiddleware)

// WithCachedRoute caches GET responses for path for ttl. A path ending in
// "/" matches every path below it.
func WithCachedRoute(path string, ttl time.Duration) CacheOption {
	return func(m *CacheMiddleware) {
		m.routes[path] = ttl
	}
}

// WithCacheMetrics records hits and misses on metrics
func WithCacheMetrics(metrics *observability.Metrics) CacheOption {
	return func(m *CacheMiddleware) {
		m.metrics = metrics
	}
}

// NewCacheMiddleware caches the compatibility lookup for a day unless opts
// configure other routes
func NewCacheMiddleware(cache providers.CacheProvider, opts ...CacheOption) *CacheMiddleware {
	m := &CacheMiddleware{cache: cache, routes: map[string]time.Duration{}}
	for _, opt := range opts {
		opt(m)
	}
	if len(m.routes) == 0 {
		m.routes["/api/compatibility"] = 24 * time.Hour
	}
	return m
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ttl, ok := m.ttlFor(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := responseCacheKey(r)

		if !strings.Contains(r.Header.Get("Cache-Control"), "no-cache") {
			if cached, err := m.cache.Get(ctx, key); err == nil {
				observability.RecordCacheHit(ctx, m.metrics, r.URL.Path)
				w.Header().Set("X-Cache", "HIT")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(cached)
				return
			}
		}
		observability.RecordCacheMiss(ctx, m.metrics, r.URL.Path)

		w.Header().Set("X-Cache", "MISS")
		capture := &bodyCapture{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(capture, r)

		if capture.statusCode != http.StatusOK || capture.body.Len() == 0 {
			return
		}
		if err := m.cache.Set(ctx, key, capture.body.Bytes(), int(ttl.Seconds())); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("path", r.URL.Path).Msg("failed to cache response")
		}
	})
}

func (m *CacheMiddleware) ttlFor(r *http.Request) (time.Duration, bool) {
	if r.Method != http.MethodGet || m.cache == nil {
		return 0, false
	}
	if ttl, ok := m.routes[r.URL.Path]; ok {
		return ttl, ttl > 0
	}
	for prefix, ttl := range m.routes {
		if strings.HasSuffix(prefix, "/") && strings.HasPrefix(r.URL.Path, prefix) {
			return ttl, ttl > 0
		}
	}
	return 0, false
}

// responseCacheKey hashes the path and the sorted query so parameter order
// does not split entries
func responseCacheKey(r *http.Request) string {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}
	sum := sha256.Sum256([]byte(key))
	return responseCachePrefix + hex.EncodeToString(sum[:])
}

// bodyCapture tees the response body so it can be cached once complete
type bodyCapture struct {
	http.ResponseWriter
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func (c *bodyCapture) WriteHeader(statusCode int) {
	if c.wroteHeader {
		log.Debug().Int("status", statusCode).Msg("superfluous WriteHeader on cached route")
		return
	}
	c.statusCode = statusCode
	c.wroteHeader = true
	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *bodyCapture) Write(data []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.body.Write(data)
	return c.ResponseWriter.Write(data)
}
