package middleware

import (
	"net/http"
	"os"
	"strings"
)

const (
	corsAllowMethods  = "GET, POST, PATCH, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, If-Match, If-None-Match, X-Request-ID"
	corsExposeHeaders = "ETag, Retry-After, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining"
	corsMaxAge        = "600"
)

// originPolicy is the parsed ALLOWED_ORIGINS setting: a comma-separated
// list of origins, or "*" (the default) for any origin
type originPolicy struct {
	any     bool
	origins map[string]struct{}
}

func loadOriginPolicy() originPolicy {
	policy := originPolicy{origins: map[string]struct{}{}}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		switch origin = strings.TrimSpace(origin); origin {
		case "":
		case "*":
			policy.any = true
		default:
			policy.origins[origin] = struct{}{}
		}
	}
	if len(policy.origins) == 0 {
		policy.any = true
	}
	return policy
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed
func (p originPolicy) allowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if p.any {
		return "*"
	}
	if _, ok := p.origins[origin]; ok {
		return origin
	}
	return ""
}

// CORSMiddleware adds CORS headers and answers preflight requests. The
// origin list is read from ALLOWED_ORIGINS when the middleware is built.
func CORSMiddleware(next http.Handler) http.Handler {
	policy := loadOriginPolicy()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if allowed := policy.allowOrigin(r.Header.Get("Origin")); allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				h.Add("Vary", "Origin")
			}
		}
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
