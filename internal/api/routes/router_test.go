package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/adapters/cache"
	"github.com/zatekoja/bloodlink/internal/adapters/memory"
	"github.com/zatekoja/bloodlink/internal/adapters/ratelimit"
	"github.com/zatekoja/bloodlink/internal/api/handlers"
	"github.com/zatekoja/bloodlink/internal/api/middleware"
	"github.com/zatekoja/bloodlink/internal/api/routes"
	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	redisclient "github.com/zatekoja/bloodlink/internal/infrastructure/clients/redis"
)

func newServer(t *testing.T, limiter providers.RateLimiter) http.Handler {
	t.Helper()
	store := memory.NewStore()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cacheProvider := cache.NewRedisAdapter(redisclient.NewFromClient(client))

	matching := services.NewMatchingService(store, cacheProvider, 60)
	h := routes.Handlers{
		Donor:        handlers.NewDonorHandler(services.NewDonorService(store), matching),
		Recipient:    handlers.NewRecipientHandler(services.NewRecipientService(store)),
		Hospital:     handlers.NewHospitalHandler(services.NewHospitalService(store.Hospitals())),
		Referral:     handlers.NewReferralHandler(services.NewReferralService(store)),
		Matching:     handlers.NewMatchingHandler(matching),
		Appointment:  handlers.NewAppointmentHandler(services.NewAppointmentService(store)),
		Notification: handlers.NewNotificationHandler(services.NewNotificationService(store.Notifications())),
	}
	return routes.NewRouter(h, middleware.NewCacheMiddleware(cacheProvider), limiter, nil).SetupRoutes()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	srv := newServer(t, nil)

	w := serve(srv, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRouter_Readiness(t *testing.T) {
	newRouter := func() *routes.Router {
		store := memory.NewStore()
		matching := services.NewMatchingService(store, nil, 0)
		return routes.NewRouter(routes.Handlers{
			Donor:        handlers.NewDonorHandler(services.NewDonorService(store), matching),
			Recipient:    handlers.NewRecipientHandler(services.NewRecipientService(store)),
			Hospital:     handlers.NewHospitalHandler(services.NewHospitalService(store.Hospitals())),
			Referral:     handlers.NewReferralHandler(services.NewReferralService(store)),
			Matching:     handlers.NewMatchingHandler(matching),
			Appointment:  handlers.NewAppointmentHandler(services.NewAppointmentService(store)),
			Notification: handlers.NewNotificationHandler(services.NewNotificationService(store.Notifications())),
		}, nil, nil, nil)
	}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	srv := newRouter().WithReadinessCheck("postgres", ok).SetupRoutes()
	w := serve(srv, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"}}`, w.Body.String())

	srv = newRouter().
		WithReadinessCheck("postgres", ok).
		WithReadinessCheck("redis", down).
		SetupRoutes()
	w = serve(srv, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"postgres":"ok","redis":"connection refused"}}`, w.Body.String())
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	srv := newServer(t, nil)

	w := serve(srv, httptest.NewRequest("GET", "/api/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(srv, httptest.NewRequest("DELETE", "/api/donors", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := newServer(t, nil)

	req := httptest.NewRequest("OPTIONS", "/api/referrals/abc/status", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := serve(srv, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "If-Match")
}

func TestRouter_PathValuesReachHandlers(t *testing.T) {
	srv := newServer(t, nil)

	w := serve(srv, httptest.NewRequest("GET", "/api/donors/missing-donor", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "missing-donor")
}

func TestRouter_RateLimitsMutations(t *testing.T) {
	srv := newServer(t, ratelimit.NewMemoryLimiter(2, time.Minute))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/hospitals", strings.NewReader(`{"name":"General"}`))
		req.RemoteAddr = "10.0.0.7:4321"
		return serve(srv, req)
	}

	assert.Equal(t, http.StatusCreated, post().Code)
	second := post()
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := post()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))

	// reads are not limited
	req := httptest.NewRequest("GET", "/api/hospitals", nil)
	req.RemoteAddr = "10.0.0.7:4321"
	assert.Equal(t, http.StatusOK, serve(srv, req).Code)

	// other clients have their own window
	req = httptest.NewRequest("POST", "/api/hospitals", strings.NewReader(`{"name":"Other"}`))
	req.RemoteAddr = "10.0.0.8:4321"
	assert.Equal(t, http.StatusCreated, serve(srv, req).Code)

	// a forged forwarding header does not open a new window
	req = httptest.NewRequest("POST", "/api/hospitals", strings.NewReader(`{"name":"Forged"}`))
	req.RemoteAddr = "10.0.0.7:4321"
	req.Header.Set("X-Forwarded-For", "198.51.100.99")
	assert.Equal(t, http.StatusTooManyRequests, serve(srv, req).Code)
}

func TestRouter_CompatibilityIsCached(t *testing.T) {
	srv := newServer(t, nil)

	first := serve(srv, httptest.NewRequest("GET", "/api/compatibility?donor=O-&recipient=A%2B", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=86400", first.Header().Get("Cache-Control"))

	second := serve(srv, httptest.NewRequest("GET", "/api/compatibility?donor=O-&recipient=A%2B", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestRouter_ETag(t *testing.T) {
	srv := newServer(t, nil)

	first := serve(srv, httptest.NewRequest("GET", "/api/hospitals", nil))
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/api/hospitals", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, serve(srv, req).Code)
}
