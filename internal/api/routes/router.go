package routes

import (
	"net/http"

	"github.com/zatekoja/bloodlink/internal/api/handlers"
	"github.com/zatekoja/bloodlink/internal/api/middleware"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
)

// Handlers groups the route handlers served by the router
type Handlers struct {
	Donor        *handlers.DonorHandler
	Recipient    *handlers.RecipientHandler
	Hospital     *handlers.HospitalHandler
	Referral     *handlers.ReferralHandler
	Matching     *handlers.MatchingHandler
	Appointment  *handlers.AppointmentHandler
	Notification *handlers.NotificationHandler
}

// Router holds all route handlers
type Router struct {
	mux      *http.ServeMux
	handlers Handlers

	cacheMiddleware *middleware.CacheMiddleware
	limiter         providers.RateLimiter
	metrics         *observability.Metrics
	proxies         middleware.TrustedProxies
	readiness       map[string]Pinger
}

// NewRouter creates a new router. cacheMiddleware, limiter and metrics may be nil.
func NewRouter(
	h Handlers,
	cacheMiddleware *middleware.CacheMiddleware,
	limiter providers.RateLimiter,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		handlers:        h,
		cacheMiddleware: cacheMiddleware,
		limiter:         limiter,
		metrics:         metrics,
	}
}

// WithReadinessCheck adds a dependency to GET /ready
func (r *Router) WithReadinessCheck(name string, p Pinger) *Router {
	if r.readiness == nil {
		r.readiness = make(map[string]Pinger)
	}
	r.readiness[name] = p
	return r
}

// WithTrustedProxies lets the rate limiter read X-Forwarded-For from these proxies
func (r *Router) WithTrustedProxies(proxies middleware.TrustedProxies) *Router {
	r.proxies = proxies
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", health)
	r.mux.HandleFunc("GET /ready", readiness(r.readiness))

	// Donors
	r.mux.HandleFunc("POST /api/donors", r.handlers.Donor.CreateDonor)
	r.mux.HandleFunc("GET /api/donors", r.handlers.Donor.ListDonors)
	r.mux.HandleFunc("GET /api/donors/{id}", r.handlers.Donor.GetDonor)
	r.mux.HandleFunc("PATCH /api/donors/{id}", r.handlers.Donor.UpdateDonor)
	r.mux.HandleFunc("POST /api/donors/{id}/availability/refresh", r.handlers.Donor.RefreshAvailability)
	r.mux.HandleFunc("GET /api/donors/{id}/compatible-recipients", r.handlers.Donor.GetCompatibleRecipients)

	// Recipients
	r.mux.HandleFunc("POST /api/recipients", r.handlers.Recipient.CreateRecipient)
	r.mux.HandleFunc("GET /api/recipients", r.handlers.Recipient.ListRecipients)
	r.mux.HandleFunc("GET /api/recipients/{id}", r.handlers.Recipient.GetRecipient)
	r.mux.HandleFunc("PATCH /api/recipients/{id}", r.handlers.Recipient.UpdateRecipient)

	// Hospitals
	r.mux.HandleFunc("GET /api/hospitals", r.handlers.Hospital.ListHospitals)
	r.mux.HandleFunc("POST /api/hospitals", r.handlers.Hospital.CreateHospital)
	r.mux.HandleFunc("GET /api/hospitals/{id}", r.handlers.Hospital.GetHospital)
	r.mux.HandleFunc("PATCH /api/hospitals/{id}", r.handlers.Hospital.UpdateHospital)

	// Referrals
	r.mux.HandleFunc("POST /api/referrals", r.handlers.Referral.CreateReferral)
	r.mux.HandleFunc("GET /api/referrals", r.handlers.Referral.ListReferrals)
	r.mux.HandleFunc("GET /api/referrals/{id}", r.handlers.Referral.GetReferral)
	r.mux.HandleFunc("PATCH /api/referrals/{id}/status", r.handlers.Referral.UpdateReferralStatus)
	r.mux.HandleFunc("POST /api/referrals/{id}/schedule", r.handlers.Referral.ScheduleTransfusion)

	// Matching
	r.mux.HandleFunc("GET /api/matches", r.handlers.Matching.GetAllMatches)
	r.mux.HandleFunc("GET /api/compatible-recipients", r.handlers.Matching.GetCompatibleRecipients)
	r.mux.HandleFunc("GET /api/compatibility", r.handlers.Matching.CheckCompatibility)

	// Appointments
	r.mux.HandleFunc("POST /api/appointments", r.handlers.Appointment.BookAppointment)
	r.mux.HandleFunc("POST /api/appointments/{id}/cancel", r.handlers.Appointment.CancelAppointment)
	r.mux.HandleFunc("POST /api/appointments/{id}/complete", r.handlers.Appointment.CompleteAppointment)
	r.mux.HandleFunc("GET /api/users/{id}/appointments", r.handlers.Appointment.ListUserAppointments)

	// Notifications
	r.mux.HandleFunc("GET /api/users/{id}/notifications", r.handlers.Notification.ListUserNotifications)
	r.mux.HandleFunc("POST /api/notifications/{id}/read", r.handlers.Notification.MarkRead)

	// Apply middleware in reverse order (last middleware wraps first)
	handler := middleware.CaptureRoute(r.mux)
	handler = middleware.RateLimitMiddleware(r.limiter, r.metrics, r.proxies)(handler)
	handler = middleware.LoggingMiddleware(handler)
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	// CORS wraps everything so headers are set even on cache hits
	handler = middleware.CORSMiddleware(handler)

	return handler
}
