package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/homecare-booking/internal/http/middleware"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/internal/web"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Site           *web.Site
	API            *web.API
	Identity       *identity.Manager
	MetricsHandler http.Handler

	CORSAllowedOrigins []string

	// BookingLimiter throttles booking submissions and login starts per
	// client IP. Nil disables throttling.
	BookingLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(httpmiddleware.SecurityHeaders)

	throttle := func(h http.HandlerFunc) http.Handler {
		if cfg.BookingLimiter == nil {
			return h
		}
		return httpmiddleware.RateLimit(cfg.BookingLimiter)(h)
	}

	// Public endpoints (health checks, metrics); no session is created.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Visitor-facing routes share one identity session.
	r.Group(func(visitor chi.Router) {
		if cfg.Identity != nil {
			visitor.Use(cfg.Identity.Middleware)
		}

		if site := cfg.Site; site != nil {
			visitor.Get("/", site.Home)
			visitor.Get("/services", site.Services)
			visitor.Get("/services/{serviceID}", site.ServiceDetail)
			visitor.Get("/booking", site.BookingForm)
			visitor.Method(http.MethodPost, "/booking", throttle(site.SubmitBooking))
			visitor.Get("/my-bookings", site.MyBookings)
			visitor.Method(http.MethodGet, "/login", throttle(site.Login))
			visitor.Get("/auth/callback", site.AuthCallback)
			visitor.Post("/logout", site.Logout)
		}

		if api := cfg.API; api != nil {
			visitor.Route("/api", func(r chi.Router) {
				if len(cfg.CORSAllowedOrigins) > 0 {
					r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
				}
				r.Get("/services", api.ListServices)
				r.Get("/services/{serviceID}", api.GetService)
				r.Get("/bookings", api.ListBookings)
				r.Method(http.MethodPost, "/bookings", throttle(api.CreateBooking))
			})
		}
	})

	if cfg.Site != nil {
		r.NotFound(cfg.Site.NotFound)
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
