package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fisioagenda/scheduling-platform/internal/clinic"
	"github.com/fisioagenda/scheduling-platform/internal/http/handlers"
	httpmiddleware "github.com/fisioagenda/scheduling-platform/internal/http/middleware"
	"github.com/fisioagenda/scheduling-platform/internal/session"
	"github.com/fisioagenda/scheduling-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Scheduling         *handlers.SchedulingHandler
	ClinicHandler      *clinic.Handler
	SessionVerifier    *session.Verifier
	SubmitThrottle     *httpmiddleware.SubmitThrottle
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Session-scoped scheduling routes. Patients and staff share the same
	// availability surface; the coordinator applies the per-role horizon.
	r.Group(func(sess chi.Router) {
		sess.Use(httpmiddleware.RequireSession(cfg.SessionVerifier))

		sess.Route("/api", func(api chi.Router) {
			api.Get("/availability", cfg.Scheduling.GetAvailability)
			api.Get("/days", cfg.Scheduling.GetDays)
			api.Get("/treatments", cfg.Scheduling.GetTreatments)
			if cfg.SubmitThrottle != nil {
				api.With(cfg.SubmitThrottle.Middleware).Post("/appointments", cfg.Scheduling.PostAppointment)
			} else {
				api.Post("/appointments", cfg.Scheduling.PostAppointment)
			}
		})

		// Staff-only routes: reschedule, complete, clinic settings.
		sess.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireAdmin)
			admin.Mount("/", cfg.Scheduling.AdminRoutes())
			if cfg.ClinicHandler != nil {
				admin.Mount("/clinic", cfg.ClinicHandler.Routes())
			}
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
