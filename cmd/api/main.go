package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fisioagenda/scheduling-platform/internal/api/router"
	"github.com/fisioagenda/scheduling-platform/internal/backend"
	"github.com/fisioagenda/scheduling-platform/internal/booking"
	"github.com/fisioagenda/scheduling-platform/internal/clinic"
	appconfig "github.com/fisioagenda/scheduling-platform/internal/config"
	"github.com/fisioagenda/scheduling-platform/internal/http/handlers"
	httpmiddleware "github.com/fisioagenda/scheduling-platform/internal/http/middleware"
	"github.com/fisioagenda/scheduling-platform/internal/observability/metrics"
	"github.com/fisioagenda/scheduling-platform/internal/session"
	"github.com/fisioagenda/scheduling-platform/pkg/logging"
)

func main() {
	// Load .env in development; ignore absence in deployed environments.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"clinic_timezone", cfg.ClinicTimezone,
	)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// CSRF tokens are a first-class dependency of the backend client, not a
	// hidden global: the client cannot mutate anything without this source.
	tokens := backend.NewCSRFTokenSource(cfg.BackendBaseURL, nil)
	backendClient, err := backend.NewClient(backend.Config{
		BaseURL:    cfg.BackendBaseURL,
		APIKey:     cfg.BackendAPIKey,
		HTTPClient: &http.Client{Timeout: cfg.BackendTimeout},
		Tokens:     tokens,
	})
	if err != nil {
		logger.Error("failed to build backend client", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Deploy-time scheduling defaults apply until staff save settings.
	schedulingDefaults := clinic.DefaultSettings()
	schedulingDefaults.Timezone = cfg.ClinicTimezone
	schedulingDefaults.PatientHorizonDays = cfg.PatientHorizonDays
	schedulingDefaults.AdminHorizonDays = cfg.AdminHorizonDays
	if err := schedulingDefaults.Validate(); err != nil {
		logger.Error("invalid scheduling configuration", "error", err)
		os.Exit(1)
	}

	clinicStore := clinic.NewStore(redisClient, schedulingDefaults)
	coordinator := booking.NewCoordinator(booking.Deps{
		Appointments: backendClient,
		Treatments:   backendClient,
		Settings:     clinicStore,
		Sessions:     session.ContextProvider{},
		Metrics:      bookingMetrics,
		Logger:       logger,
	})

	schedulingHandler := handlers.NewSchedulingHandler(coordinator, logger)
	clinicHandler := clinic.NewHandler(clinicStore, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Scheduling:         schedulingHandler,
		ClinicHandler:      clinicHandler,
		SessionVerifier:    session.NewVerifier(cfg.SessionJWTSecret),
		SubmitThrottle:     httpmiddleware.NewSubmitThrottle(1, 5),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
