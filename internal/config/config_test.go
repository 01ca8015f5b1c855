package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CLINIC_TIMEZONE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ClinicTimezone != "America/Mexico_City" {
		t.Fatalf("expected default clinic timezone, got %s", cfg.ClinicTimezone)
	}
	if cfg.PatientHorizonDays != 30 {
		t.Fatalf("expected default patient horizon, got %d", cfg.PatientHorizonDays)
	}
	if cfg.AdminHorizonDays != 90 {
		t.Fatalf("expected default admin horizon, got %d", cfg.AdminHorizonDays)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Fatalf("expected default backend timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CLINIC_TIMEZONE", "America/Monterrey")
	t.Setenv("BACKEND_BASE_URL", "https://api.clinic.example")
	t.Setenv("BACKEND_TIMEOUT", "30s")
	t.Setenv("PATIENT_HORIZON_DAYS", "14")
	t.Setenv("ADMIN_HORIZON_DAYS", "120")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://portal.clinic.example, https://admin.clinic.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.ClinicTimezone != "America/Monterrey" {
		t.Fatalf("expected timezone override, got %s", cfg.ClinicTimezone)
	}
	if cfg.BackendBaseURL != "https://api.clinic.example" {
		t.Fatalf("expected backend override, got %s", cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 30*time.Second {
		t.Fatalf("expected backend timeout override, got %s", cfg.BackendTimeout)
	}
	if cfg.PatientHorizonDays != 14 {
		t.Fatalf("expected patient horizon override, got %d", cfg.PatientHorizonDays)
	}
	if cfg.AdminHorizonDays != 120 {
		t.Fatalf("expected admin horizon override, got %d", cfg.AdminHorizonDays)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.clinic.example" {
		t.Fatalf("expected CORS origins override, got %v", cfg.CORSAllowedOrigins)
	}
}
