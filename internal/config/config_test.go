package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the env vars without which Load fails validation.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected release mode, got %q", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("expected /api/v1, got %q", cfg.APIBasePath)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.WS.SendBuffer != 64 {
		t.Fatalf("expected send buffer 64, got %d", cfg.WS.SendBuffer)
	}
	if cfg.WS.PongWait <= cfg.WS.PingInterval {
		t.Fatal("default pong wait must exceed ping interval")
	}
	if cfg.OTEL.Enabled {
		t.Fatal("tracing must be opt-in")
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET validation error, got %v", err)
	}
}

func TestLoad_NormalizesValues(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("API_BASE_PATH", "api/v2/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected warn, got %q", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("unknown gin mode must fall back to release, got %q", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Fatalf("expected normalized /api/v2, got %q", cfg.APIBasePath)
	}
}

func TestLoad_RejectsInvertedPingPong(t *testing.T) {
	setRequired(t)
	t.Setenv("WS_PING_INTERVAL", "30s")
	t.Setenv("WS_PONG_WAIT", "10s")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "WS_PONG_WAIT") {
		t.Fatalf("expected pong/ping validation error, got %v", err)
	}
}

func TestLoad_RejectsBadSampleRatio(t *testing.T) {
	setRequired(t)
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")

	if _, err := Load(); err == nil {
		t.Fatal("expected sample ratio validation error")
	}
}

func TestLoad_ParsesCSVAndDurations(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("READ_TIMEOUT", "5s")
	t.Setenv("RATE_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("expected 5s read timeout, got %v", cfg.ReadTimeout)
	}
	if cfg.RateRPS != 2.5 {
		t.Fatalf("expected rate 2.5, got %v", cfg.RateRPS)
	}
}
