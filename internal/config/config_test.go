package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Server defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected Server.Host to be 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected Server.Port to be 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Secure {
		t.Error("expected Server.Secure to be false")
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("expected Server.Environment to be development, got %s", cfg.Server.Environment)
	}

	// Backend
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("expected API.BaseURL to be http://localhost:8000, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 60*time.Second {
		t.Errorf("expected API.Timeout to be 60s, got %s", cfg.API.Timeout)
	}

	// Progress
	if cfg.Progress.Step != 10 || cfg.Progress.Cap != 90 {
		t.Errorf("expected step 10 cap 90, got step %d cap %d", cfg.Progress.Step, cfg.Progress.Cap)
	}
	if cfg.Progress.Interval != 300*time.Millisecond || cfg.Progress.Hold != 300*time.Millisecond {
		t.Errorf("expected 300ms interval and hold, got %s / %s", cfg.Progress.Interval, cfg.Progress.Hold)
	}

	// Session
	if cfg.Session.TTL != time.Hour {
		t.Errorf("expected Session.TTL to be 1h, got %s", cfg.Session.TTL)
	}
	if cfg.Session.Cookie != "plant_session" {
		t.Errorf("expected Session.Cookie to be plant_session, got %s", cfg.Session.Cookie)
	}

	// Optional stores are off unless asked for
	if cfg.Redis.Enabled || cfg.Database.Enabled {
		t.Error("expected Redis and Database to be disabled by default")
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("expected redis addr localhost:6379, got %s", cfg.Redis.Addr())
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"API_BASE_URL":      "https://plants.example.com/",
		"SERVER_PORT":       "9090",
		"PROGRESS_INTERVAL": "100ms",
		"REDIS_ENABLED":     "true",
		"DB_ENABLED":        "true",
		"DB_USER":           "u",
		"DB_PASSWORD":       "p",
		"DB_HOST":           "db",
		"DB_NAME":           "guides",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "https://plants.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.API.BaseURL)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Progress.Interval != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %s", cfg.Progress.Interval)
	}
	if !cfg.Redis.Enabled || !cfg.Database.Enabled {
		t.Error("expected Redis and Database to be enabled")
	}
	want := "postgres://u:p@db:5432/guides?sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Errorf("expected DSN %s, got %s", want, got)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"relative base url", map[string]string{"API_BASE_URL": "localhost:8000/api"}, "API_BASE_URL"},
		{"cap at 100", map[string]string{"PROGRESS_CAP": "100"}, "PROGRESS_CAP"},
		{"zero step", map[string]string{"PROGRESS_STEP": "0"}, "PROGRESS_STEP"},
		{"bad port", map[string]string{"SERVER_PORT": "eighty"}, "parse env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error to mention %q, got %v", tt.wantErr, err)
			}
		})
	}
}
