package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"SERVER_PORT", "STORE_DRIVER", "ATTENDANCE_TIMEZONE", "RATE_LIMIT_PER_MINUTE",
		"CORS_ALLOWED_ORIGINS", "STORE_CONNECT_ATTEMPTS", "REDIS_URL", "TRACE_SAMPLE_RATIO",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverPostgres)
	}
	if cfg.TimeZone.String() != "UTC" {
		t.Errorf("TimeZone = %s, want UTC", cfg.TimeZone)
	}
	if cfg.RateLimit != 300 {
		t.Errorf("RateLimit = %d, want 300", cfg.RateLimit)
	}
	if cfg.SampleRatio != 1 {
		t.Errorf("SampleRatio = %v, want 1", cfg.SampleRatio)
	}
	if cfg.ConnectAttempts != 5 {
		t.Errorf("ConnectAttempts = %d, want 5", cfg.ConnectAttempts)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins = %v, want two defaults", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("ATTENDANCE_TIMEZONE", "UTC")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("STORE_CONNECT_ATTEMPTS", "1")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverMemory)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %d, want 0", cfg.RateLimit)
	}
	if cfg.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %v, want 0.25", cfg.SampleRatio)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port", "SERVER_PORT", "http"},
		{"driver", "STORE_DRIVER", "sqlite"},
		{"timezone", "ATTENDANCE_TIMEZONE", "Mars/Olympus"},
		{"rate limit", "RATE_LIMIT_PER_MINUTE", "-1"},
		{"attempts", "STORE_CONNECT_ATTEMPTS", "0"},
		{"sample ratio", "TRACE_SAMPLE_RATIO", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}
