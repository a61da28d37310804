package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("KAABE_DOTENV", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:8000" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
	if cfg.DashboardPollInterval != 15*time.Second {
		t.Fatalf("dashboard poll = %v, want 15s", cfg.DashboardPollInterval)
	}
	if cfg.NotificationPollInterval != 30*time.Second {
		t.Fatalf("notification poll = %v, want 30s", cfg.NotificationPollInterval)
	}
	if cfg.HTTPTimeout != 0 {
		t.Fatalf("http timeout = %v, want none", cfg.HTTPTimeout)
	}
	if cfg.RevenuePerProUser != 10000 {
		t.Fatalf("revenue per pro = %d", cfg.RevenuePerProUser)
	}
}

func TestLoadEnvOverridesAndTrimsURL(t *testing.T) {
	isolate(t)
	t.Setenv("KAABE_API_URL", "https://api.kaabe.test/ ")
	t.Setenv("KAABE_NOTIFICATION_POLL_INTERVAL", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "https://api.kaabe.test" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
	if cfg.NotificationPollInterval != 5*time.Second {
		t.Fatalf("notification poll = %v", cfg.NotificationPollInterval)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KAABE_REDIS_URL=redis://localhost:6379/0\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("KAABE_DOTENV", path)
	t.Cleanup(func() { _ = os.Unsetenv("KAABE_REDIS_URL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("redis url = %q", cfg.RedisURL)
	}
}

func TestLoadRejectsInvalidURL(t *testing.T) {
	isolate(t)
	t.Setenv("KAABE_API_URL", "not a url")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected invalid api_url error")
	}
}
