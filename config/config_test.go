package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("KUIS_LOGIN_URL", "https://kuis.example/login")
	t.Setenv("KUIS_API_SKELETON_URL", "https://kuis.example/skeleton")
	t.Setenv("KUIS_NOTICE_URL", "https://kuis.example/notice")
	t.Setenv("KUIS_ID", "id")
	t.Setenv("KUIS_PASSWORD", "pw")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DeployEnv != "dev" {
		t.Errorf("DeployEnv = %q, want dev", cfg.DeployEnv)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.FetchIntervalMinutes != 10 || cfg.ScrapeIntervalHours != 24 {
		t.Errorf("unexpected intervals: %d %d", cfg.FetchIntervalMinutes, cfg.ScrapeIntervalHours)
	}
	if cfg.LibraryURL == "" || cfg.StaffBaseURL == "" || cfg.NormalBaseURL == "" || cfg.LibraryBaseURL == "" {
		t.Error("expected upstream URL defaults to be populated")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("KUIS_PASSWORD", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "KUIS_PASSWORD") {
		t.Fatalf("expected missing-variable error naming KUIS_PASSWORD, got %v", err)
	}
}

func TestLoadRejectsBadDeployEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("DEPLOY_ENV", "staging")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown deploy env")
	}
}

func TestLoadRejectsBadIntervals(t *testing.T) {
	setRequired(t)
	t.Setenv("FETCH_INTERVAL_MINUTES", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable interval")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DEPLOY_ENV", "prod")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("DATABASE_PATH", "/var/lib/kuring/kuring.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DeployEnv != "prod" {
		t.Errorf("DeployEnv = %q, want prod", cfg.DeployEnv)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
	if cfg.DatabasePath != "/var/lib/kuring/kuring.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
}
