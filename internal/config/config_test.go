package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvOverridesDefaults(t *testing.T) {
	env := map[string]string{
		"PORT":                "9000",
		"STORE_BACKEND":       "REDIS",
		"LOGIN_PROMPT_TTL":    "5s",
		"ADMIN_POLL_INTERVAL": "not-a-duration",
		"MAX_PROFILES":        "250",
		"PROFILE_IDLE":        "-1m",
	}
	cfg := Defaults()
	applyEnv(&cfg, func(k string) string { return env[k] })

	if cfg.Port != "9000" {
		t.Fatalf("want port 9000, got %q", cfg.Port)
	}
	if cfg.StoreBackend != "redis" {
		t.Fatalf("backend should be lower-cased, got %q", cfg.StoreBackend)
	}
	if cfg.LoginPromptTTL != 5*time.Second {
		t.Fatalf("want 5s prompt ttl, got %v", cfg.LoginPromptTTL)
	}
	if cfg.AdminPollInterval != 15*time.Second {
		t.Fatalf("bad duration must keep default, got %v", cfg.AdminPollInterval)
	}
	if cfg.MaxProfiles != 250 {
		t.Fatalf("want 250 max profiles, got %d", cfg.MaxProfiles)
	}
	if cfg.ProfileIdle != 30*time.Minute {
		t.Fatalf("negative idle must keep default, got %v", cfg.ProfileIdle)
	}
	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Fatalf("unset keys keep defaults, got %q", cfg.APIBaseURL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cdrive.yaml")
	body := "api_base_url: http://api.test/api\nstore_backend: redis\nnotice_ttl: 2s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CDRIVE_CONFIG", path)
	t.Setenv("STORE_BACKEND", "sqlite")

	cfg := Load()
	if cfg.APIBaseURL != "http://api.test/api" {
		t.Fatalf("file value not applied: %q", cfg.APIBaseURL)
	}
	if cfg.StoreBackend != "sqlite" {
		t.Fatalf("env must win over file, got %q", cfg.StoreBackend)
	}
	if cfg.NoticeTTL != 2*time.Second {
		t.Fatalf("want 2s notice ttl, got %v", cfg.NoticeTTL)
	}
}
