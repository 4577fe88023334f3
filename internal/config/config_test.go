package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":8080")
	}
	if cfg.DBPath != "/data/opsboard.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/data/opsboard.db")
	}
	if cfg.PageLimit != 10 {
		t.Errorf("PageLimit = %d, want 10", cfg.PageLimit)
	}
	if cfg.Env != "prod" {
		t.Errorf("Env = %q, want %q", cfg.Env, "prod")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPSBOARD_LISTEN", ":9090")
	t.Setenv("OPSBOARD_DB_PATH", "/tmp/test.db")
	t.Setenv("OPSBOARD_PAGE_LIMIT", "25")
	t.Setenv("OPSBOARD_AUTH_USER", "admin")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.PageLimit != 25 {
		t.Errorf("PageLimit = %d, want 25", cfg.PageLimit)
	}
	if cfg.AuthUser != "admin" {
		t.Errorf("AuthUser = %q, want %q", cfg.AuthUser, "admin")
	}
}

func TestLoadRejectsNonPositiveLimit(t *testing.T) {
	t.Setenv("OPSBOARD_PAGE_LIMIT", "0")

	if _, err := Load(); err == nil {
		t.Error("Load() accepted zero page limit, want error")
	}
}
