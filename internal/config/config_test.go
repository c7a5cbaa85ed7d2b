package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRACKTIVITY_USER", "")
	os.Unsetenv("TRACKTIVITY_USER")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.User != "main_user" {
		t.Fatalf("User=%q, want main_user", cfg.User)
	}
	if cfg.RecapCacheTTL != 168*time.Hour {
		t.Fatalf("RecapCacheTTL=%v, want 168h", cfg.RecapCacheTTL)
	}
	if cfg.RecapPlaceholders {
		t.Fatalf("placeholders should default off")
	}
}

func TestLoadDotenvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "TRACKTIVITY_USER=from_file\nTRACKTIVITY_RECAP_MAX_ITEMS=3\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("TRACKTIVITY_USER", "from_env")
	t.Setenv("TRACKTIVITY_RECAP_MAX_ITEMS", "")
	os.Unsetenv("TRACKTIVITY_RECAP_MAX_ITEMS")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.User != "from_env" {
		t.Fatalf("User=%q, want from_env", cfg.User)
	}
	if cfg.RecapMaxItems != 3 {
		t.Fatalf("RecapMaxItems=%d, want 3", cfg.RecapMaxItems)
	}
}

func TestLoadRejectsNegativeMaxItems(t *testing.T) {
	t.Setenv("TRACKTIVITY_RECAP_MAX_ITEMS", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}
