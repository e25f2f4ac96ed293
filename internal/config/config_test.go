package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(TierEnv, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Tier != domain.TierCommunity {
		t.Errorf("expected community tier, got %s", cfg.Tier)
	}
	if cfg.Repository.Driver != "sqlite" || cfg.Cache.Type != "memory" || cfg.EventBus.Type != "channel" {
		t.Errorf("unexpected community stack: %s/%s/%s",
			cfg.Repository.Driver, cfg.Cache.Type, cfg.EventBus.Type)
	}
	if cfg.Thresholds.ExtremeAmount != 200000 {
		t.Errorf("unexpected extreme amount %v", cfg.Thresholds.ExtremeAmount)
	}
}

func TestLoadProTier(t *testing.T) {
	t.Setenv(TierEnv, "pro")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Tier != domain.TierPro {
		t.Errorf("expected pro tier, got %s", cfg.Tier)
	}
	if cfg.Repository.Driver != "postgres" || cfg.Cache.Type != "redis" || cfg.EventBus.Type != "nats" {
		t.Errorf("unexpected pro stack: %s/%s/%s",
			cfg.Repository.Driver, cfg.Cache.Type, cfg.EventBus.Type)
	}
}

func TestLoadOverlay(t *testing.T) {
	t.Setenv(TierEnv, "")

	path := writeConfig(t, `
server:
  port: 9090
thresholds:
  high_amount: 60000
classifier:
  model_path: /opt/models/fraud.json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("overlay port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Thresholds.HighAmount != 60000 {
		t.Errorf("overlay high amount = %v, want 60000", cfg.Thresholds.HighAmount)
	}
	if cfg.Classifier.ModelPath != "/opt/models/fraud.json" {
		t.Errorf("overlay model path = %q", cfg.Classifier.ModelPath)
	}

	// Unset fields keep their defaults.
	if cfg.Thresholds.ExtremeAmount != 200000 {
		t.Errorf("default extreme amount lost: %v", cfg.Thresholds.ExtremeAmount)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default host lost: %q", cfg.Server.Host)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv(TierEnv, "")
	t.Setenv("TEST_DB_PATH", "/tmp/envtest.db")

	path := writeConfig(t, `
repository:
  sqlite_path: ${TEST_DB_PATH}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Repository.SQLitePath != "/tmp/envtest.db" {
		t.Errorf("env expansion failed: %q", cfg.Repository.SQLitePath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Setenv(TierEnv, "")
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv(TierEnv, "")

	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: -1\n"},
		{"inverted amounts", "thresholds:\n  high_amount: 999999999\n"},
		{"bad hour", "thresholds:\n  late_night_end: 99\n"},
		{"bad confidence", "thresholds:\n  neutral_prior: 2.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
