package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	skgerrors "skg/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load with no config file: %v", err)
	}
	if cfg.Cascade.MaxHops != 2 || cfg.Cascade.MaxEntities != 100 {
		t.Errorf("cascade defaults wrong: %+v", cfg.Cascade)
	}
	if cfg.Storage.DBPath != filepath.Join(dir, ".skg", "skg.db") {
		t.Errorf("dbPath = %s", cfg.Storage.DBPath)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	skgDir := filepath.Join(dir, ".skg")
	if err := os.MkdirAll(skgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
orgId: acme
repoId: billing
cascade:
  maxHops: 3
  maxEntities: 250
  centralityThreshold: 40
logging:
  format: json
`
	if err := os.WriteFile(filepath.Join(skgDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OrgID != "acme" || cfg.RepoID != "billing" {
		t.Errorf("scope = %s/%s", cfg.OrgID, cfg.RepoID)
	}
	if cfg.Cascade.MaxHops != 3 || cfg.Cascade.MaxEntities != 250 || cfg.Cascade.CentralityThreshold != 40 {
		t.Errorf("cascade = %+v", cfg.Cascade)
	}
	// Unset keys keep their defaults.
	if cfg.Cascade.SignificanceThreshold != 0.1 {
		t.Errorf("significanceThreshold = %v, want default 0.1", cfg.Cascade.SignificanceThreshold)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("logging.format = %s", cfg.Logging.Format)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SKG_PROVIDER_APIKEY", "sk-test-123")
	t.Setenv("SKG_PROVIDER_EMBEDDINGMODEL", "text-embedding-3-large")
	t.Setenv("SKG_CASCADE_MAXHOPS", "7")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	// The api key is environment-only, so it must survive without ever
	// appearing in a config file.
	if cfg.Provider.APIKey != "sk-test-123" {
		t.Errorf("provider.apiKey = %q, want env value", cfg.Provider.APIKey)
	}
	if cfg.Provider.EmbeddingModel != "text-embedding-3-large" {
		t.Errorf("provider.embeddingModel = %q, want env value", cfg.Provider.EmbeddingModel)
	}
	if cfg.Cascade.MaxHops != 7 {
		t.Errorf("cascade.maxHops = %d, want 7", cfg.Cascade.MaxHops)
	}
}

func TestValidateRejectsBadCaps(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Cascade.MaxEntities = 0
	if err := cfg.Validate(); err == nil {
		t.Error("maxEntities=0 passed validation")
	}

	cfg = Default(t.TempDir())
	cfg.Quarantine.UnitTimeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative unitTimeout passed validation")
	}

	cfg = Default(t.TempDir())
	cfg.Cascade.SignificanceThreshold = 1.5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("significanceThreshold=1.5 passed validation")
	}
	if code := skgerrors.CodeOf(err); code != skgerrors.ConfigInvalid {
		t.Errorf("error code = %s, want %s", code, skgerrors.ConfigInvalid)
	}
}
