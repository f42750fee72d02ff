package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7420" || cfg.Transport != "tcp" || cfg.Dimension != 1536 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Listen != cfg.Listen || reloaded.IndexBackend != cfg.IndexBackend {
		t.Fatalf("reloaded config mismatch: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded.Listen = ":9999"
	loaded.Embedder.Provider = "openai"
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Listen != ":9999" || reloaded.Embedder.Provider != "openai" {
		t.Fatalf("overrides not persisted: %+v", reloaded)
	}
}
