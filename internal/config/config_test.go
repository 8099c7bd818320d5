package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "groq" {
		t.Fatalf("expected default provider groq, got %s", cfg.Provider)
	}
	if cfg.VectorStore != "memory" {
		t.Fatalf("expected default vector store memory, got %s", cfg.VectorStore)
	}
	if cfg.OverfetchFactor != 4 {
		t.Fatalf("expected default overfetch factor 4, got %d", cfg.OverfetchFactor)
	}
	if cfg.GenerateTimeout != 45*time.Second {
		t.Fatalf("expected default generate timeout 45s, got %s", cfg.GenerateTimeout)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "provider: ollama\ntop_k_default: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PROVIDER", "groq")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "groq" {
		t.Fatalf("expected env to override file, got provider %s", cfg.Provider)
	}
	if cfg.TopKDefault != 7 {
		t.Fatalf("expected file override top_k_default=7, got %d", cfg.TopKDefault)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("PROVIDER", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestLoadRejectsOverfetchFactorOne(t *testing.T) {
	t.Setenv("RETRIEVE_OVERFETCH_FACTOR", "1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for overfetch factor <= 1")
	}
}
