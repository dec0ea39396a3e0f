package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.Mode != "auto" {
		t.Errorf("Mode = %q, want %q", cfg.Defaults.Mode, "auto")
	}
	if cfg.Defaults.MaxHops != 30 {
		t.Errorf("MaxHops = %d, want 30", cfg.Defaults.MaxHops)
	}
	if cfg.Defaults.Timeout != 1*time.Second {
		t.Errorf("Timeout = %v, want 1s", cfg.Defaults.Timeout)
	}
	if cfg.Defaults.Port != 443 {
		t.Errorf("Port = %d, want 443", cfg.Defaults.Port)
	}
	if !cfg.Defaults.Enrichment.Enabled {
		t.Error("Enrichment.Enabled should default to true")
	}
	if cfg.MaxMind.Enabled {
		t.Error("MaxMind.Enabled should default to false")
	}
}

func TestSaveAndLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tcptrace.yaml")

	cfg := DefaultConfig()
	cfg.Defaults.Mode = "raw"
	cfg.Defaults.MaxHops = 10
	cfg.Aliases["dns"] = "8.8.8.8"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if loaded.Defaults.Mode != "raw" {
		t.Errorf("loaded Mode = %q, want %q", loaded.Defaults.Mode, "raw")
	}
	if loaded.Defaults.MaxHops != 10 {
		t.Errorf("loaded MaxHops = %d, want 10", loaded.Defaults.MaxHops)
	}
	if loaded.Aliases["dns"] != "8.8.8.8" {
		t.Errorf("loaded alias dns = %q, want %q", loaded.Aliases["dns"], "8.8.8.8")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Error("LoadFrom() should error for a missing file")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	defer os.Chdir(cwd)

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Defaults.Mode != "auto" {
		t.Errorf("Mode = %q, want %q (default)", cfg.Defaults.Mode, "auto")
	}
}

func TestGenerateExampleIsValidYAML(t *testing.T) {
	example := GenerateExample()
	if example == "" {
		t.Fatal("GenerateExample() returned empty string")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "example.yaml")
	if err := os.WriteFile(path, []byte(example), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom(example) error = %v", err)
	}
	if cfg.Defaults.Mode != "auto" {
		t.Errorf("example Mode = %q, want %q", cfg.Defaults.Mode, "auto")
	}
	if cfg.Aliases["google"] != "google.com" {
		t.Errorf("example alias google = %q, want %q", cfg.Aliases["google"], "google.com")
	}
}

func TestGetASNAndGeoDBPaths(t *testing.T) {
	if GetASNDBPath() == "" {
		t.Error("GetASNDBPath() returned empty string")
	}
	if GetGeoDBPath() == "" {
		t.Error("GetGeoDBPath() returned empty string")
	}
	if GetASNDBPath() == GetGeoDBPath() {
		t.Error("ASN and Geo DB paths should differ")
	}
}
