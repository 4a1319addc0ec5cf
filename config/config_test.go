package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.InactivityWindow != 30*time.Minute {
		t.Errorf("InactivityWindow = %v, want 30m", cfg.InactivityWindow)
	}
	if cfg.StorageBackend != BackendFile {
		t.Errorf("StorageBackend = %q, want file", cfg.StorageBackend)
	}
	if want := filepath.Join(dir, "session.json"); cfg.StoragePath != want {
		t.Errorf("StoragePath = %q, want %q", cfg.StoragePath, want)
	}
	if want := filepath.Join(dir, "favicon.png"); cfg.IconPath != want {
		t.Errorf("IconPath = %q, want %q", cfg.IconPath, want)
	}
	if cfg.Output != "table" {
		t.Errorf("Output = %q, want table", cfg.Output)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("MERGEALERT_API_BASE_URL", "https://alerts.example.com/api/v1/")
	t.Setenv("MERGEALERT_API_TIMEOUT", "3s")
	t.Setenv("MERGEALERT_INACTIVITY_WINDOW", "5m")
	t.Setenv("MERGEALERT_STORAGE_BACKEND", "SQLite")

	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://alerts.example.com/api/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Timeout)
	}
	if cfg.InactivityWindow != 5*time.Minute {
		t.Errorf("InactivityWindow = %v, want 5m", cfg.InactivityWindow)
	}
	if cfg.StorageBackend != BackendSQLite {
		t.Errorf("StorageBackend = %q, want sqlite", cfg.StorageBackend)
	}
	if want := filepath.Join(dir, "session.db"); cfg.StoragePath != want {
		t.Errorf("StoragePath = %q, want %q", cfg.StoragePath, want)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "api_base_url: http://10.0.0.5:1688/api/v1\noutput: json\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MERGEALERT_OUTPUT", "yaml")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://10.0.0.5:1688/api/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Output != "yaml" {
		t.Errorf("Output = %q, want env to override file", cfg.Output)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad scheme", map[string]string{"MERGEALERT_API_BASE_URL": "ftp://x"}},
		{"unknown backend", map[string]string{"MERGEALERT_STORAGE_BACKEND": "etcd"}},
		{"redis without url", map[string]string{"MERGEALERT_STORAGE_BACKEND": "redis"}},
		{"negative idle", map[string]string{"MERGEALERT_INACTIVITY_WINDOW": "-1m"}},
		{"bad output", map[string]string{"MERGEALERT_OUTPUT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(t.TempDir()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
