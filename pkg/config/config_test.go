package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig drops a config.yaml into a temp dir and chdirs there so Load()
// finds it.
func writeConfig(t *testing.T, yamlContent string) {
	t.Helper()
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

func TestLoad_Defaults(t *testing.T) {
	writeConfig(t, "env: test\n")
	os.Unsetenv("PORT")
	os.Unsetenv("PROVIDER_VENDOR")
	os.Unsetenv("STORE_BACKEND")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Version != "test-version" {
		t.Errorf("expected version test-version, got %s", cfg.Version)
	}
	if cfg.Provider.Vendor != VendorOpenAI {
		t.Errorf("expected default vendor openai, got %s", cfg.Provider.Vendor)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("expected default backend memory, got %s", cfg.Store.Backend)
	}
	if cfg.Quiz.FreeCount != 3 || cfg.Quiz.PremiumCount != 5 {
		t.Errorf("expected tier counts 3/5, got %d/%d", cfg.Quiz.FreeCount, cfg.Quiz.PremiumCount)
	}
	if cfg.Quiz.AutoAdvanceMillis != 300 {
		t.Errorf("expected auto advance 300ms, got %d", cfg.Quiz.AutoAdvanceMillis)
	}
	if cfg.BaseURL != "http://localhost:8790" {
		t.Errorf("expected derived base URL, got %s", cfg.BaseURL)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeConfig(t, `
port: "8790"
provider:
  vendor: "openai"
  model: "gpt-4o-mini"
`)
	t.Setenv("PORT", "9000")
	t.Setenv("PROVIDER_MODEL", "gpt-4o")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("expected Port=9000 (from env), got %s", cfg.Port)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o (from env), got %s", cfg.Provider.Model)
	}
}

func TestLoad_RejectsUnknownVendor(t *testing.T) {
	writeConfig(t, `
provider:
  vendor: "gemini-direct"
`)
	os.Unsetenv("PROVIDER_VENDOR")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error for unknown vendor")
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	writeConfig(t, `
store:
  backend: "dynamo"
`)
	os.Unsetenv("STORE_BACKEND")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}
