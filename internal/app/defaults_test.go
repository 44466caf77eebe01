package app

import (
	"os"
	"path/filepath"
	"testing"

	"kv-go/internal/config"
)

func TestDefaultPaths(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("KV_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("KV_HOME", "/custom/kv")

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths() error = %v", err)
		}

		if paths.ConfigPath != "/custom/config.toml" {
			t.Errorf("ConfigPath = %q, want %q", paths.ConfigPath, "/custom/config.toml")
		}
		if paths.BaseDir != "/custom/kv" {
			t.Errorf("BaseDir = %q, want %q", paths.BaseDir, "/custom/kv")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("KV_CONFIG_PATH", "")
		t.Setenv("KV_HOME", "")

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "kv.toml")
		if paths.ConfigPath != wantConfig {
			t.Errorf("ConfigPath = %q, want %q", paths.ConfigPath, wantConfig)
		}
		wantBase := filepath.Join(homeDir, ".local", "share", "kv")
		if paths.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", paths.BaseDir, wantBase)
		}
	})

	t.Run("config defaults live under the base dir", func(t *testing.T) {
		t.Setenv("KV_HOME", "/custom/kv")

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths() error = %v", err)
		}
		cfg := config.NewConfig(paths.BaseDir)
		if cfg.LogDir != filepath.Join("/custom/kv", "log") {
			t.Errorf("LogDir = %q, want under %q", cfg.LogDir, paths.BaseDir)
		}
		if cfg.Payloads.FSRoot != filepath.Join("/custom/kv", "imports") {
			t.Errorf("FSRoot = %q, want under %q", cfg.Payloads.FSRoot, paths.BaseDir)
		}
	})
}
