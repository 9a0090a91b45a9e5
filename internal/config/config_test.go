// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("expected default base URL, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.HealthTimeoutSecs != 4 {
		t.Errorf("expected 4s health timeout, got %d", cfg.Backend.HealthTimeoutSecs)
	}
	if cfg.Backend.PollIntervalSecs != 2 {
		t.Errorf("expected 2s poll interval, got %d", cfg.Backend.PollIntervalSecs)
	}
	if cfg.Chat.Mode != "hybrid" {
		t.Errorf("expected hybrid mode, got %s", cfg.Chat.Mode)
	}
	if cfg.Chat.TopK != 10 {
		t.Errorf("expected top_k 10, got %d", cfg.Chat.TopK)
	}
	if !cfg.Chat.Citations {
		t.Error("expected citations enabled by default")
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.PollInterval() != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.PollInterval())
	}
	if cfg.HealthTimeout() != 4*time.Second {
		t.Errorf("expected 4s, got %v", cfg.HealthTimeout())
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: "backend.base_url",
		},
		{
			name:    "URL without scheme",
			mutate:  func(c *Config) { c.Backend.BaseURL = "localhost:8000" },
			wantErr: "backend.base_url",
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Chat.Mode = "turbo" },
			wantErr: "chat.mode",
		},
		{
			name:    "zero top_k",
			mutate:  func(c *Config) { c.Chat.TopK = 0 },
			wantErr: "chat.top_k",
		},
		{
			name:    "negative poll interval",
			mutate:  func(c *Config) { c.Backend.PollIntervalSecs = -1 },
			wantErr: "backend.poll_interval_secs",
		},
		{
			name:    "invalid theme",
			mutate:  func(c *Config) { c.UI.Theme = "neon" },
			wantErr: "ui.theme",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Chat.Mode = "bogus"
	cfg.Chat.TopK = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "chat.mode") || !strings.Contains(msg, "chat.top_k") {
		t.Errorf("expected both errors reported, got %q", msg)
	}
}

// =============================================================================
// SET DEFAULTS
// =============================================================================

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("expected default base URL, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Chat.TopK != 10 {
		t.Errorf("expected default top_k, got %d", cfg.Chat.TopK)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level, got %s", cfg.Log.Level)
	}
}

func TestSetDefaultsTrimsTrailingSlash(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = "http://example.com/"
	cfg.SetDefaults()
	if cfg.Backend.BaseURL != "http://example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Backend.BaseURL)
	}
}

func TestSetDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Chat.TopK = 25
	cfg.Backend.BaseURL = "http://other:9000"
	cfg.SetDefaults()

	if cfg.Chat.TopK != 25 {
		t.Errorf("explicit top_k overwritten: %d", cfg.Chat.TopK)
	}
	if cfg.Backend.BaseURL != "http://other:9000" {
		t.Errorf("explicit base URL overwritten: %s", cfg.Backend.BaseURL)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHATTAI_BASE_URL", "http://envhost:8080")
	t.Setenv("CHATTAI_MODE", "local")
	t.Setenv("CHATTAI_TOP_K", "5")
	t.Setenv("CHATTAI_CITATIONS", "false")
	t.Setenv("CHATTAI_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "http://envhost:8080" {
		t.Errorf("base URL override not applied: %s", cfg.Backend.BaseURL)
	}
	if cfg.Chat.Mode != "local" {
		t.Errorf("mode override not applied: %s", cfg.Chat.Mode)
	}
	if cfg.Chat.TopK != 5 {
		t.Errorf("top_k override not applied: %d", cfg.Chat.TopK)
	}
	if cfg.Chat.Citations {
		t.Error("citations override not applied")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level override not applied: %s", cfg.Log.Level)
	}
}

func TestApplyEnvOverridesIgnoresInvalidTopK(t *testing.T) {
	t.Setenv("CHATTAI_TOP_K", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Chat.TopK != 10 {
		t.Errorf("invalid top_k should keep default, got %d", cfg.Chat.TopK)
	}
}

// =============================================================================
// LOAD / SAVE ROUND TRIPS
// =============================================================================

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0.0"

[backend]
base_url = "http://ragbox:8000"
poll_interval_secs = 5

[chat]
mode = "global"
top_k = 3
citations = false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Backend.BaseURL != "http://ragbox:8000" {
		t.Errorf("base URL not loaded: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.PollIntervalSecs != 5 {
		t.Errorf("poll interval not loaded: %d", cfg.Backend.PollIntervalSecs)
	}
	if cfg.Chat.Mode != "global" {
		t.Errorf("mode not loaded: %s", cfg.Chat.Mode)
	}
	// Unspecified fields inherit defaults
	if cfg.Backend.HealthTimeoutSecs != 4 {
		t.Errorf("expected default health timeout, got %d", cfg.Backend.HealthTimeoutSecs)
	}
}

func TestLoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"backend": {"base_url": "http://jsonhost:8000"}, "chat": {"mode": "naive", "top_k": 7}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Backend.BaseURL != "http://jsonhost:8000" {
		t.Errorf("base URL not loaded: %s", cfg.Backend.BaseURL)
	}
	if cfg.Chat.Mode != "naive" || cfg.Chat.TopK != 7 {
		t.Errorf("chat settings not loaded: %+v", cfg.Chat)
	}
}

func TestLoadFromPathInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[chat]
mode = "warp-speed"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir) // keep EnsureConfigDir inside the sandbox
	path := filepath.Join(dir, "out.json")

	cfg := Default()
	cfg.Backend.BaseURL = "http://saved:8000"
	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Backend.BaseURL != "http://saved:8000" {
		t.Errorf("round trip lost base URL: %s", loaded.Backend.BaseURL)
	}
}

func TestStateFilePathDefault(t *testing.T) {
	cfg := Default()
	path, err := cfg.StateFilePath()
	if err != nil {
		t.Fatalf("StateFilePath: %v", err)
	}
	if filepath.Base(path) != "chattaio_state.json" {
		t.Errorf("unexpected default state file: %s", path)
	}
}

func TestStateFilePathExplicit(t *testing.T) {
	cfg := Default()
	cfg.Storage.StateFile = "/tmp/custom.json"
	path, err := cfg.StateFilePath()
	if err != nil {
		t.Fatalf("StateFilePath: %v", err)
	}
	if path != "/tmp/custom.json" {
		t.Errorf("expected explicit path, got %s", path)
	}
}
