// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for chattai.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.chattai/config.toml
//   - ~/.chattai/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chattai configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Backend connection configuration
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Default chat/query parameters
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Local state persistence configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Log configuration
	Log LogConfig `toml:"log" json:"log"`
}

// BackendConfig contains RAG backend connection configuration.
type BackendConfig struct {
	// BaseURL is the base URL of the backend API server
	BaseURL string `toml:"base_url" json:"base_url"`
	// RequestTimeoutSecs is the timeout for non-streaming requests in seconds
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// HealthTimeoutSecs is the timeout for health probes in seconds
	HealthTimeoutSecs int `toml:"health_timeout_secs" json:"health_timeout_secs"`
	// PollIntervalSecs is the interval between ingestion job status polls
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
}

// ChatConfig contains the default query parameters for new sessions.
type ChatConfig struct {
	// Mode is the retrieval mode: "hybrid", "local", "global", "naive"
	Mode string `toml:"mode" json:"mode"`
	// TopK is the number of retrieval results per query (minimum 1)
	TopK int `toml:"top_k" json:"top_k"`
	// Citations controls whether source citations are requested
	Citations bool `toml:"citations" json:"citations"`
	// SystemPrompt is an optional prompt prepended to every query
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
}

// StorageConfig contains local state persistence configuration.
type StorageConfig struct {
	// StateFile is the path to the persisted conversation state
	// (empty = default ~/.chattai/chattaio_state.json)
	StateFile string `toml:"state_file" json:"state_file"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// RenderMarkdown enables markdown rendering for assistant answers
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// LogConfig contains log output configuration.
type LogConfig struct {
	// File is the path to the log file (empty = default ~/.chattai/chattai.log)
	File string `toml:"file" json:"file"`
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `toml:"level" json:"level"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:            "http://localhost:8000",
			RequestTimeoutSecs: 120,
			HealthTimeoutSecs:  4,
			PollIntervalSecs:   2,
		},

		Chat: ChatConfig{
			Mode:      "hybrid",
			TopK:      10,
			Citations: true,
		},

		Storage: StorageConfig{
			StateFile: "", // resolved lazily against the config dir
		},

		UI: UIConfig{
			Theme:          "dark",
			CompactMode:    false,
			RenderMarkdown: true,
		},

		Log: LogConfig{
			File:  "",
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chattai configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chattai"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// StateFilePath resolves the conversation state file path, falling back to
// the default location inside the config directory.
func (c *Config) StateFilePath() (string, error) {
	if c.Storage.StateFile != "" {
		return c.Storage.StateFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chattaio_state.json"), nil
}

// LogFilePath resolves the log file path, falling back to the default
// location inside the config directory.
func (c *Config) LogFilePath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chattai.log"), nil
}

// PollInterval returns the job poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Backend.PollIntervalSecs) * time.Second
}

// HealthTimeout returns the health probe timeout as a duration.
func (c *Config) HealthTimeout() time.Duration {
	return time.Duration(c.Backend.HealthTimeoutSecs) * time.Second
}

// RequestTimeout returns the non-streaming request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSecs) * time.Second
}

// ChatSettingsPatch converts the configured chat defaults into a settings
// patch suitable for seeding a fresh conversation store.
func (c *Config) ChatSettingsPatch() model.SettingsPatch {
	return model.SettingsPatch{
		Mode:         model.Ptr(model.QueryMode(c.Chat.Mode)),
		TopK:         model.Ptr(c.Chat.TopK),
		Citations:    model.Ptr(c.Chat.Citations),
		SystemPrompt: model.Ptr(c.Chat.SystemPrompt),
	}
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	cfg, err = finalize(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finalize applies env overrides, defaults, and validation to a loaded config.
func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finalize(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# chattai configuration file")
	fmt.Fprintln(file, "# Generated by chattai - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Backend URL must parse and carry a scheme
	if c.Backend.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.base_url",
			Message: "base URL is required",
		})
	} else {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("invalid URL '%s', must include scheme and host", c.Backend.BaseURL),
			})
		}
	}

	if c.Backend.RequestTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "backend.request_timeout_secs",
			Message: "must be at least 1",
		})
	}
	if c.Backend.HealthTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "backend.health_timeout_secs",
			Message: "must be at least 1",
		})
	}
	if c.Backend.PollIntervalSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "backend.poll_interval_secs",
			Message: "must be at least 1",
		})
	}

	// Retrieval mode
	validModes := map[string]bool{"hybrid": true, "local": true, "global": true, "naive": true}
	if !validModes[strings.ToLower(c.Chat.Mode)] {
		errs = append(errs, ValidationError{
			Field:   "chat.mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: hybrid, local, global, naive", c.Chat.Mode),
		})
	}

	if c.Chat.TopK < 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.top_k",
			Message: "must be at least 1",
		})
	}

	// Theme
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	// Log level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
// Called after loading so partial config files inherit the defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.RequestTimeoutSecs == 0 {
		c.Backend.RequestTimeoutSecs = defaults.Backend.RequestTimeoutSecs
	}
	if c.Backend.HealthTimeoutSecs == 0 {
		c.Backend.HealthTimeoutSecs = defaults.Backend.HealthTimeoutSecs
	}
	if c.Backend.PollIntervalSecs == 0 {
		c.Backend.PollIntervalSecs = defaults.Backend.PollIntervalSecs
	}
	if c.Chat.Mode == "" {
		c.Chat.Mode = defaults.Chat.Mode
	}
	if c.Chat.TopK == 0 {
		c.Chat.TopK = defaults.Chat.TopK
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}

	// Strip trailing slashes so endpoint joins stay clean
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATTAI_BASE_URL: overrides backend.base_url
//   - CHATTAI_MODE: overrides chat.mode
//   - CHATTAI_TOP_K: overrides chat.top_k
//   - CHATTAI_CITATIONS: set to "0" or "false" to disable citations
//   - CHATTAI_SYSTEM_PROMPT: overrides chat.system_prompt
//   - CHATTAI_STATE_FILE: overrides storage.state_file
//   - CHATTAI_LOG_FILE: overrides log.file
//   - CHATTAI_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if baseURL := os.Getenv("CHATTAI_BASE_URL"); baseURL != "" {
		c.Backend.BaseURL = baseURL
	}

	if mode := os.Getenv("CHATTAI_MODE"); mode != "" {
		c.Chat.Mode = mode
	}

	if topK := os.Getenv("CHATTAI_TOP_K"); topK != "" {
		if n, err := strconv.Atoi(topK); err == nil {
			c.Chat.TopK = n
		}
	}

	if citations := os.Getenv("CHATTAI_CITATIONS"); citations != "" {
		c.Chat.Citations = citations != "0" && strings.ToLower(citations) != "false"
	}

	if prompt := os.Getenv("CHATTAI_SYSTEM_PROMPT"); prompt != "" {
		c.Chat.SystemPrompt = prompt
	}

	if stateFile := os.Getenv("CHATTAI_STATE_FILE"); stateFile != "" {
		c.Storage.StateFile = stateFile
	}

	if logFile := os.Getenv("CHATTAI_LOG_FILE"); logFile != "" {
		c.Log.File = logFile
	}

	if level := os.Getenv("CHATTAI_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}
