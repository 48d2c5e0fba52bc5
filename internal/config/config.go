// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gazette-assist configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Assistant endpoint configuration
	Assistant AssistantConfig `toml:"assistant" json:"assistant"`

	// Navigation guard configuration
	Guard GuardConfig `toml:"guard" json:"guard"`

	// Result presentation configuration
	Results ResultsConfig `toml:"results" json:"results"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// Local development backend
	DevServer DevServerConfig `toml:"devserver" json:"devserver"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// AssistantConfig configures the chat endpoint client.
type AssistantConfig struct {
	// Endpoint is the full chat URL
	Endpoint string `toml:"endpoint" json:"endpoint"`
	// Token is the bearer token sent with each turn
	Token string `toml:"token" json:"token"`
	// TimeoutSecs bounds one chat turn
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries for unreachable endpoints (negative disables)
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RequestsPerSecond caps outgoing turns
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// Burst is the rate limiter burst
	Burst int `toml:"burst" json:"burst"`
	// MaxHistory is how many prior messages travel with each turn
	MaxHistory int `toml:"max_history" json:"max_history"`
}

// Timeout returns TimeoutSecs as a duration.
func (a AssistantConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// GuardConfig configures the navigation guard.
type GuardConfig struct {
	// ReconcileIntervalMs is the drift check period in milliseconds
	ReconcileIntervalMs int `toml:"reconcile_interval_ms" json:"reconcile_interval_ms"`
	// NotifyBlocked shows a notice when a navigation is blocked
	NotifyBlocked bool `toml:"notify_blocked" json:"notify_blocked"`
}

// ReconcileInterval returns ReconcileIntervalMs as a duration.
func (g GuardConfig) ReconcileInterval() time.Duration {
	return time.Duration(g.ReconcileIntervalMs) * time.Millisecond
}

// ResultsConfig configures result presentation.
type ResultsConfig struct {
	// PreviewLimit is the number of records shown inline
	PreviewLimit int `toml:"preview_limit" json:"preview_limit"`
	// MaxCellWidth truncates table cells
	MaxCellWidth int `toml:"max_cell_width" json:"max_cell_width"`
	// HeadlineFields overrides the probed headline fields (empty = built-in)
	HeadlineFields []string `toml:"headline_fields" json:"headline_fields"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// File is the log file path (empty = ~/.gazette-assist/logs/gazette-assist.log)
	File string `toml:"file" json:"file"`
	// MaxSizeMB is the size at which the log file rotates
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb"`
	// MaxBackups is the number of rotated files kept
	MaxBackups int `toml:"max_backups" json:"max_backups"`
	// MaxAgeDays is how long rotated files are kept
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days"`
	// Compress gzips rotated files
	Compress bool `toml:"compress" json:"compress"`
	// Console also writes logs to stderr (never in the TUI)
	Console bool `toml:"console" json:"console"`
}

// DevServerConfig configures the local chat backend.
type DevServerConfig struct {
	// Addr is the listen address
	Addr string `toml:"addr" json:"addr"`
	// DBPath is the SQLite notice index (empty = ~/.gazette-assist/notices.db)
	DBPath string `toml:"db_path" json:"db_path"`
	// JWTSecret signs and verifies bearer tokens
	JWTSecret string `toml:"jwt_secret" json:"jwt_secret"`
	// TokenTTLHours is the lifetime of minted tokens
	TokenTTLHours int `toml:"token_ttl_hours" json:"token_ttl_hours"`
	// CacheTTLSecs is how long search results are cached
	CacheTTLSecs int `toml:"cache_ttl_secs" json:"cache_ttl_secs"`
	// Seed loads sample notices into an empty index
	Seed bool `toml:"seed" json:"seed"`
}

// CacheTTL returns CacheTTLSecs as a duration.
func (d DevServerConfig) CacheTTL() time.Duration {
	return time.Duration(d.CacheTTLSecs) * time.Second
}

// TokenTTL returns TokenTTLHours as a duration.
func (d DevServerConfig) TokenTTL() time.Duration {
	return time.Duration(d.TokenTTLHours) * time.Hour
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is auto, dark or light
	Theme string `toml:"theme" json:"theme"`
	// StartPage is the console page shown at startup
	StartPage string `toml:"start_page" json:"start_page"`
	// Suggestions overrides the suggested prompts (empty = built-in)
	Suggestions []string `toml:"suggestions" json:"suggestions"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Assistant: AssistantConfig{
			Endpoint:          "http://127.0.0.1:8484/api/v1/ai/chat",
			TimeoutSecs:       30,
			MaxRetries:        2,
			RequestsPerSecond: 2,
			Burst:             4,
			MaxHistory:        40,
		},

		Guard: GuardConfig{
			ReconcileIntervalMs: 50,
			NotifyBlocked:       false,
		},

		Results: ResultsConfig{
			PreviewLimit: 3,
			MaxCellWidth: 28,
		},

		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},

		DevServer: DevServerConfig{
			Addr:          "127.0.0.1:8484",
			JWTSecret:     "dev-secret-change-me",
			TokenTTLHours: 24,
			CacheTTLSecs:  300,
			Seed:          true,
		},

		UI: UIConfig{
			Theme:     "auto",
			StartPage: "/",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the gazette-assist configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gazette-assist"), nil
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

// ActivePath returns the config file Load would read, or the TOML path when
// neither file exists.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files hold the endpoint token and the JWT secret.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
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
	path, err := ActivePath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are read as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file over cfg.
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
	fillDefaults(cfg)
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Assistant
	if cfg.Assistant.Endpoint == "" {
		cfg.Assistant.Endpoint = defaults.Assistant.Endpoint
	}
	if cfg.Assistant.TimeoutSecs == 0 {
		cfg.Assistant.TimeoutSecs = defaults.Assistant.TimeoutSecs
	}
	if cfg.Assistant.RequestsPerSecond == 0 {
		cfg.Assistant.RequestsPerSecond = defaults.Assistant.RequestsPerSecond
	}
	if cfg.Assistant.Burst == 0 {
		cfg.Assistant.Burst = defaults.Assistant.Burst
	}
	if cfg.Assistant.MaxHistory == 0 {
		cfg.Assistant.MaxHistory = defaults.Assistant.MaxHistory
	}

	// Guard
	if cfg.Guard.ReconcileIntervalMs == 0 {
		cfg.Guard.ReconcileIntervalMs = defaults.Guard.ReconcileIntervalMs
	}

	// Results
	if cfg.Results.PreviewLimit == 0 {
		cfg.Results.PreviewLimit = defaults.Results.PreviewLimit
	}
	if cfg.Results.MaxCellWidth == 0 {
		cfg.Results.MaxCellWidth = defaults.Results.MaxCellWidth
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = defaults.Logging.MaxBackups
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = defaults.Logging.MaxAgeDays
	}

	// DevServer
	if cfg.DevServer.Addr == "" {
		cfg.DevServer.Addr = defaults.DevServer.Addr
	}
	if cfg.DevServer.JWTSecret == "" {
		cfg.DevServer.JWTSecret = defaults.DevServer.JWTSecret
	}
	if cfg.DevServer.TokenTTLHours == 0 {
		cfg.DevServer.TokenTTLHours = defaults.DevServer.TokenTTLHours
	}
	if cfg.DevServer.CacheTTLSecs == 0 {
		cfg.DevServer.CacheTTLSecs = defaults.DevServer.CacheTTLSecs
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.StartPage == "" {
		cfg.UI.StartPage = defaults.UI.StartPage
	}
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
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# gazette-assist configuration file\n")
	b.WriteString("# Generated by gazette-assist - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validThemes = map[string]bool{"auto": true, "dark": true, "light": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Assistant
	if u, err := url.Parse(c.Assistant.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "assistant.endpoint",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Assistant.Endpoint),
		})
	}
	if c.Assistant.TimeoutSecs < 1 || c.Assistant.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "assistant.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Assistant.TimeoutSecs),
		})
	}
	if c.Assistant.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "assistant.requests_per_second", Message: "must not be negative"})
	}
	if c.Assistant.Burst < 0 {
		errs = append(errs, ValidationError{Field: "assistant.burst", Message: "must not be negative"})
	}
	if c.Assistant.MaxHistory < 1 || c.Assistant.MaxHistory > aiclient.MaxHistory {
		errs = append(errs, ValidationError{
			Field:   "assistant.max_history",
			Message: fmt.Sprintf("must be between 1 and %d, got %d", aiclient.MaxHistory, c.Assistant.MaxHistory),
		})
	}

	// Guard
	if c.Guard.ReconcileIntervalMs < 5 || c.Guard.ReconcileIntervalMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "guard.reconcile_interval_ms",
			Message: fmt.Sprintf("must be between 5 and 1000, got %d", c.Guard.ReconcileIntervalMs),
		})
	}

	// Results
	if c.Results.PreviewLimit < 1 || c.Results.PreviewLimit > 20 {
		errs = append(errs, ValidationError{
			Field:   "results.preview_limit",
			Message: fmt.Sprintf("must be between 1 and 20, got %d", c.Results.PreviewLimit),
		})
	}
	if c.Results.MaxCellWidth < 4 {
		errs = append(errs, ValidationError{Field: "results.max_cell_width", Message: "must be at least 4"})
	}

	// Logging
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error, got %q", c.Logging.Level),
		})
	}

	// DevServer
	if c.DevServer.Addr != "" && !strings.Contains(c.DevServer.Addr, ":") {
		errs = append(errs, ValidationError{Field: "devserver.addr", Message: "must be host:port"})
	}
	if len(c.DevServer.JWTSecret) < 8 {
		errs = append(errs, ValidationError{Field: "devserver.jwt_secret", Message: "must be at least 8 characters"})
	}

	// UI
	if !validThemes[c.UI.Theme] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be auto, dark or light, got %q", c.UI.Theme),
		})
	}
	if !strings.HasPrefix(c.UI.StartPage, "/") {
		errs = append(errs, ValidationError{Field: "ui.start_page", Message: "must start with /"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GAZETTE_ENDPOINT: overrides assistant.endpoint
//   - GAZETTE_TOKEN: overrides assistant.token
//   - GAZETTE_LOG_LEVEL: overrides logging.level
//   - GAZETTE_DEV_ADDR: overrides devserver.addr
//   - GAZETTE_JWT_SECRET: overrides devserver.jwt_secret
//   - GAZETTE_NOTIFY_BLOCKED: set to "1" or "true" to show blocked navigation notices
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("GAZETTE_ENDPOINT"); endpoint != "" {
		c.Assistant.Endpoint = endpoint
	}
	if token := os.Getenv("GAZETTE_TOKEN"); token != "" {
		c.Assistant.Token = token
	}
	if level := os.Getenv("GAZETTE_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if addr := os.Getenv("GAZETTE_DEV_ADDR"); addr != "" {
		c.DevServer.Addr = addr
	}
	if secret := os.Getenv("GAZETTE_JWT_SECRET"); secret != "" {
		c.DevServer.JWTSecret = secret
	}
	if notify := os.Getenv("GAZETTE_NOTIFY_BLOCKED"); notify != "" {
		c.Guard.NotifyBlocked = notify == "1" || strings.ToLower(notify) == "true"
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Results.HeadlineFields = append([]string(nil), c.Results.HeadlineFields...)
	clone.UI.Suggestions = append([]string(nil), c.UI.Suggestions...)
	return &clone
}

// String returns the config as indented JSON with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Assistant.Token != "" {
		safe.Assistant.Token = "[REDACTED]"
	}
	if safe.DevServer.JWTSecret != "" {
		safe.DevServer.JWTSecret = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
