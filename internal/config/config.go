// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// sessionguard.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.sessionguard/config.toml
//   - ~/.sessionguard/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/util"
)

// Timeout bounds accepted by the community settings screen.
const (
	MinTimeoutMinutes  = 15
	MaxTimeoutMinutes  = 60
	TimeoutStepMinutes = 5
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sessionguard configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Session SessionConfig `toml:"session" json:"session"`
	Server  ServerConfig  `toml:"server" json:"server"`
	Client  ClientConfig  `toml:"client" json:"client"`
	Audit   AuditConfig   `toml:"audit" json:"audit"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// SessionConfig controls the inactivity timeout controller.
type SessionConfig struct {
	// TimeoutMinutes is used until the portal reports its own value, and
	// whenever it cannot. Valid range: 15-60.
	TimeoutMinutes int `toml:"timeout_minutes" json:"timeout_minutes"`
	// WarningFraction places the warning inside the timeout (0 < f < 1).
	WarningFraction float64 `toml:"warning_fraction" json:"warning_fraction"`
	// ActivityCooldownMS throttles activity-driven extension.
	ActivityCooldownMS int `toml:"activity_cooldown_ms" json:"activity_cooldown_ms"`
	// LogoutTimeoutSecs bounds the logout request made on expiry.
	LogoutTimeoutSecs int `toml:"logout_timeout_secs" json:"logout_timeout_secs"`
}

// ServerConfig configures `sessionguard serve`.
type ServerConfig struct {
	Addr   string `toml:"addr" json:"addr"`
	DBPath string `toml:"db_path" json:"db_path"`
	// TokenTTLHours is how long an issued login token stays valid.
	TokenTTLHours int `toml:"token_ttl_hours" json:"token_ttl_hours"`
	// RateLimitPerMinute is the per-client request budget (0 = unlimited).
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// ClientConfig configures the guard and the CLI client commands.
type ClientConfig struct {
	PortalURL string `toml:"portal_url" json:"portal_url"`
	// Token is the bearer token of the current login. Normally kept in the
	// local store rather than here.
	Token              string `toml:"token" json:"token"`
	LocalDBPath        string `toml:"local_db_path" json:"local_db_path"`
	RequestTimeoutSecs int    `toml:"request_timeout_secs" json:"request_timeout_secs"`
}

// AuditConfig controls the session audit trail.
type AuditConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled"`
	Path      string `toml:"path" json:"path"`
	MaxSizeMB int    `toml:"max_size_mb" json:"max_size_mb"`
}

// UIConfig contains presentation settings for the guard.
type UIConfig struct {
	Locale string `toml:"locale" json:"locale"`
	Theme  string `toml:"theme" json:"theme"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Session: SessionConfig{
			TimeoutMinutes:     30,
			WarningFraction:    0.5,
			ActivityCooldownMS: 5000,
			LogoutTimeoutSecs:  15,
		},

		Server: ServerConfig{
			Addr:               "127.0.0.1:4000",
			DBPath:             "", // ~/.sessionguard/portal.db
			TokenTTLHours:      8,
			RateLimitPerMinute: 120,
		},

		Client: ClientConfig{
			PortalURL:          "http://127.0.0.1:4000",
			LocalDBPath:        "", // ~/.sessionguard/local.db
			RequestTimeoutSecs: 10,
		},

		Audit: AuditConfig{
			Enabled:   true,
			Path:      "", // ~/.sessionguard/audit.log
			MaxSizeMB: 10,
		},

		UI: UIConfig{
			Locale: "en",
			Theme:  "dark",
		},
	}
}

// Controller converts the session section into controller settings.
func (s SessionConfig) Controller() session.Config {
	return session.Config{
		Timeout:          time.Duration(s.TimeoutMinutes) * time.Minute,
		WarningFraction:  s.WarningFraction,
		ActivityCooldown: time.Duration(s.ActivityCooldownMS) * time.Millisecond,
		LogoutTimeout:    time.Duration(s.LogoutTimeoutSecs) * time.Second,
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the sessionguard configuration directory path.
// SESSIONGUARD_HOME overrides the default ~/.sessionguard.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SESSIONGUARD_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sessionguard"), nil
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
	return os.MkdirAll(dir, 0o700)
}

// ResolvePath returns p, or name inside the config directory when p is
// empty.
func ResolvePath(p, name string) (string, error) {
	if p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ensureSecurePermissions tightens config files to 0600; they may hold a
// bearer token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
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

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg = Default()
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg = Default()
	if _, err := finish(cfg); err != nil {
		return nil, err
	}
	// Defaults, with any load error for informational purposes.
	return cfg, loadErr
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
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
	return nil
}

// LoadFromPath loads configuration from a specific file with full
// validation.
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

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	err := util.WriteAtomic(path, 0o600, func(w io.Writer) error {
		if _, err := io.WriteString(w, "# sessionguard configuration file\n# Generated by sessionguard - edit with care\n\n"); err != nil {
			return err
		}
		return toml.NewEncoder(w).Encode(cfg)
	})
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
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

// ValidTimeoutMinutes reports whether m is an accepted community timeout:
// 15 to 60 minutes in steps of 5.
func ValidTimeoutMinutes(m int) bool {
	return m >= MinTimeoutMinutes && m <= MaxTimeoutMinutes && m%TimeoutStepMinutes == 0
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Session.TimeoutMinutes < MinTimeoutMinutes || c.Session.TimeoutMinutes > MaxTimeoutMinutes {
		errs = append(errs, ValidationError{
			Field:   "session.timeout_minutes",
			Message: fmt.Sprintf("%d out of range, must be %d-%d", c.Session.TimeoutMinutes, MinTimeoutMinutes, MaxTimeoutMinutes),
		})
	}
	if c.Session.WarningFraction <= 0 || c.Session.WarningFraction >= 1 {
		errs = append(errs, ValidationError{
			Field:   "session.warning_fraction",
			Message: "must be between 0 and 1 (exclusive)",
		})
	}
	if c.Session.ActivityCooldownMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.activity_cooldown_ms",
			Message: "cannot be negative",
		})
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_per_minute",
			Message: "cannot be negative",
		})
	}
	if c.Client.PortalURL != "" {
		u, err := url.Parse(c.Client.PortalURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "client.portal_url",
				Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Client.PortalURL),
			})
		}
	}
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values that have a default.
func (c *Config) SetDefaults() {
	def := Default()

	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Session.TimeoutMinutes == 0 {
		c.Session.TimeoutMinutes = def.Session.TimeoutMinutes
	}
	if c.Session.WarningFraction == 0 {
		c.Session.WarningFraction = def.Session.WarningFraction
	}
	if c.Session.LogoutTimeoutSecs <= 0 {
		c.Session.LogoutTimeoutSecs = def.Session.LogoutTimeoutSecs
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.TokenTTLHours <= 0 {
		c.Server.TokenTTLHours = def.Server.TokenTTLHours
	}
	if c.Client.RequestTimeoutSecs <= 0 {
		c.Client.RequestTimeoutSecs = def.Client.RequestTimeoutSecs
	}
	if c.Audit.MaxSizeMB <= 0 {
		c.Audit.MaxSizeMB = def.Audit.MaxSizeMB
	}
	if c.UI.Locale == "" {
		c.UI.Locale = def.UI.Locale
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// ApplyEnvOverrides applies SESSIONGUARD_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SESSIONGUARD_TIMEOUT_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			c.Session.TimeoutMinutes = m
		}
	}
	if v := os.Getenv("SESSIONGUARD_PORTAL_URL"); v != "" {
		c.Client.PortalURL = v
	}
	if v := os.Getenv("SESSIONGUARD_TOKEN"); v != "" {
		c.Client.Token = v
	}
	if v := os.Getenv("SESSIONGUARD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SESSIONGUARD_DB"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("SESSIONGUARD_LOCALE"); v != "" {
		c.UI.Locale = v
	}
	if v := os.Getenv("SESSIONGUARD_AUDIT"); v != "" {
		c.Audit.Enabled = v == "1" || strings.ToLower(v) == "true"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g.
// "session.timeout_minutes").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts snake_case or kebab-case to a Go field name.
// "db_path" becomes "DbPath", matched case-insensitively against DBPath.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(strVal == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"session.timeout_minutes",
		"session.warning_fraction",
		"session.activity_cooldown_ms",
		"session.logout_timeout_secs",
		"server.addr",
		"server.db_path",
		"server.token_ttl_hours",
		"server.rate_limit_per_minute",
		"client.portal_url",
		"client.token",
		"client.local_db_path",
		"client.request_timeout_secs",
		"audit.enabled",
		"audit.path",
		"audit.max_size_mb",
		"ui.locale",
		"ui.theme",
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as JSON with the bearer token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Client.Token != "" {
		safe.Client.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
