// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/bookbot/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete bookbot configuration.
type Config struct {
	Gemini GeminiConfig `toml:"gemini"`
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Audit  AuditConfig  `toml:"audit"`
}

// GeminiConfig contains the upstream generative-language API settings.
type GeminiConfig struct {
	// APIKey is the upstream credential. Usually supplied through GEMINI_API_KEY.
	APIKey string `toml:"api_key"`
	// BaseURL is the API root without a version segment.
	BaseURL string `toml:"base_url"`
	// ListVersion is the API version used for model discovery.
	ListVersion string `toml:"list_version"`
	// APIVersions are tried in order for every candidate model.
	APIVersions []string `toml:"api_versions"`
	// FallbackModels are tried in order when discovery finds nothing.
	FallbackModels []string `toml:"fallback_models"`
	// ModelFamily is the marker a discovered model name must contain.
	ModelFamily string `toml:"model_family"`
	// BrevityInstruction is appended to every flattened prompt.
	BrevityInstruction string `toml:"brevity_instruction"`
	// UpstreamTimeoutSecs bounds a single upstream HTTP call (0 = transport default).
	UpstreamTimeoutSecs int `toml:"upstream_timeout_secs"`
}

// ServerConfig contains proxy server settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	// RateLimitPerMinute is the sustained per-IP request rate on /api routes.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
	RateLimitBurst     int `toml:"rate_limit_burst"`
}

// ClientConfig contains terminal client settings.
type ClientConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	TimeoutSecs int    `toml:"timeout_secs"`
	// Markdown enables glamour rendering of assistant replies.
	Markdown bool `toml:"markdown"`
}

// AuditConfig controls the SQLite attempt log.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Built-in upstream defaults.
const (
	DefaultBaseURL            = "https://generativelanguage.googleapis.com"
	DefaultModelFamily        = "gemini"
	DefaultBrevityInstruction = "IMPORTANT: Keep your response concise and brief. Be direct and to the point."
	DefaultAddr               = "127.0.0.1:3000"
)

// DefaultFallbackModels is the ordered candidate list used when discovery
// yields nothing. Most capable and most likely available first.
var DefaultFallbackModels = []string{
	"gemini-1.5-flash-latest",
	"gemini-1.5-pro-latest",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-pro",
}

// DefaultAPIVersions lists the endpoint versions tried per model, beta first.
var DefaultAPIVersions = []string{"v1beta", "v1"}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			BaseURL:             DefaultBaseURL,
			ListVersion:         "v1beta",
			APIVersions:         append([]string(nil), DefaultAPIVersions...),
			FallbackModels:      append([]string(nil), DefaultFallbackModels...),
			ModelFamily:         DefaultModelFamily,
			BrevityInstruction:  DefaultBrevityInstruction,
			UpstreamTimeoutSecs: 0,
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
			RateLimitPerMinute: 60,
			RateLimitBurst:     10,
		},
		Client: ClientConfig{
			ProxyURL:    "http://" + DefaultAddr,
			TimeoutSecs: 120,
			Markdown:    true,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the bookbot configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".bookbot"), nil
}

// ConfigPath returns the path to the default TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// AuditPath returns the audit database path, defaulting into ConfigDir.
func (c *Config) AuditPath() (string, error) {
	if c.Audit.Path != "" {
		return c.Audit.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// dotEnvFiles are loaded in order; earlier files win because godotenv never
// overrides variables that are already set.
var dotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads .env.local and .env from the working directory.
// Missing files are not an error.
func LoadDotEnv() error {
	for _, name := range dotEnvFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// Load builds the configuration from path (or the default location when path
// is empty), dotenv files, and the environment. A missing file is not an
// error; an unreadable or invalid one is.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}

	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold
// the API key.
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

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - GEMINI_API_KEY: gemini.api_key
//   - BOOKBOT_GEMINI_BASE_URL: gemini.base_url
//   - BOOKBOT_FALLBACK_MODELS: gemini.fallback_models (comma separated)
//   - BOOKBOT_ADDR: server.addr
//   - BOOKBOT_PROXY_URL: client.proxy_url
//   - BOOKBOT_AUDIT: audit.enabled
//   - BOOKBOT_AUDIT_PATH: audit.path
func (c *Config) ApplyEnvOverrides() {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		c.Gemini.APIKey = key
	}
	if base := os.Getenv("BOOKBOT_GEMINI_BASE_URL"); base != "" {
		c.Gemini.BaseURL = base
	}
	if models := os.Getenv("BOOKBOT_FALLBACK_MODELS"); models != "" {
		c.Gemini.FallbackModels = splitList(models)
	}
	if addr := os.Getenv("BOOKBOT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if proxy := os.Getenv("BOOKBOT_PROXY_URL"); proxy != "" {
		c.Client.ProxyURL = proxy
	}
	if audit := os.Getenv("BOOKBOT_AUDIT"); audit != "" {
		if v, err := strconv.ParseBool(audit); err == nil {
			c.Audit.Enabled = v
		}
	}
	if path := os.Getenv("BOOKBOT_AUDIT_PATH"); path != "" {
		c.Audit.Path = path
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = d.Gemini.BaseURL
	}
	c.Gemini.BaseURL = strings.TrimSuffix(c.Gemini.BaseURL, "/")
	if c.Gemini.ListVersion == "" {
		c.Gemini.ListVersion = d.Gemini.ListVersion
	}
	if len(c.Gemini.APIVersions) == 0 {
		c.Gemini.APIVersions = d.Gemini.APIVersions
	}
	if len(c.Gemini.FallbackModels) == 0 {
		c.Gemini.FallbackModels = d.Gemini.FallbackModels
	}
	if c.Gemini.ModelFamily == "" {
		c.Gemini.ModelFamily = d.Gemini.ModelFamily
	}
	if c.Gemini.BrevityInstruction == "" {
		c.Gemini.BrevityInstruction = d.Gemini.BrevityInstruction
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = d.Server.RateLimitPerMinute
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = d.Server.RateLimitBurst
	}

	if c.Client.ProxyURL == "" {
		c.Client.ProxyURL = d.Client.ProxyURL
	}
	if c.Client.TimeoutSecs == 0 {
		c.Client.TimeoutSecs = d.Client.TimeoutSecs
	}
}

// HasAPIKey reports whether an upstream credential is configured.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

// UpstreamTimeout returns the per-call upstream timeout (0 = none).
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Gemini.UpstreamTimeoutSecs) * time.Second
}

// ClientTimeout returns the terminal client's request timeout.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSecs) * time.Second
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes cfg as TOML to path with 0600 permissions, replacing any
// existing file atomically.
func Save(cfg *Config, path string) error {
	return util.WriteFileAtomic(path, 0600, func(w io.Writer) error {
		io.WriteString(w, "# bookbot configuration file\n")
		io.WriteString(w, "# GEMINI_API_KEY in the environment takes precedence over gemini.api_key\n\n")
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return nil
	})
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

// ErrMissingAPIKey is returned by RequireAPIKey when no credential is set.
var ErrMissingAPIKey = errors.New("Gemini API key not configured")

// RequireAPIKey returns ErrMissingAPIKey when no credential is configured.
func (c *Config) RequireAPIKey() error {
	if !c.HasAPIKey() {
		return ErrMissingAPIKey
	}
	return nil
}

// Validate checks the configuration. A missing API key is not a validation
// error: the proxy starts anyway and reports it per request.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Gemini.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "gemini.base_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Gemini.BaseURL),
		})
	}
	for i, v := range c.Gemini.APIVersions {
		if strings.TrimSpace(v) == "" || strings.Contains(v, "/") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("gemini.api_versions[%d]", i),
				Message: fmt.Sprintf("invalid version '%s'", v),
			})
		}
	}
	for i, m := range c.Gemini.FallbackModels {
		if strings.TrimSpace(m) == "" || strings.ContainsAny(m, "/?#") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("gemini.fallback_models[%d]", i),
				Message: fmt.Sprintf("invalid model name '%s'", m),
			})
		}
	}
	if c.Gemini.UpstreamTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "gemini.upstream_timeout_secs",
			Message: "must not be negative",
		})
	}
	if c.Server.RateLimitPerMinute < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_per_minute",
			Message: "rate limit values must not be negative",
		})
	}
	if u, err := url.Parse(c.Client.ProxyURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "client.proxy_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Client.ProxyURL),
		})
	}
	if c.Client.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "client.timeout_secs",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Gemini.APIVersions = append([]string(nil), c.Gemini.APIVersions...)
	clone.Gemini.FallbackModels = append([]string(nil), c.Gemini.FallbackModels...)
	clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	return &clone
}

// String renders the configuration as TOML with the API key redacted.
func (c *Config) String() string {
	redacted := c.Clone()
	if redacted.HasAPIKey() {
		redacted.Gemini.APIKey = fmt.Sprintf("[REDACTED, fingerprint=%s]", util.Fingerprint(c.Gemini.APIKey))
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(redacted); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return b.String()
}
