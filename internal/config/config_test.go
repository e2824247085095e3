// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "BOOKBOT_GEMINI_BASE_URL", "BOOKBOT_FALLBACK_MODELS",
		"BOOKBOT_ADDR", "BOOKBOT_PROXY_URL", "BOOKBOT_AUDIT", "BOOKBOT_AUDIT_PATH",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultBaseURL, cfg.Gemini.BaseURL)
	assert.Equal(t, []string{"v1beta", "v1"}, cfg.Gemini.APIVersions)
	assert.Equal(t, []string{
		"gemini-1.5-flash-latest",
		"gemini-1.5-pro-latest",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
		"gemini-pro",
	}, cfg.Gemini.FallbackModels)
	assert.Equal(t, "gemini", cfg.Gemini.ModelFamily)
	assert.False(t, cfg.HasAPIKey())
	assert.NoError(t, cfg.Validate())
}

func TestDefaultReturnsIndependentSlices(t *testing.T) {
	a := Default()
	a.Gemini.FallbackModels[0] = "mutated"
	b := Default()
	assert.Equal(t, "gemini-1.5-flash-latest", b.Gemini.FallbackModels[0])
}

func TestLoadTOMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[gemini]
api_key = "file-key"
base_url = "http://upstream.test/"
fallback_models = ["m-one", "m-two"]

[server]
addr = "0.0.0.0:8080"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("BOOKBOT_AUDIT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Gemini.APIKey, "environment wins over file")
	assert.Equal(t, "http://upstream.test", cfg.Gemini.BaseURL, "trailing slash trimmed")
	assert.Equal(t, []string{"m-one", "m-two"}, cfg.Gemini.FallbackModels)
	assert.Equal(t, []string{"v1beta", "v1"}, cfg.Gemini.APIVersions, "unset fields keep defaults")
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.True(t, cfg.Audit.Enabled)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions tightened")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestFallbackModelsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOOKBOT_FALLBACK_MODELS", " a , ,b ")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, []string{"a", "b"}, cfg.Gemini.FallbackModels)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad base url", func(c *Config) { c.Gemini.BaseURL = "not a url" }, "gemini.base_url"},
		{"bad version", func(c *Config) { c.Gemini.APIVersions = []string{"v1/x"} }, "gemini.api_versions[0]"},
		{"bad model", func(c *Config) { c.Gemini.FallbackModels = []string{"ok", "a?b"} }, "gemini.fallback_models[1]"},
		{"negative timeout", func(c *Config) { c.Gemini.UpstreamTimeoutSecs = -1 }, "gemini.upstream_timeout_secs"},
		{"bad proxy url", func(c *Config) { c.Client.ProxyURL = "localhost" }, "client.proxy_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
	cfg.Gemini.APIKey = "   "
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
	cfg.Gemini.APIKey = "k"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestSaveRoundTripAndRedaction(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Gemini.APIKey = "secret-key"
	cfg.Server.Addr = "127.0.0.1:9999"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", loaded.Gemini.APIKey)
	assert.Equal(t, "127.0.0.1:9999", loaded.Server.Addr)

	s := loaded.String()
	assert.NotContains(t, s, "secret-key")
	assert.Contains(t, s, "REDACTED")
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	require.NoError(t, os.WriteFile(".env.local", []byte("GEMINI_API_KEY=local-key\n"), 0600))
	require.NoError(t, os.WriteFile(".env", []byte("GEMINI_API_KEY=base-key\nBOOKBOT_ADDR=127.0.0.1:4000\n"), 0600))

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "local-key", os.Getenv("GEMINI_API_KEY"))
	assert.Equal(t, "127.0.0.1:4000", os.Getenv("BOOKBOT_ADDR"))
}

func TestWatcherReloads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gemini]\nfallback_models = [\"first\"]\n"), 0600))

	got := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { got <- c })
	require.NoError(t, err)
	w.WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte("[gemini]\nfallback_models = [\"second\", \"third\"]\n"), 0600))

	select {
	case cfg := <-got:
		assert.Equal(t, []string{"second", "third"}, cfg.Gemini.FallbackModels)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver reloaded config")
	}
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestStringWithoutKey(t *testing.T) {
	s := Default().String()
	assert.True(t, strings.Contains(s, "[gemini]"))
	assert.False(t, strings.Contains(s, "REDACTED"))
}
