// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration and version commands.
//
// Command: config [show|path|init]
//
//	show   Effective configuration with the API key redacted (default)
//	path   Location of the config file
//	init   Write the default configuration (--force to overwrite)
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/jeranaias/bookbot/internal/config"
)

// HandleConfig prints the effective configuration or its path.
func HandleConfig(env *Env) error {
	switch env.Args.Subcommand {
	case "", "show":
		if env.Args.JSON {
			return NewJSONResponse("config", configView(env.Config)).Write(env.Stdout)
		}
		printTOML(env.Stdout, env.Config.String(), env.Interactive && ColorsEnabled())
		return nil

	case "path":
		path, err := configFilePath(env)
		if err != nil {
			return NewCommandError("config", "path", err)
		}
		fmt.Fprintln(env.Stdout, path)
		return nil

	case "init":
		return initConfig(env)

	default:
		return &UsageError{
			Message: fmt.Sprintf("unknown config subcommand: %s", env.Args.Subcommand),
			Usage:   "bookbot config [show|path|init [--force]]",
		}
	}
}

// configFilePath is --config when given, otherwise the default location.
func configFilePath(env *Env) (string, error) {
	if env.Args.ConfigPath != "" {
		return env.Args.ConfigPath, nil
	}
	return config.ConfigPath()
}

// initConfig writes the built-in defaults. An existing file is only replaced
// with --force.
func initConfig(env *Env) error {
	path, err := configFilePath(env)
	if err != nil {
		return NewCommandError("config", "init", err)
	}
	if _, err := os.Stat(path); err == nil && !env.Args.Force {
		return NewCommandError("config", "init",
			fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}

	if err := config.Save(config.Default(), path); err != nil {
		return NewCommandError("config", "init", err)
	}
	log.Printf("CONFIG_WRITTEN | path=%s", path)

	if env.Args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Write(env.Stdout)
	}
	fmt.Fprintln(env.Stdout, SuccessStyle.Render("Wrote "+path))
	if !env.Config.HasAPIKey() {
		fmt.Fprintln(env.Stdout, DimStyle.Render("Set GEMINI_API_KEY (or gemini.api_key in this file) before running serve."))
	}
	return nil
}

// printTOML writes text, syntax highlighted when color is on.
func printTOML(w io.Writer, text string, color bool) {
	if color {
		if err := quick.Highlight(w, text, "toml", "terminal256", "monokai"); err == nil {
			return
		}
	}
	fmt.Fprint(w, text)
}

// configView is the JSON shape of "config show"; the key is never included.
func configView(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"gemini": map[string]interface{}{
			"api_key_set":     cfg.HasAPIKey(),
			"base_url":        cfg.Gemini.BaseURL,
			"list_version":    cfg.Gemini.ListVersion,
			"api_versions":    cfg.Gemini.APIVersions,
			"fallback_models": cfg.Gemini.FallbackModels,
			"model_family":    cfg.Gemini.ModelFamily,
		},
		"server": map[string]interface{}{
			"addr":                  cfg.Server.Addr,
			"rate_limit_per_minute": cfg.Server.RateLimitPerMinute,
			"rate_limit_burst":      cfg.Server.RateLimitBurst,
		},
		"client": map[string]interface{}{
			"proxy_url":    cfg.Client.ProxyURL,
			"timeout_secs": cfg.Client.TimeoutSecs,
			"markdown":     cfg.Client.Markdown,
		},
		"audit": map[string]interface{}{
			"enabled": cfg.Audit.Enabled,
			"path":    cfg.Audit.Path,
		},
	}
}

// HandleVersion prints version information.
func HandleVersion(env *Env) error {
	if env.Args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(env.Stdout)
	}
	PrintVersion(env.Stdout)
	return nil
}
