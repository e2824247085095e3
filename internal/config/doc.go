// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for bookbot.
//
// Configuration is assembled from (highest precedence first):
//   - Environment variables (GEMINI_API_KEY, BOOKBOT_*)
//   - .env.local and .env in the working directory (never override real env)
//   - ~/.bookbot/config.toml, or the file passed with --config
//   - Built-in defaults
//
// # Key Types
//
//   - Config: complete configuration
//   - GeminiConfig: upstream API settings and the model fallback list
//   - ServerConfig: proxy listen address, CORS and inbound rate limit
//   - ClientConfig: where the terminal client finds the proxy
//   - AuditConfig: optional SQLite attempt log
//   - Watcher: fsnotify-based reload of the resolver settings
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !cfg.HasAPIKey() {
//	    log.Println("GEMINI_API_KEY is not set")
//	}
package config
