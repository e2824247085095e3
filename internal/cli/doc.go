// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and command handlers for bookbot.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - Env: Loaded configuration and process streams a handler runs against
//
// # Usage
//
//	cmd, args := cli.Parse()
//	env, err := cli.NewEnv(args)
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.HandleAsk(ctx, env)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Client commands talk to the proxy over HTTP:
//   - tui: Full-screen chat (default)
//   - chat: Line-based chat with history
//   - ask: One message, reply on stdout
//   - status, models: Proxy health and model discovery
//
// Server and local commands:
//   - serve: Run the proxy
//   - audit: Read the upstream attempt log
//   - config: Show configuration or its path
//
// status, models, audit, config, version and ask support --json.
package cli
