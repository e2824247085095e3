// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for bookbot.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdServe
	CmdStatus
	CmdModels
	CmdAudit
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdServe:
		return "serve"
	case CmdStatus:
		return "status"
	case CmdModels:
		return "models"
	case CmdAudit:
		return "audit"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// DefaultAuditLimit is how many attempts "audit" shows without --limit.
const DefaultAuditLimit = 20

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	ProxyURL   string
	Verbose    bool
	Quiet      bool
	JSON       bool

	// Command-specific
	Query      string
	Addr       string
	Limit      int
	Subcommand string
	Force      bool

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `bookbot - book recommendations from your Kindle library
Version: %s

Usage:
  bookbot [global flags] [command] [args]

Commands:
  tui                 Full-screen chat (default)
  chat                Line-based chat in the terminal
  ask "<text>"        Send one message and print the reply ("-" reads stdin)
  serve [--addr A]    Run the chat proxy
  status              Show proxy health
  models              Show the model the proxy would try first
  audit [--limit N]   Show recent upstream attempts from the audit log
  config [show|path]  Show the effective configuration or its file path
  config init [-f]    Write a default config file (-f overwrites)
  version             Show version information
  help                Show this help

Global flags:
  --config PATH       Config file (default ~/.bookbot/config.toml)
  --proxy URL         Proxy base URL for tui, chat, ask, status and models
  --json              Machine-readable output where supported
  -v, --verbose       Verbose logging
  -q, --quiet         Minimal output

Environment:
  GEMINI_API_KEY      API key used by "serve"
  BOOKBOT_PROXY_URL   Same as --proxy
  BOOKBOT_ADDR        Listen address for "serve"
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "bookbot version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args (without the program name) and returns the command
// and its arguments. Global flags may appear anywhere.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "chat":
		return CmdChat, parsed

	case "ask":
		parsed.Query = strings.Join(remaining, " ")
		return CmdAsk, parsed

	case "serve", "server":
		parseServeArgs(&parsed, remaining)
		return CmdServe, parsed

	case "status", "s":
		return CmdStatus, parsed

	case "models":
		return CmdModels, parsed

	case "audit":
		parseAuditArgs(&parsed, remaining)
		return CmdAudit, parsed

	case "config":
		parsed.Subcommand = "show"
		if len(remaining) > 0 {
			parsed.Subcommand = strings.ToLower(remaining[0])
		}
		for _, arg := range remaining {
			if arg == "--force" || arg == "-f" {
				parsed.Force = true
			}
		}
		return CmdConfig, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		// Unknown command: show help rather than guess.
		parsed.Raw = append([]string{cmd}, remaining...)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsed := Args{Limit: DefaultAuditLimit}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsed.ConfigPath = args[i]
			}
		case "--proxy":
			if i+1 < len(args) {
				i++
				parsed.ProxyURL = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--proxy="):
				parsed.ProxyURL = strings.TrimPrefix(arg, "--proxy=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsed
}

// parseServeArgs parses serve command specific arguments.
func parseServeArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		switch {
		case arg == "--addr" || arg == "-a":
			if i+1 < len(remaining) {
				i++
				args.Addr = remaining[i]
			}
		case strings.HasPrefix(arg, "--addr="):
			args.Addr = strings.TrimPrefix(arg, "--addr=")
		}
	}
}

// parseAuditArgs parses audit command specific arguments. Invalid limits are
// ignored and the default kept.
func parseAuditArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		value := ""
		switch {
		case arg == "--limit" || arg == "-n":
			if i+1 < len(remaining) {
				i++
				value = remaining[i]
			}
		case strings.HasPrefix(arg, "--limit="):
			value = strings.TrimPrefix(arg, "--limit=")
		}
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			args.Limit = n
		}
	}
}
