// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared wiring for command handlers.
package cli

import (
	"io"
	"log"
	"os"

	"github.com/jeranaias/bookbot/internal/config"
	"github.com/jeranaias/bookbot/internal/proxyclient"
	"github.com/jeranaias/bookbot/internal/ui/render"
)

// Env is what every handler runs against: parsed args, the effective
// configuration and the process streams.
type Env struct {
	Args   Args
	Config *config.Config

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive reports whether stdout is a terminal.
	Interactive bool
	// StdinTTY reports whether stdin is a terminal.
	StdinTTY bool
}

// NewEnv loads configuration for args and binds the process streams.
// --proxy overrides the configured proxy URL.
func NewEnv(args Args) (*Env, error) {
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if args.ProxyURL != "" {
		cfg.Client.ProxyURL = args.ProxyURL
	}
	ConfigureLogging(args)

	return &Env{
		Args:        args,
		Config:      cfg,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: IsStdoutTTY(),
		StdinTTY:    IsTTY(),
	}, nil
}

// ConfigureLogging routes the standard logger. Quiet discards it; otherwise
// it goes to stderr with timestamps.
func ConfigureLogging(args Args) {
	log.SetFlags(log.LstdFlags)
	if args.Quiet {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(os.Stderr)
}

// ProxyClient builds a client for the configured proxy.
func (e *Env) ProxyClient() *proxyclient.Client {
	return proxyclient.New(e.Config.Client.ProxyURL).WithTimeout(e.Config.ClientTimeout())
}

// Markdown returns the reply renderer for this environment. Piped output and
// markdown = false get the raw reply text.
func (e *Env) Markdown() *render.Markdown {
	if !e.Interactive || !e.Config.Client.Markdown {
		return render.Passthrough()
	}
	md := render.NewMarkdown()
	md.SetWidth(GetTerminalWidth() - 2)
	return md
}
