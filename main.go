// bookbot - Book recommendations from your Kindle library, via Gemini.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/bookbot/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// Commands that need no configuration.
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		if len(args.Raw) > 0 {
			os.Exit(cli.ExitUsageError)
		}
		return
	case cli.CmdVersion:
		if !args.JSON {
			cli.PrintVersion(os.Stdout)
			return
		}
	}

	env, err := cli.NewEnv(args)
	if err != nil {
		exit(cmd, args, err)
	}

	os.Exit(cli.GetExitCode(run(cmd, env)))
}

func run(cmd cli.Command, env *cli.Env) error {
	// The chat REPL handles Ctrl+C itself so that it cancels a request
	// instead of the program, and the TUI reads it as a key.
	ctx := context.Background()
	if cmd != cli.CmdChat && cmd != cli.CmdTUI {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = cli.HandleTUI(ctx, env)
	case cli.CmdChat:
		err = cli.HandleChat(ctx, env)
	case cli.CmdAsk:
		err = cli.HandleAsk(ctx, env)
	case cli.CmdServe:
		err = cli.HandleServe(ctx, env)
	case cli.CmdStatus:
		err = cli.HandleStatus(ctx, env)
	case cli.CmdModels:
		err = cli.HandleModels(ctx, env)
	case cli.CmdAudit:
		err = cli.HandleAudit(ctx, env)
	case cli.CmdConfig:
		err = cli.HandleConfig(env)
	case cli.CmdVersion:
		err = cli.HandleVersion(env)
	}

	if err != nil {
		cli.DisplayError(errWriter(env), cmd.String(), err, env.Args.JSON)
	}
	return err
}

// errWriter keeps JSON errors on stdout with the rest of the JSON output.
func errWriter(env *cli.Env) *os.File {
	if env.Args.JSON {
		return os.Stdout
	}
	return os.Stderr
}

func exit(cmd cli.Command, args cli.Args, err error) {
	w := os.Stderr
	if args.JSON {
		w = os.Stdout
	}
	cli.DisplayError(w, cmd.String(), err, args.JSON)
	os.Exit(cli.GetExitCode(err))
}
