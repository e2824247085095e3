// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single message command for bookbot.
//
// Command: ask [text]
//
// Examples:
//
//	bookbot ask "Something like Project Hail Mary?"
//	pbpaste | bookbot ask -
//	bookbot ask --json "Three short classics"
//
// A library paste is wrapped in the recommendation request exactly as in
// the interactive views.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/bookbot/internal/prompt"
	"github.com/jeranaias/bookbot/internal/session"
)

// MaxAskInput bounds how much stdin "ask -" reads (1MB, the proxy's limit).
const MaxAskInput = 1 << 20

// HandleAsk sends one message with no history and prints the reply.
func HandleAsk(ctx context.Context, env *Env) error {
	query, err := askInput(env)
	if err != nil {
		return err
	}
	return runAsk(ctx, env, session.NewClient(env.ProxyClient()), query)
}

// askInput returns the text to send: the arguments, or stdin for "-" or when
// stdin is piped and no arguments were given.
func askInput(env *Env) (string, error) {
	query := env.Args.Query
	if query == "-" || (strings.TrimSpace(query) == "" && !env.StdinTTY && env.Stdin != nil) {
		data, err := io.ReadAll(io.LimitReader(env.Stdin, MaxAskInput))
		if err != nil {
			return "", NewCommandError("ask", "read stdin", err)
		}
		query = string(data)
	}
	if strings.TrimSpace(query) == "" {
		return "", ErrMissingArgument("text", `bookbot ask "<text>"  or  bookbot ask - < library.txt`)
	}
	return query, nil
}

func runAsk(ctx context.Context, env *Env, client *session.Client, query string) error {
	library := prompt.DetectLibrary(strings.TrimSpace(query))
	if library && !env.Args.Quiet && !env.Args.JSON {
		fmt.Fprintln(env.Stderr, WarningStyle.Render(prompt.LibraryHint))
	}

	reply, err := client.Submit(ctx, query)
	if err != nil {
		return err
	}

	if env.Args.JSON {
		return NewJSONResponse("ask", AskData{Response: reply, Library: library}).Write(env.Stdout)
	}

	fmt.Fprintln(env.Stdout, env.Markdown().Render(reply))
	return nil
}
