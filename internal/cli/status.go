// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Proxy health and model discovery.
//
// Commands:
//
//	status   GET /health on the proxy
//	models   GET /api/models on the proxy
package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/bookbot/internal/proxyclient"
)

// HandleStatus prints the proxy's health.
func HandleStatus(ctx context.Context, env *Env) error {
	return runStatus(ctx, env, env.ProxyClient())
}

func runStatus(ctx context.Context, env *Env, client *proxyclient.Client) error {
	h, err := client.Health(ctx)
	if err != nil {
		return NewCommandError("status", "query "+client.BaseURL(), err)
	}

	if env.Args.JSON {
		return NewJSONResponse("status", h).Write(env.Stdout)
	}

	w := env.Stdout
	fmt.Fprintln(w, TitleStyle.Render("BookBot proxy"))
	fmt.Fprintln(w, RenderField("URL", client.BaseURL()))
	fmt.Fprintln(w, RenderField("Status", h.Status))
	fmt.Fprintln(w, RenderField("Version", h.Version))
	if h.Configured {
		fmt.Fprintln(w, LabelStyle.Render("API key")+SuccessStyle.Render("configured"))
	} else {
		fmt.Fprintln(w, LabelStyle.Render("API key")+ErrorStyle.Render("missing (set GEMINI_API_KEY)"))
	}
	return nil
}

// HandleModels prints the discovered model and the order models are tried in.
func HandleModels(ctx context.Context, env *Env) error {
	return runModels(ctx, env, env.ProxyClient())
}

func runModels(ctx context.Context, env *Env, client *proxyclient.Client) error {
	m, err := client.Models(ctx)
	if err != nil {
		return NewCommandError("models", "query "+client.BaseURL(), err)
	}

	if env.Args.JSON {
		return NewJSONResponse("models", m).Write(env.Stdout)
	}

	w := env.Stdout
	discovered := DimStyle.Render("none (listing failed or no match)")
	if m.Discovered != nil {
		discovered = *m.Discovered
	}
	fmt.Fprintln(w, RenderField("Discovered", discovered))
	fmt.Fprintln(w, TitleStyle.Render("Try order"))
	for i, name := range m.Candidates {
		fmt.Fprintf(w, "  %d. %s\n", i+1, name)
	}
	if len(m.Candidates) == 0 {
		fmt.Fprintln(w, "  "+DimStyle.Render("(none)"))
	}
	return nil
}
