// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat.
package cli

import (
	"context"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/bookbot/internal/session"
	"github.com/jeranaias/bookbot/internal/ui/chat"
	"github.com/jeranaias/bookbot/internal/ui/render"
	"github.com/jeranaias/bookbot/internal/ui/styles"
)

// HandleTUI runs the Bubble Tea chat view until the user quits.
func HandleTUI(ctx context.Context, env *Env) error {
	// Log lines would tear the alternate screen.
	if !env.Args.Verbose {
		log.SetOutput(io.Discard)
	}

	md := render.NewMarkdown()
	if !env.Config.Client.Markdown {
		md = render.Passthrough()
	}

	m := chat.New(ctx, session.NewClient(env.ProxyClient()), styles.NewTheme(), md).
		WithStatus(env.Config.Client.ProxyURL)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return NewCommandError("tui", "run", err)
	}
	return nil
}
