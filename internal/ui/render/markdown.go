// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant replies into terminal markdown.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultWidth is the wrap width used before the terminal size is known.
	DefaultWidth = 80

	// MinWidth is the narrowest wrap width the renderer accepts.
	MinWidth = 20

	// styleNoTTY is glamour's uncolored style.
	styleNoTTY = "notty"
)

// =============================================================================
// RENDERER
// =============================================================================

// Markdown renders markdown with glamour, rebuilding the underlying renderer
// only when the wrap width changes. A Markdown with Plain set, or one whose
// renderer failed to build, returns its input unchanged.
type Markdown struct {
	mu    sync.Mutex
	plain bool
	style string
	width int
	tr    *glamour.TermRenderer
}

// NewMarkdown creates a renderer that picks a dark or light style from the
// terminal background.
func NewMarkdown() *Markdown {
	return &Markdown{width: DefaultWidth}
}

// NewPlainMarkdown creates a renderer that lays out markdown without color.
func NewPlainMarkdown() *Markdown {
	return &Markdown{width: DefaultWidth, style: styleNoTTY}
}

// Passthrough creates a renderer that does no rendering at all.
func Passthrough() *Markdown {
	return &Markdown{width: DefaultWidth, plain: true}
}

// SetWidth changes the wrap width for subsequent renders.
func (m *Markdown) SetWidth(width int) {
	if width < MinWidth {
		width = MinWidth
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if width != m.width {
		m.width = width
		m.tr = nil
	}
}

// Width returns the current wrap width.
func (m *Markdown) Width() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width
}

// Render renders content, falling back to the raw text on any error.
func (m *Markdown) Render(content string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.plain {
		return content
	}
	if m.tr == nil {
		tr, err := m.build()
		if err != nil {
			m.plain = true
			return content
		}
		m.tr = tr
	}

	out, err := m.tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (m *Markdown) build() (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(m.width),
		glamour.WithEmoji(),
	}
	if m.style != "" {
		opts = append(opts, glamour.WithStandardStyle(m.style))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	return glamour.NewTermRenderer(opts...)
}
